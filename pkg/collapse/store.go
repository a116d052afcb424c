// Package collapse keeps the per-node expanded/collapsed state of a hierarchy,
// independent of layout and rendering.
//
// Each internal node is in exactly one of two states, modeled as a tagged
// variant rather than two optional fields:
//
//	Expanded(children)        children are part of the visible set
//	Collapsed(hiddenChildren) children are hidden behind the node
//
// Leaves carry no state at all. Only Toggle, ToggleRoot and the explicit
// collapse/expand policies mutate the store; layout and rendering never do.
package collapse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
)

// ErrUnknownKey is returned when a key does not resolve to a node.
var ErrUnknownKey = errors.New("unknown node key")

// Kind is the child-visibility tag of a node.
type Kind int

const (
	Leaf Kind = iota
	Expanded
	Collapsed
)

func (k Kind) String() string {
	switch k {
	case Expanded:
		return "expanded"
	case Collapsed:
		return "collapsed"
	default:
		return "leaf"
	}
}

// Entry is the state of one internal node. Children are the node's children
// in source order: visible when Kind is Expanded, hidden when Collapsed.
type Entry struct {
	Kind     Kind
	Children []*hierarchy.Node
}

// VisibleChildren returns the children shown under the node.
func (e Entry) VisibleChildren() []*hierarchy.Node {
	if e.Kind != Expanded {
		return nil
	}
	return e.Children
}

// HiddenChildren returns the children a collapse currently hides.
func (e Entry) HiddenChildren() []*hierarchy.Node {
	if e.Kind != Collapsed {
		return nil
	}
	return e.Children
}

// Keyer is the part of the identity registry the store needs.
type Keyer interface {
	KeyOf(n *hierarchy.Node) identity.Key
	Lookup(n *hierarchy.Node) (identity.Key, bool)
	Resolve(k identity.Key) (*hierarchy.Node, bool)
}

// Store maps identity keys to collapse entries.
type Store struct {
	keys    Keyer
	entries map[identity.Key]Entry
}

// NewStore returns an empty store bound to a key registry.
func NewStore(keys Keyer) *Store {
	return &Store{
		keys:    keys,
		entries: make(map[identity.Key]Entry),
	}
}

// Init resets the store to "everything expanded" for tree t. Every internal
// node gets an explicit entry so the mapping has one canonical form, which is
// what lets a toggle pair restore it exactly.
func (s *Store) Init(t *hierarchy.Tree) {
	s.entries = make(map[identity.Key]Entry, t.Len())
	for _, n := range t.Nodes() {
		if n.IsLeaf() {
			continue
		}
		s.entries[s.keys.KeyOf(n)] = Entry{Kind: Expanded, Children: n.Children()}
	}
}

// IsCollapsed implements hierarchy.ChildVisibility. It never allocates keys;
// a node without one reads as expanded.
func (s *Store) IsCollapsed(n *hierarchy.Node) bool {
	if n.IsLeaf() {
		return false
	}
	k, ok := s.keys.Lookup(n)
	if !ok {
		return false
	}
	e, ok := s.entries[k]
	return ok && e.Kind == Collapsed
}

// Entry returns the entry for k. Leaves and unknown keys report Leaf.
func (s *Store) Entry(k identity.Key) Entry {
	e, ok := s.entries[k]
	if !ok {
		return Entry{Kind: Leaf}
	}
	return e
}

// Toggle flips the node between Expanded and Collapsed. It is a no-op on
// leaves and touches no other node.
func (s *Store) Toggle(k identity.Key) error {
	n, err := s.resolve(k)
	if err != nil {
		return err
	}
	if n.IsLeaf() {
		return nil
	}
	e := s.entryFor(k, n)
	if e.Kind == Collapsed {
		e.Kind = Expanded
	} else {
		e.Kind = Collapsed
	}
	s.entries[k] = e
	debug.Log("collapse: %s %q -> %s", k, n.Name, e.Kind)
	return nil
}

// ToggleRoot toggles the view root. When the root goes from collapsed to
// expanded, each of its children is forced collapsed so expanding the root
// only ever reveals one level.
func (s *Store) ToggleRoot(k identity.Key) error {
	wasCollapsed := s.Entry(k).Kind == Collapsed
	if err := s.Toggle(k); err != nil {
		return err
	}
	if !wasCollapsed || s.Entry(k).Kind != Expanded {
		return nil
	}
	n, _ := s.keys.Resolve(k)
	for _, child := range n.Children() {
		s.collapse(child)
	}
	return nil
}

// CollapseSubtree collapses a single node, hiding its whole subtree.
func (s *Store) CollapseSubtree(k identity.Key) error {
	n, err := s.resolve(k)
	if err != nil {
		return err
	}
	s.collapse(n)
	return nil
}

// CollapseSubtreeRecursive collapses the node and every internal descendant,
// so re-expanding reveals one level at a time.
func (s *Store) CollapseSubtreeRecursive(k identity.Key) error {
	n, err := s.resolve(k)
	if err != nil {
		return err
	}
	hierarchy.Walk(n, func(d *hierarchy.Node) bool {
		s.collapse(d)
		return true
	})
	return nil
}

// ExpandSubtreeRecursive expands the node and every internal descendant.
func (s *Store) ExpandSubtreeRecursive(k identity.Key) error {
	n, err := s.resolve(k)
	if err != nil {
		return err
	}
	hierarchy.Walk(n, func(d *hierarchy.Node) bool {
		if !d.IsLeaf() {
			dk := s.keys.KeyOf(d)
			e := s.entryFor(dk, d)
			e.Kind = Expanded
			s.entries[dk] = e
		}
		return true
	})
	return nil
}

// ApplyInitialPolicy collapses every child of root one level deep, so the
// first render shows root and its immediate children regardless of the total
// tree size. Root itself stays expanded.
func (s *Store) ApplyInitialPolicy(root *hierarchy.Node) {
	if root == nil {
		return
	}
	if !root.IsLeaf() {
		rk := s.keys.KeyOf(root)
		e := s.entryFor(rk, root)
		e.Kind = Expanded
		s.entries[rk] = e
	}
	for _, child := range root.Children() {
		s.collapse(child)
	}
}

// ApplyDepthPolicy collapses every internal node at relative depth >= depth
// below root. Depth 1 is ApplyInitialPolicy; 0 collapses root itself.
func (s *Store) ApplyDepthPolicy(root *hierarchy.Node, depth int) {
	if depth == 1 {
		s.ApplyInitialPolicy(root)
		return
	}
	base := root.Depth()
	hierarchy.Walk(root, func(n *hierarchy.Node) bool {
		if n.Depth()-base >= depth {
			s.collapse(n)
		}
		return true
	})
}

// Snapshot returns a copy of the key -> kind mapping.
func (s *Store) Snapshot() map[identity.Key]Kind {
	out := make(map[identity.Key]Kind, len(s.entries))
	for k, e := range s.entries {
		out[k] = e.Kind
	}
	return out
}

// Restore applies kinds from a snapshot to nodes that still exist and are
// still internal. Keys that vanished or became leaves are dropped.
func (s *Store) Restore(snapshot map[identity.Key]Kind) int {
	applied := 0
	for k, kind := range snapshot {
		if kind == Leaf {
			continue
		}
		n, ok := s.keys.Resolve(k)
		if !ok || n.IsLeaf() {
			continue
		}
		s.entries[k] = Entry{Kind: kind, Children: n.Children()}
		applied++
	}
	return applied
}

// CollapsedKeys returns the keys currently collapsed, sorted.
func (s *Store) CollapsedKeys() []identity.Key {
	var out []identity.Key
	for k, e := range s.entries {
		if e.Kind == Collapsed {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) collapse(n *hierarchy.Node) {
	if n.IsLeaf() {
		return
	}
	k := s.keys.KeyOf(n)
	e := s.entryFor(k, n)
	e.Kind = Collapsed
	s.entries[k] = e
}

func (s *Store) entryFor(k identity.Key, n *hierarchy.Node) Entry {
	if e, ok := s.entries[k]; ok {
		return e
	}
	return Entry{Kind: Expanded, Children: n.Children()}
}

func (s *Store) resolve(k identity.Key) (*hierarchy.Node, error) {
	n, ok := s.keys.Resolve(k)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
	}
	return n, nil
}
