// Package session owns the full view state of one mind map: identity keys,
// collapse state, the navigation stack, the reconciliation engine, the view
// transform and the current selection.
//
// A Session is not safe for concurrent use. Every mutation must come from a
// single writer; in the TUI that is the bubbletea Update loop, and background
// producers (file watcher, loaders) only ever send it messages.
package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vanderheijden86/mindwork/pkg/collapse"
	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
	"github.com/vanderheijden86/mindwork/pkg/navigation"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
	"github.com/vanderheijden86/mindwork/pkg/viewport"
)

// Options configures a session.
type Options struct {
	Size         layout.Size
	DepthSpacing float64
	InitialScale float64
	MinScale     float64
	MaxScale     float64
	// InitialCollapse is the relative depth from which internal nodes start
	// collapsed. 0 means the default of 1 (root and its children visible);
	// a negative value starts fully expanded.
	InitialCollapse int
}

// DefaultOptions returns the options of the original viewer: an 800x620
// canvas, 180 units per level, 0.8 initial scale and a [0.1, 8] zoom extent.
func DefaultOptions() Options {
	return Options{
		Size:            layout.Size{Width: 800, Height: 620},
		DepthSpacing:    layout.DefaultDepthSpacing,
		InitialScale:    viewport.DefaultInitialScale,
		MinScale:        viewport.DefaultMinScale,
		MaxScale:        viewport.DefaultMaxScale,
		InitialCollapse: 1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Size.Width <= 0 {
		o.Size.Width = d.Size.Width
	}
	if o.Size.Height <= 0 {
		o.Size.Height = d.Size.Height
	}
	if o.DepthSpacing <= 0 {
		o.DepthSpacing = d.DepthSpacing
	}
	if o.InitialScale <= 0 {
		o.InitialScale = d.InitialScale
	}
	if o.MinScale <= 0 {
		o.MinScale = d.MinScale
	}
	if o.MaxScale <= 0 {
		o.MaxScale = d.MaxScale
	}
	if o.InitialCollapse == 0 {
		o.InitialCollapse = d.InitialCollapse
	}
	return o
}

// Session is the single-writer owner of a mind map's view state.
type Session struct {
	opts Options
	raw  any // retained for Rebuild; nil when created from a tree

	tree   *hierarchy.Tree
	keys   *identity.Registry
	store  *collapse.Store
	nav    *navigation.Controller
	engine *reconcile.Engine
	layout layout.Tidy

	zoom      viewport.Controller
	transform viewport.Transform

	selected identity.Key
	visible  []reconcile.VisibleNode
	last     reconcile.Transition
}

// New builds a session from a raw record (decoded JSON/YAML or a
// hierarchy.Record). Malformed input is reported and no session is created.
func New(raw any, opts Options) (*Session, error) {
	tree, err := hierarchy.Build(raw)
	if err != nil {
		return nil, err
	}
	s, err := FromTree(tree, opts)
	if err != nil {
		return nil, err
	}
	s.raw = raw
	return s, nil
}

// FromTree builds a session over an already parsed tree.
func FromTree(tree *hierarchy.Tree, opts Options) (*Session, error) {
	if tree == nil || tree.Root() == nil {
		return nil, fmt.Errorf("new session: %w", hierarchy.ErrMalformedInput)
	}
	s := &Session{opts: opts.withDefaults()}
	s.init(tree)
	if _, err := s.refresh(identity.None); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) init(tree *hierarchy.Tree) {
	s.tree = tree
	s.keys = identity.NewRegistry()
	s.keys.AssignAll(tree)
	s.store = collapse.NewStore(s.keys)
	s.store.Init(tree)
	if d := s.opts.InitialCollapse; d > 0 {
		s.store.ApplyDepthPolicy(tree.Root(), d)
	}
	s.nav = navigation.New(s.keys.KeyOf(tree.Root()), s.keys)
	s.engine = reconcile.NewEngine(s.keys)
	s.layout = layout.Tidy{Size: s.opts.Size, DepthSpacing: s.opts.DepthSpacing}
	s.zoom = viewport.Controller{MinScale: s.opts.MinScale, MaxScale: s.opts.MaxScale}
	s.transform = s.zoom.CenterOn(layout.Point{}, s.opts.InitialScale, s.opts.Size)
	s.selected = identity.None
	s.visible = nil
	s.last = reconcile.Transition{}
}

// refresh derives the visible set under the current root, lays it out and
// reconciles it against the previous pass.
func (s *Session) refresh(trigger identity.Key) (reconcile.Transition, error) {
	root, ok := s.keys.Resolve(s.nav.Current())
	if !ok {
		return reconcile.Transition{}, &reconcile.StaleReferenceError{Key: s.nav.Current(), Op: "refresh"}
	}

	stop := metrics.Timer(metrics.VisibleDerive)
	vis := hierarchy.CollectVisible(root, s.store)
	stop()

	pos := s.layout.Layout(vis)
	next := make([]reconcile.VisibleNode, len(vis))
	for i, v := range vis {
		next[i] = reconcile.VisibleNode{
			Key:               s.keys.KeyOf(v.Node),
			Node:              v.Node,
			Parent:            s.keys.KeyOf(v.Parent),
			Depth:             v.Depth,
			Position:          pos[v.Node],
			HasHiddenChildren: v.HasHiddenChildren,
		}
	}

	tr, err := s.engine.Reconcile(next, trigger)
	if err != nil {
		return reconcile.Transition{}, err
	}
	s.visible = next
	s.last = tr
	debug.Log("session: %d visible (enter=%d update=%d exit=%d)", len(next), len(tr.Enter), len(tr.Update), len(tr.Exit))
	return tr, nil
}

// Toggle expands or collapses k and reconciles. Toggling the current view
// root applies the root policy: expanding it reveals only one level.
func (s *Session) Toggle(k identity.Key) (reconcile.Transition, error) {
	defer s.engine.Settle()
	var err error
	if k == s.nav.Current() {
		err = s.store.ToggleRoot(k)
	} else {
		err = s.store.Toggle(k)
	}
	if err != nil {
		return reconcile.Transition{}, err
	}
	return s.refresh(k)
}

// CollapseAll collapses k and every internal node below it.
func (s *Session) CollapseAll(k identity.Key) (reconcile.Transition, error) {
	defer s.engine.Settle()
	if err := s.store.CollapseSubtreeRecursive(k); err != nil {
		return reconcile.Transition{}, err
	}
	return s.refresh(k)
}

// ExpandAll expands k and every internal node below it.
func (s *Session) ExpandAll(k identity.Key) (reconcile.Transition, error) {
	defer s.engine.Settle()
	if err := s.store.ExpandSubtreeRecursive(k); err != nil {
		return reconcile.Transition{}, err
	}
	return s.refresh(k)
}

// DrillInto makes k the view root. Collapse state is untouched.
func (s *Session) DrillInto(k identity.Key) (reconcile.Transition, error) {
	defer s.engine.Settle()
	if err := s.nav.DrillInto(k); err != nil {
		return reconcile.Transition{}, err
	}
	return s.refresh(k)
}

// GoBack returns to the parent of the current view root. At the absolute
// root it returns an *navigation.AtRootError and changes nothing.
func (s *Session) GoBack() (reconcile.Transition, error) {
	defer s.engine.Settle()
	from := s.nav.Current()
	if _, err := s.nav.GoBack(); err != nil {
		if errors.Is(err, navigation.ErrAtRoot) {
			debug.Log("session: go back ignored: %v", err)
		}
		return reconcile.Transition{}, err
	}
	return s.refresh(from)
}

// Reveal expands every collapsed ancestor of k between the view root and k,
// then selects k. When nothing had to be expanded the returned transition is
// empty. Nodes outside the view root's subtree are rejected with
// navigation.ErrNotDescendant.
func (s *Session) Reveal(k identity.Key) (reconcile.Transition, error) {
	defer s.engine.Settle()
	n, ok := s.keys.Resolve(k)
	if !ok {
		return reconcile.Transition{}, &reconcile.StaleReferenceError{Key: k, Op: "reveal"}
	}
	root, _ := s.keys.Resolve(s.nav.Current())
	if n != root && !hierarchy.IsAncestor(root, n) {
		return reconcile.Transition{}, fmt.Errorf("reveal %s (%q): %w", k, n.Name, navigation.ErrNotDescendant)
	}

	changed := false
	for _, a := range hierarchy.Path(n) {
		if a == n {
			break
		}
		if a != root && !hierarchy.IsAncestor(root, a) {
			continue
		}
		if !s.store.IsCollapsed(a) {
			continue
		}
		if err := s.store.Toggle(s.keys.KeyOf(a)); err != nil {
			return reconcile.Transition{}, err
		}
		changed = true
	}
	s.selected = k
	if !changed {
		return reconcile.Transition{}, nil
	}
	return s.refresh(k)
}

// Select marks k as the selected node. It does not change the visible set.
func (s *Session) Select(k identity.Key) error {
	if _, ok := s.keys.Resolve(k); !ok {
		return &reconcile.StaleReferenceError{Key: k, Op: "select"}
	}
	s.selected = k
	return nil
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection() { s.selected = identity.None }

// Selected returns the selected node, or nil.
func (s *Session) Selected() *hierarchy.Node {
	if s.selected == identity.None {
		return nil
	}
	n, _ := s.keys.Resolve(s.selected)
	return n
}

// SelectedKey returns the selected key, identity.None when nothing is
// selected.
func (s *Session) SelectedKey() identity.Key { return s.selected }

// Resize changes the layout extent and re-lays out the visible set.
func (s *Session) Resize(size layout.Size) (reconcile.Transition, error) {
	defer s.engine.Settle()
	if size.Width <= 0 || size.Height <= 0 {
		return s.last, nil
	}
	s.opts.Size = size
	s.layout.Size = size
	return s.refresh(identity.None)
}

// ApplyGesture applies a pan or zoom to the view transform.
func (s *Session) ApplyGesture(g viewport.Gesture) viewport.Transform {
	s.transform = s.zoom.ApplyGesture(s.transform, g)
	return s.transform
}

// Recenter restores the initial framing.
func (s *Session) Recenter() viewport.Transform {
	s.transform = s.zoom.CenterOn(layout.Point{}, s.opts.InitialScale, s.opts.Size)
	return s.transform
}

// Transform returns the current view transform.
func (s *Session) Transform() viewport.Transform { return s.transform }

// Interrupt records where nodes are drawn mid-animation, exiting ones
// included, so the next operation restarts from the screen state. The
// snapshot is used by that one operation only, even when it fails.
func (s *Session) Interrupt(displayed map[identity.Key]layout.Point) {
	s.engine.Interrupt(displayed)
}

// Reload swaps in a freshly fetched version of the hierarchy. Identities are
// carried across by structural path, collapse state follows its keys, nodes
// that did not exist before start collapsed, and the view root falls back to
// the deepest surviving ancestor. Malformed input leaves the session as is.
func (s *Session) Reload(raw any) (identity.RebindStats, reconcile.Transition, error) {
	defer s.engine.Settle()
	tree, err := hierarchy.Build(raw)
	if err != nil {
		return identity.RebindStats{}, reconcile.Transition{}, err
	}
	stats, tr, err := s.ReloadTree(tree)
	if err == nil {
		s.raw = raw
	}
	return stats, tr, err
}

// ReloadTree is Reload for an already parsed tree.
func (s *Session) ReloadTree(tree *hierarchy.Tree) (identity.RebindStats, reconcile.Transition, error) {
	defer s.engine.Settle()
	if tree == nil || tree.Root() == nil {
		return identity.RebindStats{}, reconcile.Transition{}, fmt.Errorf("reload: %w", hierarchy.ErrMalformedInput)
	}
	snap := s.store.Snapshot()
	stats := s.keys.Rebind(s.tree, tree)
	s.tree = tree

	s.store.Init(tree)
	s.store.Restore(snap)
	for _, n := range tree.Nodes() {
		if n.IsLeaf() || n == tree.Root() {
			continue
		}
		k := s.keys.KeyOf(n)
		if _, known := snap[k]; !known {
			_ = s.store.CollapseSubtree(k)
		}
	}

	if s.nav.Rebase(s.keys.KeyOf(tree.Root())) {
		debug.Log("session: view root moved to %s after reload", s.nav.Current())
	}
	if _, ok := s.keys.Resolve(s.selected); !ok {
		s.selected = identity.None
	}
	debug.Log("session: reload %s", stats)
	metrics.KeysKept.Add(stats.Kept)
	metrics.KeysAdded.Add(stats.Added)
	metrics.KeysRetired.Add(stats.Retired)

	tr, err := s.refresh(identity.None)
	return stats, tr, err
}

// Rebuild discards all view state and reinitializes from the retained raw
// input. It is the recovery path after a *reconcile.StaleReferenceError.
func (s *Session) Rebuild() error {
	defer s.engine.Settle()
	tree := s.tree
	if s.raw != nil {
		t, err := hierarchy.Build(s.raw)
		if err != nil {
			return fmt.Errorf("rebuild: %w", err)
		}
		tree = t
	}
	s.init(tree)
	_, err := s.refresh(identity.None)
	return err
}

// Tree returns the hierarchy currently shown.
func (s *Session) Tree() *hierarchy.Tree { return s.tree }

// Keys returns the identity registry.
func (s *Session) Keys() *identity.Registry { return s.keys }

// Collapse returns the collapse store.
func (s *Session) Collapse() *collapse.Store { return s.store }

// Visible returns the visible set of the last pass, in pre-order.
func (s *Session) Visible() []reconcile.VisibleNode { return s.visible }

// Transition returns the result of the last pass.
func (s *Session) Transition() reconcile.Transition { return s.last }

// Current returns the key of the view root.
func (s *Session) Current() identity.Key { return s.nav.Current() }

// AtRoot reports whether the view root is the absolute root. The UI offers
// "go back" only when this is false.
func (s *Session) AtRoot() bool { return s.nav.AtRoot() }

// Breadcrumbs returns the names from the absolute root to the view root.
func (s *Session) Breadcrumbs() []string { return s.nav.Breadcrumbs() }

// Options returns the effective options.
func (s *Session) Options() Options { return s.opts }

// Attribute is one name/value pair of the details panel.
type Attribute struct {
	Key, Value string
}

// Attributes returns n's attributes sorted by key.
func Attributes(n *hierarchy.Node) []Attribute {
	if n == nil || len(n.Attributes) == 0 {
		return nil
	}
	out := make([]Attribute, 0, len(n.Attributes))
	for k, v := range n.Attributes {
		out = append(out, Attribute{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
