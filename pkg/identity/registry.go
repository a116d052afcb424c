// Package identity assigns stable opaque keys to hierarchy nodes so repeated
// reconciliation passes over the same logical tree can be diffed by key.
//
// Within a session identity is object identity: the same *hierarchy.Node always
// yields the same Key, across collapse/expand cycles and re-roots. Keys are
// allocated from a monotonically increasing counter and never reused.
//
// When the source is re-fetched and re-parsed into new objects, Rebind carries
// keys across by structural path (names from the root plus the ordinal among
// same-named siblings), so an unchanged node animates as a move rather than as
// exit-old/enter-new.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
)

// Key is an opaque identity token. The zero Key is never assigned.
type Key uint64

// None is the zero Key.
const None Key = 0

func (k Key) String() string {
	if k == None {
		return "k-none"
	}
	return "k" + strconv.FormatUint(uint64(k), 10)
}

// Resolver maps keys back to nodes.
type Resolver interface {
	Resolve(k Key) (*hierarchy.Node, bool)
}

// Registry is the identity bookkeeping for one session. It is not safe for
// concurrent use; the session serializes all access.
type Registry struct {
	keys  map[*hierarchy.Node]Key
	nodes map[Key]*hierarchy.Node
	next  Key
}

// NewRegistry returns an empty registry. The first key handed out is 1.
func NewRegistry() *Registry {
	return &Registry{
		keys:  make(map[*hierarchy.Node]Key),
		nodes: make(map[Key]*hierarchy.Node),
		next:  1,
	}
}

// KeyOf returns the key for n, allocating one on first use.
func (r *Registry) KeyOf(n *hierarchy.Node) Key {
	if n == nil {
		return None
	}
	if k, ok := r.keys[n]; ok {
		return k
	}
	k := r.next
	r.next++
	r.keys[n] = k
	r.nodes[k] = n
	return k
}

// Lookup returns the key already assigned to n without allocating.
func (r *Registry) Lookup(n *hierarchy.Node) (Key, bool) {
	k, ok := r.keys[n]
	return k, ok
}

// Resolve returns the node currently bound to k.
func (r *Registry) Resolve(k Key) (*hierarchy.Node, bool) {
	n, ok := r.nodes[k]
	return n, ok
}

// Len returns the number of live bindings.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Allocated returns how many keys have ever been handed out.
func (r *Registry) Allocated() int {
	return int(r.next - 1)
}

// AssignAll binds every node of t in pre-order. Assigning eagerly keeps keys
// in document order, which makes debug output and snapshots readable.
func (r *Registry) AssignAll(t *hierarchy.Tree) {
	for _, n := range t.Nodes() {
		r.KeyOf(n)
	}
}

// RebindStats summarizes a Rebind.
type RebindStats struct {
	Kept    int // nodes that inherited a key from the previous tree
	Added   int // nodes that received a fresh key
	Retired int // keys whose node disappeared
}

func (s RebindStats) String() string {
	return fmt.Sprintf("kept=%d added=%d retired=%d", s.Kept, s.Added, s.Retired)
}

// Rebind moves the registry from old to next. Every node of next whose
// structural path matches a bound node of old takes over that node's key;
// the rest get fresh keys. Keys of old nodes without a counterpart are
// retired and never handed out again.
func (r *Registry) Rebind(old, next *hierarchy.Tree) RebindStats {
	var stats RebindStats

	byPath := make(map[string]Key)
	for path, n := range structuralPaths(old) {
		if k, ok := r.keys[n]; ok {
			byPath[path] = k
		}
	}

	keys := make(map[*hierarchy.Node]Key, next.Len())
	nodes := make(map[Key]*hierarchy.Node, next.Len())
	for path, n := range structuralPaths(next) {
		if k, ok := byPath[path]; ok {
			keys[n] = k
			nodes[k] = n
			delete(byPath, path)
			stats.Kept++
		}
	}
	stats.Retired = len(byPath)

	r.keys = keys
	r.nodes = nodes
	// Fresh keys in pre-order for the rest.
	for _, n := range next.Nodes() {
		if _, ok := r.keys[n]; !ok {
			r.KeyOf(n)
			stats.Added++
		}
	}
	return stats
}

// structuralPaths maps each node of t to a path of the form
// "Root#0/A#0/A1#1", where the number is the ordinal among same-named
// siblings so duplicate names stay distinguishable.
func structuralPaths(t *hierarchy.Tree) map[string]*hierarchy.Node {
	out := make(map[string]*hierarchy.Node, t.Len())
	root := t.Root()
	if root == nil {
		return out
	}
	var visit func(n *hierarchy.Node, prefix string, ordinal int)
	visit = func(n *hierarchy.Node, prefix string, ordinal int) {
		path := prefix + "/" + escapeSegment(n.Name) + "#" + strconv.Itoa(ordinal)
		out[path] = n
		seen := make(map[string]int)
		for _, child := range n.Children() {
			visit(child, path, seen[child.Name])
			seen[child.Name]++
		}
	}
	visit(root, "", 0)
	return out
}

func escapeSegment(s string) string {
	if !strings.ContainsAny(s, "/#\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, "/", `\/`, "#", `\#`)
	return r.Replace(s)
}
