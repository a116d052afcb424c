// Package hierarchy turns raw nested name/children records into a typed tree
// with parent back-references, and derives the visible subset of that tree
// under a collapse policy.
//
// Input shape (JSON or YAML):
//
//	{
//	  "name": "Root",
//	  "attributes": {"owner": "ops"},
//	  "children": [ {"name": "A", "children": [{"name": "A1"}]}, {"name": "B"} ]
//	}
//
// Unrecognized scalar fields are folded into the node's attributes.
package hierarchy

import (
	"strings"
)

// MaxDepth bounds recursion while building a tree from raw input.
const MaxDepth = 10000

// Node is one record of the hierarchy. A node exclusively owns its children.
type Node struct {
	Name       string
	Attributes map[string]string

	children    []*Node
	hasChildren bool  // children field was present in the input (even if empty)
	parent      *Node // non-owning back-reference
	depth       int
	index       int // arena index, pre-order
}

// Children returns the node's children in source order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// IsLeaf reports whether the node has no children to show or hide.
func (n *Node) IsLeaf() bool {
	return n == nil || len(n.children) == 0
}

// HasChildrenField reports whether the input declared a children list,
// even an empty one.
func (n *Node) HasChildrenField() bool {
	return n != nil && n.hasChildren
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

// Depth is the distance from the absolute root (0 for the root).
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	return n.depth
}

// Index is the node's position in its tree's pre-order arena.
func (n *Node) Index() int {
	if n == nil {
		return -1
	}
	return n.index
}

// Tree is a built hierarchy. Nodes are kept in a pre-order arena so callers
// can address them by index.
type Tree struct {
	root  *Node
	nodes []*Node
}

// Root returns the absolute root.
func (t *Tree) Root() *Node {
	if t == nil {
		return nil
	}
	return t.root
}

// Nodes returns every node in pre-order.
func (t *Tree) Nodes() []*Node {
	if t == nil {
		return nil
	}
	return t.nodes
}

// Len returns the total number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// At returns the node at the given arena index, or nil if out of range.
func (t *Tree) At(i int) *Node {
	if t == nil || i < 0 || i >= len(t.nodes) {
		return nil
	}
	return t.nodes[i]
}

// Contains reports whether n belongs to this tree.
func (t *Tree) Contains(n *Node) bool {
	if t == nil || n == nil {
		return false
	}
	return n.index >= 0 && n.index < len(t.nodes) && t.nodes[n.index] == n
}

// Path returns the nodes from the absolute root down to n, inclusive.
func Path(n *Node) []*Node {
	var path []*Node
	for cur := n; cur != nil; cur = cur.parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathString renders the root→n path as "Root / A / A1".
func PathString(n *Node) string {
	path := Path(n)
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.Name
	}
	return strings.Join(names, " / ")
}

// IsAncestor reports whether a is a strict ancestor of n.
func IsAncestor(a, n *Node) bool {
	if a == nil || n == nil {
		return false
	}
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur == a {
			return true
		}
	}
	return false
}

// Walk visits root and all descendants in pre-order, ignoring collapse state.
// Returning false from fn stops descent into that node's children.
func Walk(root *Node, fn func(*Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, child := range root.children {
		Walk(child, fn)
	}
}

// FindParent locates the parent of target by walking the full hierarchy from
// root. It does not rely on back-references, so it also works for callers that
// only hold the raw structure. Returns nil when target is root or not found.
func FindParent(root, target *Node) *Node {
	if root == nil || target == nil {
		return nil
	}
	for _, child := range root.children {
		if child == target {
			return root
		}
		if p := FindParent(child, target); p != nil {
			return p
		}
	}
	return nil
}
