package hierarchy

import (
	"iter"
)

// ChildVisibility answers whether a node's children are currently hidden.
// The collapse store implements it; a nil ChildVisibility shows everything.
type ChildVisibility interface {
	IsCollapsed(n *Node) bool
}

// VisibleNode is one entry of the visible subset of a tree. It is derived on
// every pass and never stored.
type VisibleNode struct {
	Node *Node // back-reference, not owning
	// Parent is the visible parent, nil for the view root.
	Parent *Node
	// Depth is relative to the view root.
	Depth int
	// HasHiddenChildren is true when the node has children that a collapse
	// currently hides.
	HasHiddenChildren bool
}

// VisibleSubtree yields the nodes reachable from root without descending into
// any node that state reports collapsed, in pre-order. Sibling order is the
// source order. The traversal is lazy and has no side effects.
func VisibleSubtree(root *Node, state ChildVisibility) iter.Seq[VisibleNode] {
	return func(yield func(VisibleNode) bool) {
		if root == nil {
			return
		}
		type frame struct {
			node   *Node
			parent *Node
			depth  int
		}
		stack := []frame{{node: root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			collapsed := state != nil && !f.node.IsLeaf() && state.IsCollapsed(f.node)
			if !yield(VisibleNode{
				Node:              f.node,
				Parent:            f.parent,
				Depth:             f.depth,
				HasHiddenChildren: collapsed,
			}) {
				return
			}
			if collapsed {
				continue
			}
			children := f.node.children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: children[i], parent: f.node, depth: f.depth + 1})
			}
		}
	}
}

// CollectVisible drains VisibleSubtree into a slice.
func CollectVisible(root *Node, state ChildVisibility) []VisibleNode {
	var out []VisibleNode
	for v := range VisibleSubtree(root, state) {
		out = append(out, v)
	}
	return out
}
