// Package layout assigns positions to a visible tree.
//
// Tidy is a Reingold-Tilford style tidy tree in the manner of d3.tree: the
// breadth axis is fitted to the available height, the depth axis grows by a
// fixed spacing per level, siblings are one unit apart and cousins two.
// Layout is a pure function of its input.
package layout

import (
	"math"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
)

// DefaultDepthSpacing is the horizontal distance between levels.
const DefaultDepthSpacing = 180

// Point is a position in layout space. X grows with depth, Y along the
// breadth axis.
type Point struct {
	X, Y float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Lerp interpolates between p and q; t=0 is p, t=1 is q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Size is the layout budget.
type Size struct {
	Width, Height float64
}

// Tidy lays out a visible tree.
type Tidy struct {
	Size         Size
	DepthSpacing float64
	// Separation returns the gap between adjacent nodes a and b. Nil means
	// 1 for siblings and 2 for cousins.
	Separation func(a, b *hierarchy.Node) float64
}

// Positions maps each visible node to its point.
type Positions map[*hierarchy.Node]Point

type tnode struct {
	node     *hierarchy.Node
	parent   *tnode
	children []*tnode
	depth    int
	index    int // position among siblings

	prelim, mod, change, shift float64
	thread                     *tnode
	ancestor                   *tnode
	defaultAncestor            *tnode // held on the parent for its children
}

// Layout returns the position of every node in visible. visible must be a
// pre-order traversal whose first element is the view root, as produced by
// hierarchy.VisibleSubtree.
func (t Tidy) Layout(visible []hierarchy.VisibleNode) Positions {
	defer metrics.Timer(metrics.LayoutCompute)()

	out := make(Positions, len(visible))
	if len(visible) == 0 {
		return out
	}

	byNode := make(map[*hierarchy.Node]*tnode, len(visible))
	var root *tnode
	for _, v := range visible {
		tn := &tnode{node: v.Node, depth: v.Depth}
		tn.ancestor = tn
		byNode[v.Node] = tn
		if v.Parent == nil || root == nil {
			if root == nil {
				root = tn
			}
			continue
		}
		p := byNode[v.Parent]
		tn.parent = p
		tn.index = len(p.children)
		p.children = append(p.children, tn)
	}

	sep := t.Separation
	if sep == nil {
		sep = defaultSeparation
	}

	t.firstWalk(root, sep)
	t.secondWalk(root, -root.prelim)

	// Fit the breadth axis into Height, like d3.tree().size([h, w]).
	left, right := root, root
	eachNode(root, func(n *tnode) {
		if n.prelim < left.prelim {
			left = n
		}
		if n.prelim > right.prelim {
			right = n
		}
	})

	spacing := t.DepthSpacing
	if spacing == 0 {
		spacing = DefaultDepthSpacing
	}
	height := t.Size.Height
	s := 1.0
	if left != right {
		s = sep(left.node, right.node) / 2
	}
	tx := s - left.prelim
	kx := height / (right.prelim + s + tx)
	eachNode(root, func(n *tnode) {
		out[n.node] = Point{X: float64(n.depth) * spacing, Y: (n.prelim + tx) * kx}
	})
	return out
}

func defaultSeparation(a, b *hierarchy.Node) float64 {
	if a.Parent() == b.Parent() {
		return 1
	}
	return 2
}

func eachNode(n *tnode, fn func(*tnode)) {
	fn(n)
	for _, c := range n.children {
		eachNode(c, fn)
	}
}

// firstWalk computes preliminary breadth positions bottom-up.
func (t Tidy) firstWalk(v *tnode, sep func(a, b *hierarchy.Node) float64) {
	for _, c := range v.children {
		t.firstWalk(c, sep)
	}
	var w *tnode
	if v.parent != nil && v.index > 0 {
		w = v.parent.children[v.index-1]
	}
	if len(v.children) > 0 {
		executeShifts(v)
		mid := (v.children[0].prelim + v.children[len(v.children)-1].prelim) / 2
		if w != nil {
			v.prelim = w.prelim + sep(v.node, w.node)
			v.mod = v.prelim - mid
		} else {
			v.prelim = mid
		}
	} else if w != nil {
		v.prelim = w.prelim + sep(v.node, w.node)
	}
	if v.parent != nil {
		da := v.parent.defaultAncestor
		if da == nil {
			da = v.parent.children[0]
		}
		v.parent.defaultAncestor = apportion(v, w, da, sep)
	}
}

func (t Tidy) secondWalk(v *tnode, m float64) {
	v.prelim += m
	for _, c := range v.children {
		t.secondWalk(c, m+v.mod)
	}
}

func apportion(v, w, ancestor *tnode, sep func(a, b *hierarchy.Node) float64) *tnode {
	if w == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := w
	vom := vip.parent.children[0]
	sip, sop := vip.mod, vop.mod
	sim, som := vim.mod, vom.mod

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.ancestor = v
		shift := vim.prelim + sim - vip.prelim - sip + sep(vim.node, vip.node)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.mod
		sip += vip.mod
		som += vom.mod
		sop += vop.mod
	}
	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.mod += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.mod += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *tnode) *tnode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *tnode) *tnode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.thread
}

func moveSubtree(wm, wp *tnode, shift float64) {
	change := shift / float64(wp.index-wm.index)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.prelim += shift
	wp.mod += shift
}

func executeShifts(v *tnode) {
	shift, change := 0.0, 0.0
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.prelim += shift
		w.mod += shift
		change += w.change
		shift += w.shift + change
	}
}

func nextAncestor(vim, v, ancestor *tnode) *tnode {
	if vim.ancestor.parent == v.parent {
		return vim.ancestor
	}
	return ancestor
}

// Bounds returns the bounding box of a set of positions.
func Bounds(pos Positions) (min, max Point) {
	if len(pos) == 0 {
		return Point{}, Point{}
	}
	min = Point{math.Inf(1), math.Inf(1)}
	max = Point{math.Inf(-1), math.Inf(-1)}
	for _, p := range pos {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}
