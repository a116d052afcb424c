// Package reconcile classifies the change between two visible sets into
// entering, persisting and exiting nodes and edges, keyed by identity.
//
// Entering nodes start at the triggering node's previous position and exiting
// nodes shrink into its next position, so an expand grows out of the clicked
// node and a collapse folds back into it.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
)

// ErrStaleReference is matched by *StaleReferenceError.
var ErrStaleReference = errors.New("stale node reference")

// StaleReferenceError means a key no longer resolves to the node it was
// issued for. The core state is inconsistent and must be rebuilt from the
// raw input.
type StaleReferenceError struct {
	Key identity.Key
	Op  string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s: stale reference %s: rebuild required", e.Op, e.Key)
}

func (e *StaleReferenceError) Is(target error) bool { return target == ErrStaleReference }

// Phase is the classification of a node or edge.
type Phase int

const (
	Enter Phase = iota
	Update
	Exit
)

func (p Phase) String() string {
	switch p {
	case Enter:
		return "enter"
	case Update:
		return "update"
	default:
		return "exit"
	}
}

// VisibleNode is one positioned node of a visible set.
type VisibleNode struct {
	Key               identity.Key
	Node              *hierarchy.Node
	Parent            identity.Key // visible parent, identity.None for the view root
	Depth             int
	Position          layout.Point
	HasHiddenChildren bool
}

// NodeChange is a node together with the motion the renderer should animate.
type NodeChange struct {
	VisibleNode
	Phase Phase
	From  layout.Point
	To    layout.Point
}

// EdgeChange is a parent->child link. Its identity is the child's key.
type EdgeChange struct {
	Key    identity.Key
	Parent identity.Key
	Phase  Phase
	// Source and target endpoints at the start and end of the animation.
	FromSource, FromTarget layout.Point
	ToSource, ToTarget     layout.Point
}

// Transition is the result of one reconciliation pass.
type Transition struct {
	Trigger identity.Key
	Enter   []NodeChange
	Update  []NodeChange
	Exit    []NodeChange
	Edges   []EdgeChange
}

// Nodes returns all node changes: updates and enters in next order, then
// exits in previous order.
func (t Transition) Nodes() []NodeChange {
	out := make([]NodeChange, 0, len(t.Enter)+len(t.Update)+len(t.Exit))
	out = append(out, t.Update...)
	out = append(out, t.Enter...)
	out = append(out, t.Exit...)
	return out
}

// Keys returns the keys of one phase, in order.
func (t Transition) Keys(p Phase) []identity.Key {
	var src []NodeChange
	switch p {
	case Enter:
		src = t.Enter
	case Update:
		src = t.Update
	default:
		src = t.Exit
	}
	out := make([]identity.Key, len(src))
	for i, c := range src {
		out[i] = c.Key
	}
	return out
}

// Validate checks that the three node sets are disjoint and free of
// duplicates, and that every edge belongs to a node of the same phase. The
// one exception is an exiting edge into a node that became the view root.
func (t Transition) Validate() error {
	phase := make(map[identity.Key]Phase)
	viewRoot := make(map[identity.Key]bool)
	for _, group := range [][]NodeChange{t.Enter, t.Update, t.Exit} {
		for _, c := range group {
			if prev, ok := phase[c.Key]; ok {
				return fmt.Errorf("key %s classified as both %s and %s", c.Key, prev, c.Phase)
			}
			phase[c.Key] = c.Phase
			if c.Phase == Update && c.Parent == identity.None {
				viewRoot[c.Key] = true
			}
		}
	}
	seen := make(map[identity.Key]bool)
	for _, e := range t.Edges {
		if seen[e.Key] {
			return fmt.Errorf("duplicate edge %s", e.Key)
		}
		seen[e.Key] = true
		p, ok := phase[e.Key]
		if ok && e.Phase == Exit && viewRoot[e.Key] {
			continue
		}
		if !ok || p != e.Phase {
			return fmt.Errorf("edge %s is %s but its target is %s", e.Key, e.Phase, p)
		}
	}
	return nil
}

// Diff classifies next against prev. trigger is the node whose interaction
// caused the change (identity.None when there is none, e.g. initial load).
// Every key in next must resolve to the node it carries; otherwise Diff fails
// with *StaleReferenceError.
func Diff(prev, next []VisibleNode, trigger identity.Key, resolver identity.Resolver) (Transition, error) {
	defer metrics.Timer(metrics.Reconcile)()
	start := time.Now()

	for _, v := range next {
		n, ok := resolver.Resolve(v.Key)
		if !ok || n != v.Node {
			return Transition{}, &StaleReferenceError{Key: v.Key, Op: "reconcile"}
		}
	}

	prevByKey := make(map[identity.Key]VisibleNode, len(prev))
	for _, v := range prev {
		prevByKey[v.Key] = v
	}
	nextByKey := make(map[identity.Key]VisibleNode, len(next))
	for _, v := range next {
		nextByKey[v.Key] = v
	}

	tr := Transition{Trigger: trigger}

	// origin resolves where an entering node grows from.
	origin := func(v VisibleNode) layout.Point {
		if p, ok := prevByKey[trigger]; ok {
			return p.Position
		}
		if p, ok := nextByKey[trigger]; ok {
			return p.Position
		}
		for k := v.Parent; k != identity.None; {
			if p, ok := prevByKey[k]; ok {
				return p.Position
			}
			pv, ok := nextByKey[k]
			if !ok {
				break
			}
			k = pv.Parent
		}
		return v.Position
	}
	// target resolves where an exiting node folds into.
	target := func(v VisibleNode) layout.Point {
		if p, ok := nextByKey[trigger]; ok {
			return p.Position
		}
		if p, ok := prevByKey[trigger]; ok {
			return p.Position
		}
		for k := v.Parent; k != identity.None; {
			if p, ok := nextByKey[k]; ok {
				return p.Position
			}
			pv, ok := prevByKey[k]
			if !ok {
				break
			}
			k = pv.Parent
		}
		return v.Position
	}

	for _, v := range next {
		if p, ok := prevByKey[v.Key]; ok {
			tr.Update = append(tr.Update, NodeChange{VisibleNode: v, Phase: Update, From: p.Position, To: v.Position})
		} else {
			o := origin(v)
			tr.Enter = append(tr.Enter, NodeChange{VisibleNode: v, Phase: Enter, From: o, To: v.Position})
		}
	}
	for _, v := range prev {
		if _, ok := nextByKey[v.Key]; !ok {
			tg := target(v)
			tr.Exit = append(tr.Exit, NodeChange{VisibleNode: v, Phase: Exit, From: v.Position, To: tg})
		}
	}

	// Edges: one per non-root node, identified by the child.
	for _, v := range next {
		if v.Parent == identity.None {
			continue
		}
		parent := nextByKey[v.Parent]
		e := EdgeChange{Key: v.Key, Parent: v.Parent, ToSource: parent.Position, ToTarget: v.Position}
		p, existed := prevByKey[v.Key]
		pp, parentExisted := prevByKey[v.Parent]
		switch {
		case existed && parentExisted && p.Parent == v.Parent:
			e.Phase = Update
			e.FromSource, e.FromTarget = pp.Position, p.Position
		case existed:
			// Node persisted but its link did not, e.g. the previous view root.
			e.Phase = Update
			e.FromSource, e.FromTarget = p.Position, p.Position
		default:
			e.Phase = Enter
			o := origin(v)
			e.FromSource, e.FromTarget = o, o
		}
		tr.Edges = append(tr.Edges, e)
	}
	for _, v := range prev {
		if v.Parent == identity.None {
			continue
		}
		src := v.Position
		if pp, ok := prevByKey[v.Parent]; ok {
			src = pp.Position
		}
		nv, stays := nextByKey[v.Key]
		switch {
		case !stays:
			tg := target(v)
			tr.Edges = append(tr.Edges, EdgeChange{
				Key: v.Key, Parent: v.Parent, Phase: Exit,
				FromSource: src, FromTarget: v.Position,
				ToSource: tg, ToTarget: tg,
			})
		case nv.Parent == identity.None:
			// The node became the view root: its link to the old parent
			// folds into it while the parent exits.
			tr.Edges = append(tr.Edges, EdgeChange{
				Key: v.Key, Parent: v.Parent, Phase: Exit,
				FromSource: src, FromTarget: v.Position,
				ToSource: nv.Position, ToTarget: nv.Position,
			})
		}
	}

	debug.Assert(len(tr.Enter)+len(tr.Update) == len(next), "enter and update must cover the next visible set")
	debug.Assert(len(tr.Update)+len(tr.Exit) == len(prev), "update and exit must cover the previous visible set")
	metrics.NodesEntered.Add(len(tr.Enter))
	metrics.NodesUpdated.Add(len(tr.Update))
	metrics.NodesExited.Add(len(tr.Exit))

	debug.LogTiming(fmt.Sprintf("reconcile.Diff enter=%d update=%d exit=%d", len(tr.Enter), len(tr.Update), len(tr.Exit)), time.Since(start))
	return tr, nil
}
