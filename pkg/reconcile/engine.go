package reconcile

import (
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/layout"
)

// Engine remembers the previously reconciled visible set so callers only hand
// it the next one.
type Engine struct {
	resolver identity.Resolver
	prev     []VisibleNode
	// exiting holds the nodes still fading out after the last pass. They only
	// take part in the next pass when an interrupt reports them as drawn.
	exiting []VisibleNode
	// displayed overrides previous positions for the next pass only.
	displayed map[identity.Key]layout.Point
}

// NewEngine returns an engine with an empty previous set; the first
// Reconcile classifies everything as entering.
func NewEngine(resolver identity.Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Reconcile diffs next against the previous set and, on success, makes next
// the new previous set. On failure the previous set is left untouched. Any
// interrupt snapshot is consumed either way.
func (e *Engine) Reconcile(next []VisibleNode, trigger identity.Key) (Transition, error) {
	prev := e.displayedPrev()
	e.displayed = nil

	tr, err := Diff(prev, next, trigger, e.resolver)
	if err != nil {
		return Transition{}, err
	}
	e.prev = append(e.prev[:0:0], next...)
	e.exiting = e.exiting[:0:0]
	for _, c := range tr.Exit {
		e.exiting = append(e.exiting, c.VisibleNode)
	}
	return tr, nil
}

// displayedPrev is the previous set as currently drawn. Nodes that were
// still exiting and are reported as drawn join it, so a node brought back
// mid-exit continues from where it is instead of re-entering.
func (e *Engine) displayedPrev() []VisibleNode {
	if len(e.displayed) == 0 {
		return e.prev
	}
	prev := make([]VisibleNode, len(e.prev), len(e.prev)+len(e.exiting))
	copy(prev, e.prev)
	for i := range prev {
		if p, ok := e.displayed[prev[i].Key]; ok {
			prev[i].Position = p
		}
	}
	for _, v := range e.exiting {
		if p, ok := e.displayed[v.Key]; ok {
			v.Position = p
			prev = append(prev, v)
		}
	}
	return prev
}

// Interrupt records where nodes are currently drawn, exiting ones included.
// The next Reconcile animates from these positions.
func (e *Engine) Interrupt(displayed map[identity.Key]layout.Point) {
	e.displayed = displayed
}

// Settle drops a pending interrupt snapshot, for operations that end without
// reconciling.
func (e *Engine) Settle() {
	e.displayed = nil
}

// Previous returns the last reconciled visible set.
func (e *Engine) Previous() []VisibleNode {
	return e.prev
}

// Position returns the last reconciled position of k.
func (e *Engine) Position(k identity.Key) (layout.Point, bool) {
	for _, v := range e.prev {
		if v.Key == k {
			return v.Position, true
		}
	}
	return layout.Point{}, false
}

// Reset forgets the previous set, e.g. after a rebuild.
func (e *Engine) Reset(resolver identity.Resolver) {
	e.resolver = resolver
	e.prev = nil
	e.exiting = nil
	e.displayed = nil
}
