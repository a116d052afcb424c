// Package render turns reconciliation transitions into drawable frames and
// paints them: animated sprites for the terminal, SVG and PNG snapshots.
package render

import (
	"math"
	"time"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
)

// DefaultDuration is the length of one transition.
const DefaultDuration = 750 * time.Millisecond

// Sprite is one node as drawn at some instant.
type Sprite struct {
	Key               identity.Key
	Node              *hierarchy.Node
	Pos               layout.Point
	Opacity           float64
	Phase             reconcile.Phase
	HasHiddenChildren bool
}

// EdgeSprite is one link as drawn at some instant.
type EdgeSprite struct {
	Key            identity.Key
	Source, Target layout.Point
	Opacity        float64
}

// Frame is everything drawn at one instant, edges beneath nodes.
type Frame struct {
	Nodes []Sprite
	Edges []EdgeSprite
}

// EaseCubicInOut is d3's default transition easing.
func EaseCubicInOut(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Interpolate returns the frame at progress in [0,1] through tr. Entering
// nodes fade in while moving from their origin, exiting ones fade out into
// their target. At progress 1 exiting sprites are dropped.
func Interpolate(tr reconcile.Transition, progress float64) Frame {
	p := clamp01(progress)
	e := EaseCubicInOut(p)

	f := Frame{
		Nodes: make([]Sprite, 0, len(tr.Enter)+len(tr.Update)+len(tr.Exit)),
		Edges: make([]EdgeSprite, 0, len(tr.Edges)),
	}
	for _, c := range tr.Nodes() {
		if c.Phase == reconcile.Exit && p >= 1 {
			continue
		}
		f.Nodes = append(f.Nodes, Sprite{
			Key:               c.Key,
			Node:              c.Node,
			Pos:               c.From.Lerp(c.To, e),
			Opacity:           opacity(c.Phase, e),
			Phase:             c.Phase,
			HasHiddenChildren: c.HasHiddenChildren,
		})
	}
	for _, ed := range tr.Edges {
		if ed.Phase == reconcile.Exit && p >= 1 {
			continue
		}
		f.Edges = append(f.Edges, EdgeSprite{
			Key:     ed.Key,
			Source:  ed.FromSource.Lerp(ed.ToSource, e),
			Target:  ed.FromTarget.Lerp(ed.ToTarget, e),
			Opacity: opacity(ed.Phase, e),
		})
	}
	return f
}

func opacity(phase reconcile.Phase, e float64) float64 {
	switch phase {
	case reconcile.Enter:
		return e
	case reconcile.Exit:
		return 1 - e
	default:
		return 1
	}
}

// Positions returns where each sprite is currently drawn, exiting ones
// included, for restarting an interrupted transition from the screen state.
func (f Frame) Positions() map[identity.Key]layout.Point {
	out := make(map[identity.Key]layout.Point, len(f.Nodes))
	for _, s := range f.Nodes {
		out[s.Key] = s.Pos
	}
	return out
}

// Clock maps wall time onto transition progress.
type Clock struct {
	Duration time.Duration
	start    time.Time
	running  bool
}

// Start (re)starts the clock at now.
func (c *Clock) Start(now time.Time) {
	c.start = now
	c.running = true
}

// Running reports whether a transition is in flight.
func (c *Clock) Running() bool { return c.running }

// Progress returns the progress at now, in [0,1]. A stopped clock reports 1.
func (c *Clock) Progress(now time.Time) float64 {
	if !c.running {
		return 1
	}
	d := c.Duration
	if d <= 0 {
		return 1
	}
	return clamp01(float64(now.Sub(c.start)) / float64(d))
}

// Tick advances the clock to now and reports the progress; the clock stops
// once the transition completes.
func (c *Clock) Tick(now time.Time) float64 {
	p := c.Progress(now)
	if p >= 1 {
		c.running = false
	}
	return p
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
