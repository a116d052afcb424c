// Package viewport tracks the 2D view transform (translate + uniform scale)
// applied on top of layout space. It knows nothing about the tree.
package viewport

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/vanderheijden86/mindwork/pkg/layout"
)

const (
	DefaultMinScale     = 0.1
	DefaultMaxScale     = 8
	DefaultInitialScale = 0.8
)

// Transform maps layout space to screen space: screen = scale*p + translate.
type Transform struct {
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
	Scale      float64 `json:"scale"`
}

// Identity is the transform that changes nothing.
var Identity = Transform{Scale: 1}

func (t Transform) String() string {
	return fmt.Sprintf("translate(%.1f,%.1f) scale(%.3f)", t.TranslateX, t.TranslateY, t.Scale)
}

// Matrix returns the 3x3 homogeneous matrix of t.
func (t Transform) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.Scale, 0, t.TranslateX,
		0, t.Scale, t.TranslateY,
		0, 0, 1,
	})
}

func fromMatrix(m mat.Matrix) Transform {
	return Transform{TranslateX: m.At(0, 2), TranslateY: m.At(1, 2), Scale: m.At(0, 0)}
}

// Apply maps a layout point to screen space.
func (t Transform) Apply(p layout.Point) layout.Point {
	var out mat.VecDense
	out.MulVec(t.Matrix(), mat.NewVecDense(3, []float64{p.X, p.Y, 1}))
	return layout.Point{X: out.AtVec(0), Y: out.AtVec(1)}
}

// Invert maps a screen point back to layout space. A zero scale has no
// inverse and returns the point unchanged.
func (t Transform) Invert(p layout.Point) layout.Point {
	if t.Scale == 0 {
		return p
	}
	var inv mat.Dense
	if err := inv.Inverse(t.Matrix()); err != nil {
		return p
	}
	var out mat.VecDense
	out.MulVec(&inv, mat.NewVecDense(3, []float64{p.X, p.Y, 1}))
	return layout.Point{X: out.AtVec(0), Y: out.AtVec(1)}
}

// GestureKind distinguishes pan from zoom.
type GestureKind int

const (
	GesturePan GestureKind = iota
	GestureZoom
)

// Gesture is one user pan or zoom step, in screen units.
type Gesture struct {
	Kind   GestureKind
	DX, DY float64
	Factor float64
	Anchor layout.Point // screen point kept fixed while zooming
}

// Pan moves the view by (dx, dy) screen units.
func Pan(dx, dy float64) Gesture {
	return Gesture{Kind: GesturePan, DX: dx, DY: dy}
}

// Zoom scales the view by factor around anchor.
func Zoom(factor float64, anchor layout.Point) Gesture {
	return Gesture{Kind: GestureZoom, Factor: factor, Anchor: anchor}
}

// Controller composes gestures into transforms, clamping the scale.
type Controller struct {
	MinScale float64
	MaxScale float64
}

// NewController returns a controller with the default [0.1, 8] extent.
func NewController() Controller {
	return Controller{MinScale: DefaultMinScale, MaxScale: DefaultMaxScale}
}

// Clamp limits s to the controller's scale extent.
func (c Controller) Clamp(s float64) float64 {
	lo, hi := c.MinScale, c.MaxScale
	if lo <= 0 {
		lo = DefaultMinScale
	}
	if hi <= 0 || hi < lo {
		hi = math.Max(lo, DefaultMaxScale)
	}
	return math.Min(hi, math.Max(lo, s))
}

// ApplyGesture returns t with g applied. t itself is not modified.
func (c Controller) ApplyGesture(t Transform, g Gesture) Transform {
	m := t.Matrix()
	var step *mat.Dense
	switch g.Kind {
	case GesturePan:
		step = translation(g.DX, g.DY)
	case GestureZoom:
		if g.Factor <= 0 || t.Scale == 0 {
			return t
		}
		next := c.Clamp(t.Scale * g.Factor)
		f := next / t.Scale
		// translate(anchor) . scale(f) . translate(-anchor)
		var scaled mat.Dense
		scaled.Mul(translation(g.Anchor.X, g.Anchor.Y), scaling(f))
		step = &mat.Dense{}
		step.Mul(&scaled, translation(-g.Anchor.X, -g.Anchor.Y))
	default:
		return t
	}
	var out mat.Dense
	out.Mul(step, m)
	r := fromMatrix(&out)
	if g.Kind == GestureZoom {
		r.Scale = c.Clamp(t.Scale * g.Factor)
	}
	return r
}

// CenterOn frames position at the middle of a viewport of the given size at
// the given scale (clamped).
func (c Controller) CenterOn(position layout.Point, scale float64, size layout.Size) Transform {
	s := c.Clamp(scale)
	return Transform{
		TranslateX: size.Width/2 - s*position.X,
		TranslateY: size.Height/2 - s*position.Y,
		Scale:      s,
	}
}

// Initial is the framing of a freshly loaded tree: the layout origin at the
// viewport center, scaled to DefaultInitialScale.
func (c Controller) Initial(size layout.Size) Transform {
	return Transform{TranslateX: size.Width / 2, TranslateY: size.Height / 2, Scale: c.Clamp(DefaultInitialScale)}
}

func translation(dx, dy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	})
}

func scaling(f float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		f, 0, 0,
		0, f, 0,
		0, 0, 1,
	})
}
