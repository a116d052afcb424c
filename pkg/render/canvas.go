package render

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/viewport"
)

// CellKind tells the styler what a terminal cell shows.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellEdge
	CellEdgeFaint
	CellNode
	CellCollapsedNode
	CellLabel
	CellSelected
)

// Cell is one terminal character cell. Ch 0 marks the trailing half of a
// wide rune.
type Cell struct {
	Ch   rune
	Kind CellKind
	Key  identity.Key
}

// Grid is a rasterized frame.
type Grid struct {
	Width, Height int
	cells         []Cell
}

// At returns the cell at column x, row y.
func (g *Grid) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return Cell{}
	}
	return g.cells[y*g.Width+x]
}

func (g *Grid) set(x, y int, c Cell) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.cells[y*g.Width+x] = c
}

// Styler colors a run of cells of one kind.
type Styler func(kind CellKind, text string) string

// Lines renders the grid, grouping runs of equal kind through style. A nil
// style returns plain text.
func (g *Grid) Lines(style Styler) []string {
	out := make([]string, g.Height)
	var sb, run strings.Builder
	for y := 0; y < g.Height; y++ {
		sb.Reset()
		run.Reset()
		kind := CellEmpty
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if style == nil {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(style(kind, run.String()))
			}
			run.Reset()
		}
		for x := 0; x < g.Width; x++ {
			c := g.cells[y*g.Width+x]
			if c.Ch == 0 && c.Kind != CellEmpty {
				continue // second half of a wide rune
			}
			if c.Kind != kind {
				flush()
				kind = c.Kind
			}
			ch := c.Ch
			if ch == 0 {
				ch = ' '
			}
			run.WriteRune(ch)
		}
		flush()
		out[y] = sb.String()
	}
	return out
}

// String renders the grid without styling.
func (g *Grid) String() string {
	return strings.Join(g.Lines(nil), "\n")
}

// KeyAt returns the node key drawn at (x, y), if any. Labels count.
func (g *Grid) KeyAt(x, y int) (identity.Key, bool) {
	c := g.At(x, y)
	if c.Key == identity.None {
		return identity.None, false
	}
	return c.Key, true
}

// Canvas rasterizes frames into a terminal grid. Screen space (after the view
// transform) is measured in pixels; one cell covers CellWidth x CellHeight.
type Canvas struct {
	Width, Height int // in cells
	CellWidth     float64
	CellHeight    float64
	LabelWidth    int // max label width in cells
}

// NewCanvas returns a canvas of w x h cells with 8x16 pixel cells.
func NewCanvas(w, h int) Canvas {
	return Canvas{Width: w, Height: h, CellWidth: 8, CellHeight: 16, LabelWidth: 24}
}

// PixelSize returns the canvas size in screen pixels.
func (c Canvas) PixelSize() (float64, float64) {
	return float64(c.Width) * c.cellW(), float64(c.Height) * c.cellH()
}

func (c Canvas) cellW() float64 {
	if c.CellWidth <= 0 {
		return 8
	}
	return c.CellWidth
}

func (c Canvas) cellH() float64 {
	if c.CellHeight <= 0 {
		return 16
	}
	return c.CellHeight
}

func (c Canvas) toCell(x, y float64) (int, int) {
	return int(math.Round(x / c.cellW())), int(math.Round(y / c.cellH()))
}

// Draw rasterizes f under tr. The selected node is highlighted.
func (c Canvas) Draw(f Frame, tr viewport.Transform, selected identity.Key) *Grid {
	w, h := max(c.Width, 0), max(c.Height, 0)
	g := &Grid{Width: w, Height: h, cells: make([]Cell, w*h)}

	for _, e := range f.Edges {
		if e.Opacity < 0.2 {
			continue
		}
		kind := CellEdge
		if e.Opacity < 0.7 {
			kind = CellEdgeFaint
		}
		s := tr.Apply(e.Source)
		t := tr.Apply(e.Target)
		x1, y1 := c.toCell(s.X, s.Y)
		x2, y2 := c.toCell(t.X, t.Y)
		drawElbow(g, x1, y1, x2, y2, kind)
	}

	labelW := c.LabelWidth
	if labelW <= 0 {
		labelW = 24
	}
	for _, s := range f.Nodes {
		if s.Opacity < 0.2 {
			continue
		}
		p := tr.Apply(s.Pos)
		x, y := c.toCell(p.X, p.Y)

		glyph, kind := '○', CellNode
		switch {
		case s.HasHiddenChildren:
			glyph, kind = '◉', CellCollapsedNode
		case s.Node != nil && !s.Node.IsLeaf():
			glyph = '●'
		}
		if s.Key == selected && selected != identity.None {
			kind = CellSelected
		}
		g.set(x, y, Cell{Ch: glyph, Kind: kind, Key: s.Key})

		if s.Node == nil {
			continue
		}
		labelKind := CellLabel
		if kind == CellSelected {
			labelKind = CellSelected
		}
		col := x + 2
		g.set(x+1, y, Cell{Ch: ' ', Kind: labelKind, Key: s.Key})
		for _, r := range runewidth.Truncate(s.Node.Name, labelW, "…") {
			rw := runewidth.RuneWidth(r)
			if rw == 0 {
				continue
			}
			g.set(col, y, Cell{Ch: r, Kind: labelKind, Key: s.Key})
			if rw == 2 {
				g.set(col+1, y, Cell{Ch: 0, Kind: labelKind, Key: s.Key})
			}
			col += rw
		}
	}
	return g
}

// drawElbow connects (x1,y1) to (x2,y2) with a horizontal-vertical-horizontal
// path, the terminal analogue of a horizontal link curve.
func drawElbow(g *Grid, x1, y1, x2, y2 int, kind CellKind) {
	if x2 < x1 {
		x1, y1, x2, y2 = x2, y2, x1, y1
	}
	mid := (x1 + x2) / 2
	line := func(x, y int, ch rune) {
		if g.At(x, y).Kind == CellEmpty || g.At(x, y).Kind == CellEdge || g.At(x, y).Kind == CellEdgeFaint {
			g.set(x, y, Cell{Ch: ch, Kind: kind})
		}
	}
	for x := x1 + 1; x < mid; x++ {
		line(x, y1, '─')
	}
	switch {
	case y1 == y2:
		line(mid, y1, '─')
	case y2 > y1:
		line(mid, y1, '┐')
		for y := y1 + 1; y < y2; y++ {
			line(mid, y, '│')
		}
		line(mid, y2, '└')
	default:
		line(mid, y1, '┘')
		for y := y2 + 1; y < y1; y++ {
			line(mid, y, '│')
		}
		line(mid, y2, '┌')
	}
	for x := mid + 1; x < x2; x++ {
		line(x, y2, '─')
	}
}
