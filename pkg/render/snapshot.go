package render

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/viewport"
)

// SnapshotOptions controls snapshot export.
type SnapshotOptions struct {
	Path        string             // Output path; format inferred from extension when Format empty
	Format      string             // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title       string             // Optional title rendered in the header
	Breadcrumbs []string           // Absolute root -> view root
	Frame       Frame              // What to draw, normally a settled frame
	Transform   viewport.Transform // View transform; zero value means fit to canvas
	Width       int
	Height      int
}

// SaveSnapshot renders a static picture of a frame as SVG or PNG.
func SaveSnapshot(opts SnapshotOptions) error {
	if len(opts.Frame.Nodes) == 0 {
		return fmt.Errorf("no nodes to render")
	}

	format, path, err := resolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	opts.Path = path

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	scene := buildScene(opts)
	switch format {
	case "svg":
		return renderSVG(opts.Path, scene)
	case "png":
		return renderPNG(opts.Path, scene)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

func resolveFormat(format, path string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path = path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return "", "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if path == "" {
		return "", "", fmt.Errorf("output path is required")
	}
	return format, path, nil
}

// --- scene -----------------------------------------------------------------

const (
	headerHeight = 72.0
	nodeRadius   = 6.0
	padding      = 24.0
)

type sceneNode struct {
	X, Y      float64
	Label     string
	Collapsed bool
	Opacity   float64
}

type sceneEdge struct {
	X1, Y1, X2, Y2 float64
	Opacity        float64
}

type scene struct {
	Width, Height int
	Title         string
	Subtitle      string
	Nodes         []sceneNode
	Edges         []sceneEdge
}

func buildScene(opts SnapshotOptions) scene {
	width, height := opts.Width, opts.Height
	if width < 640 {
		width = 640
	}
	if height < 480 {
		height = 480
	}

	tr := opts.Transform
	if tr.Scale == 0 {
		tr = fitTransform(opts.Frame, float64(width), float64(height)-headerHeight)
	}
	place := func(p layout.Point) (float64, float64) {
		s := tr.Apply(p)
		return s.X, s.Y + headerHeight
	}

	sc := scene{Width: width, Height: height}
	sc.Title = opts.Title
	if strings.TrimSpace(sc.Title) == "" {
		sc.Title = "Mind Map Snapshot"
	}
	sc.Subtitle = fmt.Sprintf("nodes: %d  view: %s", len(opts.Frame.Nodes), strings.Join(opts.Breadcrumbs, " / "))

	for _, e := range opts.Frame.Edges {
		x1, y1 := place(e.Source)
		x2, y2 := place(e.Target)
		sc.Edges = append(sc.Edges, sceneEdge{x1, y1, x2, y2, e.Opacity})
	}
	for _, n := range opts.Frame.Nodes {
		x, y := place(n.Pos)
		label := ""
		if n.Node != nil {
			label = truncate(n.Node.Name, 32)
		}
		sc.Nodes = append(sc.Nodes, sceneNode{X: x, Y: y, Label: label, Collapsed: n.HasHiddenChildren, Opacity: n.Opacity})
	}
	return sc
}

// fitTransform frames every sprite inside a w x h area with a margin, never
// zooming in past 1.
func fitTransform(f Frame, w, h float64) viewport.Transform {
	pos := make(layout.Positions, len(f.Nodes))
	for _, s := range f.Nodes {
		pos[s.Node] = s.Pos
	}
	lo, hi := layout.Bounds(pos)
	// labels extend to the right of the last column
	spanX := hi.X - lo.X + 160
	spanY := hi.Y - lo.Y
	scale := 1.0
	if spanX > 0 {
		scale = min(scale, (w-2*padding)/spanX)
	}
	if spanY > 0 {
		scale = min(scale, (h-2*padding)/spanY)
	}
	c := viewport.NewController()
	scale = c.Clamp(scale)
	return viewport.Transform{
		TranslateX: padding - lo.X*scale,
		TranslateY: h/2 - (lo.Y+spanY/2)*scale,
		Scale:      scale,
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorCollapsed = color.RGBA{0xb0, 0xc4, 0xde, 0xff} // lightsteelblue
	colorLeaf      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorStroke    = color.RGBA{0x46, 0x82, 0xb4, 0xff} // steelblue
	colorEdge      = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func nodeFill(n sceneNode) color.RGBA {
	if n.Collapsed {
		return colorCollapsed
	}
	return colorLeaf
}

func withAlpha(c color.RGBA, a float64) color.RGBA {
	c.A = uint8(clamp01(a) * 255)
	return c
}

func renderPNG(path string, sc scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(12, 12, float64(sc.Width)-24, headerHeight-20, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(sc.Title, 28, 32, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(sc.Subtitle, 28, 50, 0, 0.5)

	dc.SetLineWidth(1.5)
	for _, e := range sc.Edges {
		dc.SetColor(withAlpha(colorEdge, e.Opacity))
		// horizontal S-curve like d3.linkHorizontal
		mx := (e.X1 + e.X2) / 2
		dc.MoveTo(e.X1, e.Y1)
		dc.CubicTo(mx, e.Y1, mx, e.Y2, e.X2, e.Y2)
		dc.Stroke()
	}

	for _, n := range sc.Nodes {
		dc.SetColor(withAlpha(nodeFill(n), n.Opacity))
		dc.DrawCircle(n.X, n.Y, nodeRadius)
		dc.Fill()
		dc.SetColor(withAlpha(colorStroke, n.Opacity))
		dc.SetLineWidth(1.5)
		dc.DrawCircle(n.X, n.Y, nodeRadius)
		dc.Stroke()

		dc.SetColor(withAlpha(colorText, n.Opacity))
		dc.DrawStringAnchored(n.Label, n.X+nodeRadius+6, n.Y, 0, 0.35)
	}

	return dc.SavePNG(path)
}

func renderSVG(path string, sc scene) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, sc)
}

func renderSVGToWriter(w io.Writer, sc scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(12, 12, sc.Width-24, int(headerHeight-20), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(28, 36, sc.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(28, 54, sc.Subtitle, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	for _, e := range sc.Edges {
		mx := int((e.X1 + e.X2) / 2)
		x1, y1, x2, y2 := int(e.X1), int(e.Y1), int(e.X2), int(e.Y2)
		canvas.Bezier(x1, y1, mx, y1, mx, y2, x2, y2,
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5;opacity:%.2f", css(colorEdge), e.Opacity))
	}

	for _, n := range sc.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Circle(x, y, int(nodeRadius),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.5;opacity:%.2f", css(nodeFill(n)), css(colorStroke), n.Opacity))
		canvas.Text(x+int(nodeRadius)+6, y+4, n.Label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif;opacity:%.2f", css(colorText), n.Opacity))
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
