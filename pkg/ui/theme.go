package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/mindwork/pkg/render"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Nodes
	Expanded  lipgloss.AdaptiveColor
	Collapsed lipgloss.AdaptiveColor
	Leaf      lipgloss.AdaptiveColor
	Edge      lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed styles, created once instead of per frame
	MutedText     lipgloss.Style
	InfoText      lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
	ErrorText     lipgloss.Style
	Cursor        lipgloss.Style
	Favorite      lipgloss.Style

	cells map[render.CellKind]lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Expanded:  lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		Collapsed: lipgloss.AdaptiveColor{Light: "#2F5F8F", Dark: "#B0C4DE"}, // Lightsteelblue
		Leaf:      lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"},
		Edge:      lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#6272A4"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Foreground(t.Primary).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.InfoText = r.NewStyle().Foreground(ColorInfo)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.ErrorText = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.Cursor = r.NewStyle().Background(ColorBgHighlight).Bold(true)
	t.Favorite = r.NewStyle().Foreground(ThemeFg("#FFD700"))

	t.cells = map[render.CellKind]lipgloss.Style{
		render.CellEdge:          r.NewStyle().Foreground(t.Edge),
		render.CellEdgeFaint:     r.NewStyle().Foreground(t.Edge).Faint(true),
		render.CellNode:          r.NewStyle().Foreground(t.Expanded),
		render.CellCollapsedNode: r.NewStyle().Foreground(t.Collapsed).Bold(true),
		render.CellLabel:         r.NewStyle().Foreground(t.Leaf),
		render.CellSelected:      t.Selected,
	}
	return t
}

// CanvasStyler colors rasterized map cells.
func (t Theme) CanvasStyler() render.Styler {
	return func(kind render.CellKind, text string) string {
		st, ok := t.cells[kind]
		if !ok {
			return text
		}
		return st.Render(text)
	}
}

// Indicator returns the outline glyph of a node and its style.
func (t Theme) Indicator(leaf, hidden bool) (string, lipgloss.Style) {
	switch {
	case leaf:
		return "•", t.MutedText
	case hidden:
		return "▸", t.Renderer.NewStyle().Foreground(t.Collapsed).Bold(true)
	default:
		return "▾", t.Renderer.NewStyle().Foreground(t.Expanded)
	}
}
