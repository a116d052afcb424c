package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MapDelegate renders mind map items in the sidebar list
type MapDelegate struct {
	Theme Theme
}

func (d MapDelegate) Height() int {
	return 1
}

func (d MapDelegate) Spacing() int {
	return 0
}

func (d MapDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d MapDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(MapItem)
	if !ok {
		return
	}

	t := d.Theme
	width := m.Width()
	if width <= 0 {
		width = 24
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width = width - 1

	isSelected := index == m.Index()

	// Layout: [sel 2] [fav 2] [title...] [changed 2]
	var left strings.Builder
	if isSelected {
		left.WriteString(t.PrimaryBold.Render("▸ "))
	} else {
		left.WriteString("  ")
	}
	if i.Favorite > 0 {
		left.WriteString(t.Favorite.Render(fmt.Sprintf("%d", i.Favorite)))
		left.WriteString(" ")
	} else {
		left.WriteString("  ")
	}

	right := ""
	if i.Changed {
		right = t.InfoText.Render(" ~")
	}

	titleWidth := width - lipgloss.Width(left.String()) - lipgloss.Width(right)
	if titleWidth < 3 {
		titleWidth = 3
	}
	title := padRight(truncate(i.Title(), titleWidth), titleWidth)

	titleStyle := t.Renderer.NewStyle()
	if isSelected {
		titleStyle = titleStyle.Foreground(t.Primary).Bold(true)
	} else {
		titleStyle = titleStyle.Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E8E8E8"})
	}

	row := left.String() + titleStyle.Render(title) + right
	rowStyle := t.Renderer.NewStyle().Width(width).MaxWidth(width)
	if isSelected {
		row = rowStyle.Background(t.Highlight).Render(row)
	} else {
		row = rowStyle.Render(row)
	}

	fmt.Fprint(w, row)
}
