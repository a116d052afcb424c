package ui

import (
	"strings"

	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
)

// outlineRow is one line of the outline pane.
type outlineRow struct {
	Key    identity.Key
	Name   string
	Depth  int
	Leaf   bool
	Hidden bool // collapsed with children
}

func outlineRows(vis []reconcile.VisibleNode) []outlineRow {
	rows := make([]outlineRow, 0, len(vis))
	for _, v := range vis {
		if v.Node == nil {
			continue
		}
		rows = append(rows, outlineRow{
			Key:    v.Key,
			Name:   v.Node.Name,
			Depth:  v.Depth,
			Leaf:   v.Node.IsLeaf(),
			Hidden: v.HasHiddenChildren,
		})
	}
	return rows
}

// indexOf returns the row showing k, or -1.
func indexOf(rows []outlineRow, k identity.Key) int {
	for i, r := range rows {
		if r.Key == k {
			return i
		}
	}
	return -1
}

// scrollStart keeps the cursor on screen.
func scrollStart(cursor, height, total int) int {
	if height <= 0 || total <= height {
		return 0
	}
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	return min(start, total-height)
}

// renderOutline draws rows as an indented tree with ▾/▸/• indicators.
func renderOutline(t Theme, rows []outlineRow, cursor int, selected identity.Key, width, height int) string {
	if len(rows) == 0 {
		return t.MutedText.Render("(empty)")
	}
	start := scrollStart(cursor, height, len(rows))
	end := min(len(rows), start+height)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := rows[i]
		glyph, gst := t.Indicator(r.Leaf, r.Hidden)
		indent := strings.Repeat("  ", r.Depth)
		name := truncate(r.Name, max(width-len(indent)-3, 1))

		var line string
		switch {
		case i == cursor:
			line = t.Cursor.Render(padRight(indent+glyph+" "+name, width))
		case r.Key == selected:
			line = indent + gst.Render(glyph) + " " + t.PrimaryBold.Render(name)
		default:
			line = indent + gst.Render(glyph) + " " + name
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
