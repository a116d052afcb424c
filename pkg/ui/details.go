package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/mindwork/pkg/collapse"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/session"
)

// detailsMarkdown describes the selected node: its name, path, collapse
// state and attribute table.
func detailsMarkdown(s *session.Session) string {
	if s == nil {
		return "_No map loaded._"
	}
	n := s.Selected()
	if n == nil {
		return "_Nothing selected._ Press **enter** on a node."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", n.Name)
	fmt.Fprintf(&sb, "`%s`\n\n", hierarchy.PathString(n))

	k := s.SelectedKey()
	switch kind := s.Collapse().Entry(k).Kind; kind {
	case collapse.Leaf:
		sb.WriteString("*leaf*\n\n")
	default:
		fmt.Fprintf(&sb, "*%s*, %d children\n\n", kind, len(n.Children()))
	}

	attrs := session.Attributes(n)
	if len(attrs) == 0 {
		sb.WriteString("_No attributes._\n")
		return sb.String()
	}
	sb.WriteString("| Attribute | Value |\n|---|---|\n")
	for _, a := range attrs {
		fmt.Fprintf(&sb, "| %s | %s |\n", escapeMarkdownCell(a.Key), escapeMarkdownCell(a.Value))
	}
	return sb.String()
}

func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders md through r, falling back to the raw text.
func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
