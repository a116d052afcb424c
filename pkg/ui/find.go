package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
)

// findCandidate is a node offered by the finder.
type findCandidate struct {
	Key  identity.Key
	Name string
	Path string
}

// candidates implements fuzzy.Source over node names.
type candidates []findCandidate

func (c candidates) String(i int) string { return c[i].Name }
func (c candidates) Len() int            { return len(c) }

// NodeFinderModel is a fuzzy search popup over the nodes below the view
// root, hidden ones included.
type NodeFinderModel struct {
	all           candidates
	matches       fuzzy.Matches
	input         textinput.Model
	selectedIndex int
	theme         Theme
}

// NewNodeFinderModel collects every node under root.
func NewNodeFinderModel(root *hierarchy.Node, keys *identity.Registry, theme Theme) NodeFinderModel {
	var all candidates
	hierarchy.Walk(root, func(n *hierarchy.Node) bool {
		all = append(all, findCandidate{Key: keys.KeyOf(n), Name: n.Name, Path: hierarchy.PathString(n)})
		return true
	})

	ti := textinput.New()
	ti.Placeholder = "find node..."
	ti.CharLimit = 80
	ti.Width = 30
	ti.Focus()

	m := NodeFinderModel{all: all, input: ti, theme: theme}
	m.filter()
	return m
}

// Update feeds a key to the text input and refilters.
func (m *NodeFinderModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter()
	return cmd
}

// SetQuery replaces the query.
func (m *NodeFinderModel) SetQuery(q string) {
	m.input.SetValue(q)
	m.filter()
}

func (m *NodeFinderModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

func (m *NodeFinderModel) MoveDown() {
	if m.selectedIndex < len(m.matches)-1 {
		m.selectedIndex++
	}
}

// Selected returns the highlighted candidate.
func (m *NodeFinderModel) Selected() (findCandidate, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.matches) {
		return findCandidate{}, false
	}
	return m.all[m.matches[m.selectedIndex].Index], true
}

func (m *NodeFinderModel) filter() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.matches = make(fuzzy.Matches, len(m.all))
		for i, c := range m.all {
			m.matches[i] = fuzzy.Match{Str: c.Name, Index: i}
		}
	} else {
		m.matches = fuzzy.FindFrom(query, m.all)
	}
	if m.selectedIndex >= len(m.matches) {
		m.selectedIndex = len(m.matches) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

// View renders the input and up to height-2 matches.
func (m NodeFinderModel) View(width, height int) string {
	t := m.theme
	var sb strings.Builder
	sb.WriteString(t.PrimaryBold.Render("/ "))
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(t.MutedText.Render(fmt.Sprintf("%d/%d", len(m.matches), len(m.all))))

	rows := max(height-2, 1)
	start := scrollStart(m.selectedIndex, rows, len(m.matches))
	for i := start; i < len(m.matches) && i < start+rows; i++ {
		c := m.all[m.matches[i].Index]
		line := truncate(c.Path, max(width-2, 1))
		sb.WriteString("\n")
		if i == m.selectedIndex {
			sb.WriteString(t.Cursor.Render(padRight(line, width)))
		} else {
			sb.WriteString(line)
		}
	}
	return sb.String()
}
