package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/mindwork/internal/datasource"
	"github.com/vanderheijden86/mindwork/pkg/config"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
)

func testMaps() []datasource.MindMap {
	return []datasource.MindMap{
		{ID: "m1", Title: "First", Data: map[string]any{
			"name": "Root",
			"children": []any{
				map[string]any{"name": "A", "children": []any{
					map[string]any{"name": "A1", "cost": "3", "owner": "kim"},
				}},
				map[string]any{"name": "B"},
			},
		}},
		{ID: "m2", Title: "Second", Data: map[string]any{"name": "Other"}},
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(testMaps(), config.DefaultConfig())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m = updated.(Model)
	if m.Session() == nil {
		t.Fatalf("expected a mounted session, status %q", m.Status())
	}
	return m
}

// finish runs the current animation to its end.
func finish(m Model) Model {
	updated, _ := m.Update(animTickMsg{gen: m.animGen, at: time.Now().Add(time.Hour)})
	return updated.(Model)
}

func visibleNames(m Model) []string {
	var out []string
	for _, v := range m.Session().Visible() {
		out = append(out, v.Node.Name)
	}
	return out
}

func keyFor(t *testing.T, m Model, name string) identity.Key {
	t.Helper()
	for _, n := range m.Session().Tree().Nodes() {
		if n.Name == name {
			return m.Session().Keys().KeyOf(n)
		}
	}
	t.Fatalf("no node %q", name)
	return identity.None
}

func TestNewModelMountsFirstMap(t *testing.T) {
	m := newTestModel(t)
	if m.MapID() != "m1" {
		t.Fatalf("MapID = %q, want m1", m.MapID())
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,B" {
		t.Errorf("visible = %s, want Root,A,B", got)
	}
	if !m.Animating() {
		t.Error("initial render should animate")
	}
	if cmd := m.Init(); cmd == nil {
		t.Error("Init should schedule the first animation tick")
	}
}

func TestNewModelDefaultMapFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sources.DefaultMap = "m2"
	m := NewModel(testMaps(), cfg)
	if m.MapID() != "m2" {
		t.Fatalf("MapID = %q, want m2", m.MapID())
	}
}

func TestNewModelWithoutMaps(t *testing.T) {
	m := NewModel(nil, config.DefaultConfig())
	if m.Session() != nil {
		t.Fatal("no session expected")
	}
	if !strings.Contains(m.View(), "no mind maps") {
		t.Error("view should explain that nothing is loaded")
	}
	// Keys are harmless without a session.
	_ = press(t, m, "j", "space", "d", "b", "+")
}

func TestToggleAnimatesAndSettles(t *testing.T) {
	m := newTestModel(t)
	m = finish(m)
	if m.Animating() {
		t.Fatal("animation should be done")
	}

	m = press(t, m, "j", "space")
	if m.cursorKey != keyFor(t, m, "A") {
		t.Fatal("cursor should be on A")
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,A1,B" {
		t.Fatalf("visible = %s", got)
	}
	if !m.Animating() {
		t.Fatal("toggle should start an animation")
	}
	// At the start entering nodes sit at the trigger's old position.
	a := keyFor(t, m, "A")
	a1 := keyFor(t, m, "A1")
	pos := map[identity.Key]float64{}
	for _, s := range m.frame.Nodes {
		pos[s.Key] = s.Pos.Y
	}
	if pos[a1] != pos[a] {
		t.Errorf("A1 should enter from A: %v vs %v", pos[a1], pos[a])
	}

	m = finish(m)
	if m.Animating() {
		t.Error("animation should stop at progress 1")
	}
	if len(m.frame.Nodes) != 4 {
		t.Errorf("settled frame has %d sprites, want 4", len(m.frame.Nodes))
	}

	m = press(t, m, "space")
	m = finish(m)
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,B" {
		t.Errorf("after collapse visible = %s", got)
	}
	if len(m.frame.Nodes) != 3 {
		t.Errorf("exiting sprites should be gone, got %d", len(m.frame.Nodes))
	}
}

func TestStaleAnimationTicksIgnored(t *testing.T) {
	m := newTestModel(t)
	gen := m.animGen
	m = press(t, m, "j", "space")
	updated, cmd := m.Update(animTickMsg{gen: gen, at: time.Now().Add(time.Hour)})
	m = updated.(Model)
	if cmd != nil {
		t.Error("stale tick should not schedule another")
	}
	if !m.Animating() {
		t.Error("stale tick must not finish the current transition")
	}
}

func TestInterruptMidAnimation(t *testing.T) {
	m := newTestModel(t)
	m = finish(m)
	m = press(t, m, "j", "space")
	updated, _ := m.Update(animTickMsg{gen: m.animGen, at: time.Now().Add(300 * time.Millisecond)})
	m = updated.(Model)

	m = press(t, m, "space")
	if !m.Animating() {
		t.Fatal("second toggle should animate")
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,B" {
		t.Errorf("visible = %s", got)
	}
	if err := m.Session().Transition().Validate(); err != nil {
		t.Errorf("transition invalid: %v", err)
	}
}

func TestDrillAndGoBack(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "j", "d")
	if m.Session().Current() != keyFor(t, m, "A") {
		t.Fatal("expected A to be the view root")
	}
	if got := strings.Join(m.Session().Breadcrumbs(), "/"); got != "Root/A" {
		t.Errorf("breadcrumbs = %s", got)
	}
	if !strings.Contains(m.View(), "b back") {
		t.Error("footer should offer going back below the root")
	}

	m = press(t, m, "b")
	if !m.Session().AtRoot() {
		t.Fatal("expected to be back at the root")
	}
	m = press(t, m, "backspace")
	if !strings.Contains(m.Status(), "already at the top") {
		t.Errorf("status = %q", m.Status())
	}
}

func TestDrillIntoRootIsRejected(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "d")
	if !strings.Contains(m.Status(), "below the current root") {
		t.Errorf("status = %q", m.Status())
	}
}

func TestSelectShowsAttributes(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "j", "space", "j", "enter")
	sel := m.Session().Selected()
	if sel == nil || sel.Name != "A1" {
		t.Fatalf("selected = %v", sel)
	}
	md := detailsMarkdown(m.Session())
	for _, want := range []string{"## A1", "Root / A / A1", "| cost | 3 |", "| owner | kim |"} {
		if !strings.Contains(md, want) {
			t.Errorf("details missing %q:\n%s", want, md)
		}
	}

	m = press(t, m, "esc")
	if m.Session().Selected() != nil {
		t.Error("esc should clear the selection")
	}
}

func TestCursorFollowsCollapsedAncestor(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "j", "space", "j")
	if m.cursorKey != keyFor(t, m, "A1") {
		t.Fatal("cursor should be on A1")
	}
	a := keyFor(t, m, "A")
	s := m.Session()
	m.mutate(func() (reconcile.Transition, error) { return s.Toggle(a) })
	if m.cursorKey != a {
		t.Errorf("cursor should fall back to A, got %s", m.cursorKey)
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,B" {
		t.Errorf("visible = %s", got)
	}
}

func TestExpandAllFromRoot(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "E")
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,A1,B" {
		t.Errorf("visible = %s", got)
	}
}

func TestFinderRevealsHiddenNode(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "/")
	if m.finder == nil {
		t.Fatal("finder should open")
	}
	m = press(t, m, "A1", "enter")
	if m.finder != nil {
		t.Fatal("finder should close on enter")
	}
	if sel := m.Session().Selected(); sel == nil || sel.Name != "A1" {
		t.Fatalf("selected = %v", sel)
	}
	if m.cursorKey != keyFor(t, m, "A1") {
		t.Error("cursor should move to the found node")
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,A1,B" {
		t.Errorf("visible = %s", got)
	}
}

func TestFinderEscape(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "/", "B", "esc")
	if m.finder != nil {
		t.Fatal("esc should close the finder")
	}
	if m.Session().Selected() != nil {
		t.Error("nothing should be selected")
	}
}

func TestZoomPanRecenter(t *testing.T) {
	m := newTestModel(t)
	start := m.Session().Transform()

	m = press(t, m, "+")
	if got := m.Session().Transform().Scale; got < 0.99 || got > 1.01 {
		t.Errorf("scale after zoom in = %v, want 1.0", got)
	}
	for i := 0; i < 20; i++ {
		m = press(t, m, "+")
	}
	if got := m.Session().Transform().Scale; got != 8 {
		t.Errorf("scale should clamp at 8, got %v", got)
	}

	m = press(t, m, "0")
	before := m.Session().Transform()
	if before != start {
		t.Errorf("recenter = %v, want %v", before, start)
	}
	m = press(t, m, "H")
	after := m.Session().Transform()
	if after.TranslateX != before.TranslateX+32 || after.TranslateY != before.TranslateY {
		t.Errorf("pan H: %v -> %v", before, after)
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m := newTestModel(t)
	want := []string{"details", "maps", "outline"}
	for _, w := range want {
		m = press(t, m, "tab")
		if m.FocusState() != w {
			t.Fatalf("focus = %s, want %s", m.FocusState(), w)
		}
	}
}

func TestMapListSwitchesMap(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "tab", "tab", "j", "enter")
	if m.MapID() != "m2" {
		t.Fatalf("MapID = %q, want m2", m.MapID())
	}
	if m.FocusState() != "outline" {
		t.Errorf("focus = %s", m.FocusState())
	}
	if got := strings.Join(visibleNames(m), ","); got != "Other" {
		t.Errorf("visible = %s", got)
	}
}

func TestFavoriteKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SetFavorite(2, "m2")
	m := NewModel(testMaps(), cfg)
	m = press(t, m, "2")
	if m.MapID() != "m2" {
		t.Fatalf("MapID = %q", m.MapID())
	}
	m = press(t, m, "5")
	if !strings.Contains(m.Status(), "no favorite on 5") {
		t.Errorf("status = %q", m.Status())
	}
}

func TestReloadKeepsStateAndIdentity(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "j", "space")
	a := keyFor(t, m, "A")

	next := testMaps()
	root := next[0].Data.(map[string]any)
	root["children"] = append(root["children"].([]any), map[string]any{"name": "C"})

	updated, _ := m.Update(MapsLoadedMsg{Maps: next})
	m = updated.(Model)
	if keyFor(t, m, "A") != a {
		t.Error("A should keep its key across reloads")
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,A1,B,C" {
		t.Errorf("visible = %s", got)
	}
	if !strings.Contains(m.Status(), "1 changed") {
		t.Errorf("status = %q", m.Status())
	}
}

func TestReloadUntouchedMap(t *testing.T) {
	m := newTestModel(t)
	next := testMaps()
	next[1].Data = map[string]any{"name": "Other", "children": []any{map[string]any{"name": "x"}}}
	before := m.Session()

	updated, _ := m.Update(MapsLoadedMsg{Maps: next})
	m = updated.(Model)
	if m.Session() != before {
		t.Error("open session should be kept")
	}
	if !strings.Contains(m.Status(), "1 changed") {
		t.Errorf("status = %q", m.Status())
	}
}

func TestReloadRemovedMap(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(MapsLoadedMsg{Maps: testMaps()[1:]})
	m = updated.(Model)
	if !strings.Contains(m.Status(), "removed") {
		t.Errorf("status = %q", m.Status())
	}
	if m.Session() == nil {
		t.Error("the last good view should stay up")
	}
}

func TestReloadMalformedKeepsSession(t *testing.T) {
	m := newTestModel(t)
	next := testMaps()
	next[0].Data = map[string]any{"name": "Root", "children": "A"}
	updated, _ := m.Update(MapsLoadedMsg{Maps: next})
	m = updated.(Model)
	if !m.statusErr {
		t.Errorf("expected an error status, got %q", m.Status())
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,B" {
		t.Errorf("visible = %s", got)
	}
}

func TestFileChangedWithoutSources(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(FileChangedMsg{})
	if cmd != nil {
		t.Error("nothing to reload without sources")
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "?")
	if !strings.Contains(m.View(), "drill into node") {
		t.Fatal("help should list the keys")
	}
	m = press(t, m, "x")
	if m.showHelp {
		t.Error("any key should close help")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestViewRendersPanes(t *testing.T) {
	m := newTestModel(t)
	m = finish(m)
	v := m.View()
	for _, want := range []string{"mindwork", "First", "Root", "▸", "Second"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMouseClickTogglesNode(t *testing.T) {
	m := newTestModel(t)
	m = finish(m)

	c := m.canvas()
	grid := c.Draw(m.frame, m.Session().Transform(), identity.None)
	a := keyFor(t, m, "A")
	x, y := -1, -1
	for row := 0; row < grid.Height && x < 0; row++ {
		for col := 0; col < grid.Width; col++ {
			if k, ok := grid.KeyAt(col, row); ok && k == a {
				x, y = col, row
				break
			}
		}
	}
	if x < 0 {
		t.Fatal("A is not drawn")
	}

	updated, _ := m.Update(tea.MouseMsg{
		X:      x + m.sidebarWidth() + 1,
		Y:      y + 2,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
	})
	m = updated.(Model)
	if m.Session().SelectedKey() != a {
		t.Error("click should select A")
	}
	if got := strings.Join(visibleNames(m), ","); got != "Root,A,A1,B" {
		t.Errorf("click should expand A, visible = %s", got)
	}
}
