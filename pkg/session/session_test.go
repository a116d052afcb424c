package session_test

import (
	"errors"
	"maps"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/navigation"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
	"github.com/vanderheijden86/mindwork/pkg/render"
	"github.com/vanderheijden86/mindwork/pkg/session"
	"github.com/vanderheijden86/mindwork/pkg/testutil"
	"github.com/vanderheijden86/mindwork/pkg/viewport"
)

func newScenario(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(testutil.Scenario(), session.DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func key(t *testing.T, s *session.Session, name string) identity.Key {
	t.Helper()
	return s.Keys().KeyOf(testutil.MustFindNode(t, s.Tree(), name))
}

func names(s *session.Session) []string {
	out := make([]string, len(s.Visible()))
	for i, v := range s.Visible() {
		out[i] = v.Node.Name
	}
	return out
}

func position(t *testing.T, s *session.Session, k identity.Key) layout.Point {
	t.Helper()
	for _, v := range s.Visible() {
		if v.Key == k {
			return v.Position
		}
	}
	t.Fatalf("%s not visible", k)
	return layout.Point{}
}

func assertNames(t *testing.T, s *session.Session, want ...string) {
	t.Helper()
	if got := names(s); !slices.Equal(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestInitialRender(t *testing.T) {
	s := newScenario(t)
	assertNames(t, s, "Root", "A", "B")

	tr := s.Transition()
	if len(tr.Enter) != 3 || len(tr.Update) != 0 || len(tr.Exit) != 0 {
		t.Errorf("initial transition = %d/%d/%d", len(tr.Enter), len(tr.Update), len(tr.Exit))
	}
	if !s.Visible()[1].HasHiddenChildren {
		t.Error("A should report hidden children")
	}
	if !s.AtRoot() || s.Selected() != nil {
		t.Error("fresh session should be at root with no selection")
	}
}

func TestToggleExpandThenCollapse(t *testing.T) {
	s := newScenario(t)
	a := key(t, s, "A")
	before := s.Collapse().Snapshot()
	aPrev := position(t, s, a)

	tr, err := s.Toggle(a)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	assertNames(t, s, "Root", "A", "A1", "B")
	if len(tr.Enter) != 1 || tr.Enter[0].Node.Name != "A1" {
		t.Fatalf("enter = %v", tr.Enter)
	}
	if tr.Enter[0].From != aPrev {
		t.Errorf("A1 enters from %v, want A's previous position %v", tr.Enter[0].From, aPrev)
	}
	if len(tr.Update) != 3 || len(tr.Exit) != 0 {
		t.Errorf("update/exit = %d/%d", len(tr.Update), len(tr.Exit))
	}

	tr, err = s.Toggle(a)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	assertNames(t, s, "Root", "A", "B")
	if len(tr.Exit) != 1 || tr.Exit[0].Node.Name != "A1" {
		t.Fatalf("exit = %v", tr.Exit)
	}
	if tr.Exit[0].To != position(t, s, a) {
		t.Errorf("A1 exits to %v, want A's position %v", tr.Exit[0].To, position(t, s, a))
	}
	if !maps.Equal(before, s.Collapse().Snapshot()) {
		t.Error("toggle pair changed collapse state")
	}
}

func TestToggleRootRevealsOneLevel(t *testing.T) {
	s, err := session.New(testutil.NewDefault().Tree(3, 2), session.Options{InitialCollapse: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Visible()) != 15 {
		t.Fatalf("fully expanded tree shows %d nodes", len(s.Visible()))
	}
	root := s.Current()
	if _, err := s.Toggle(root); err != nil {
		t.Fatal(err)
	}
	if len(s.Visible()) != 1 || !s.Visible()[0].HasHiddenChildren {
		t.Fatalf("collapsed root shows %d nodes", len(s.Visible()))
	}
	tr, err := s.Toggle(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Visible()) != 3 {
		t.Errorf("expanded root shows %d nodes, want root and its two children", len(s.Visible()))
	}
	if len(tr.Enter) != 2 {
		t.Errorf("enter = %d", len(tr.Enter))
	}
}

func TestDrillAndGoBack(t *testing.T) {
	s := newScenario(t)
	a := key(t, s, "A")
	root := s.Current()

	if _, err := s.DrillInto(a); err != nil {
		t.Fatalf("DrillInto: %v", err)
	}
	if s.Current() != a || s.AtRoot() {
		t.Fatalf("current = %s, atRoot = %v", s.Current(), s.AtRoot())
	}
	if got := s.Breadcrumbs(); !slices.Equal(got, []string{"Root", "A"}) {
		t.Errorf("breadcrumbs = %v", got)
	}
	assertNames(t, s, "A")

	if _, err := s.Toggle(a); err != nil {
		t.Fatal(err)
	}
	assertNames(t, s, "A", "A1")

	if _, err := s.DrillInto(key(t, s, "B")); !errors.Is(err, navigation.ErrNotDescendant) {
		t.Errorf("drill into sibling: %v", err)
	}

	tr, err := s.GoBack()
	if err != nil {
		t.Fatalf("GoBack: %v", err)
	}
	if s.Current() != root || !s.AtRoot() {
		t.Fatalf("after go back current = %s", s.Current())
	}
	if tr.Trigger != a {
		t.Errorf("go back trigger = %s, want %s", tr.Trigger, a)
	}
	// A's expansion made while drilled in survives the round trip.
	assertNames(t, s, "Root", "A", "A1", "B")

	last := s.Transition()
	_, err = s.GoBack()
	var atRoot *navigation.AtRootError
	if !errors.As(err, &atRoot) {
		t.Fatalf("second go back: %v", err)
	}
	assertNames(t, s, "Root", "A", "A1", "B")
	if len(s.Transition().Update) != len(last.Update) {
		t.Error("AtRoot go back produced a new transition")
	}
}

func TestSelection(t *testing.T) {
	s, err := session.New(map[string]any{
		"name":       "Root",
		"owner":      "ops",
		"attributes": map[string]any{"cost": "3"},
		"children":   []any{map[string]any{"name": "A"}},
	}, session.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	root := s.Current()
	if err := s.Select(root); err != nil {
		t.Fatal(err)
	}
	if s.Selected() == nil || s.Selected().Name != "Root" {
		t.Fatalf("selected = %v", s.Selected())
	}
	want := []session.Attribute{{Key: "cost", Value: "3"}, {Key: "owner", Value: "ops"}}
	if got := session.Attributes(s.Selected()); !slices.Equal(got, want) {
		t.Errorf("attributes = %v, want %v", got, want)
	}
	if err := s.Select(identity.Key(999)); !errors.Is(err, reconcile.ErrStaleReference) {
		t.Errorf("select unknown key: %v", err)
	}
	s.ClearSelection()
	if s.Selected() != nil {
		t.Error("selection not cleared")
	}
}

func TestMalformedInput(t *testing.T) {
	_, err := session.New(map[string]any{"children": []any{}}, session.DefaultOptions())
	if !errors.Is(err, hierarchy.ErrMalformedInput) {
		t.Errorf("New without name: %v", err)
	}
}

func TestGesturesAndRecenter(t *testing.T) {
	s := newScenario(t)
	initial := s.Transform()
	if initial != (viewport.Transform{TranslateX: 400, TranslateY: 310, Scale: 0.8}) {
		t.Fatalf("initial transform = %v", initial)
	}
	if got := s.ApplyGesture(viewport.Zoom(100, layout.Point{X: 10, Y: 10})); got.Scale != 8 {
		t.Errorf("zoom scale = %v, want clamp to 8", got.Scale)
	}
	s.ApplyGesture(viewport.Pan(5, 5))
	if got := s.Recenter(); got != initial {
		t.Errorf("recenter = %v", got)
	}
}

func TestResize(t *testing.T) {
	s := newScenario(t)
	root := s.Current()
	tr, err := s.Resize(layout.Size{Width: 800, Height: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if p := position(t, s, root); p.Y != 500 {
		t.Errorf("root y = %v after resize", p.Y)
	}
	if len(tr.Enter) != 0 || len(tr.Exit) != 0 || len(tr.Update) != 3 {
		t.Errorf("resize transition = %d/%d/%d", len(tr.Enter), len(tr.Update), len(tr.Exit))
	}
}

func TestReloadKeepsIdentityAndState(t *testing.T) {
	s := newScenario(t)
	a := key(t, s, "A")
	if _, err := s.Toggle(a); err != nil {
		t.Fatal(err)
	}

	next := testutil.Scenario()
	next.Children = append(next.Children, hierarchy.Record{Name: "C", Children: []hierarchy.Record{{Name: "C1"}}})
	stats, tr, err := s.Reload(next)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if stats.Kept != 4 || stats.Added != 2 || stats.Retired != 0 {
		t.Errorf("stats = %s", stats)
	}
	if key(t, s, "A") != a {
		t.Error("A lost its key across reload")
	}
	// A stays expanded, the new internal node C starts collapsed.
	assertNames(t, s, "Root", "A", "A1", "B", "C")
	if got := tr.Keys(reconcile.Enter); len(got) != 1 || got[0] != key(t, s, "C") {
		t.Errorf("enter = %v", got)
	}
	if len(tr.Update) != 4 {
		t.Errorf("update = %d", len(tr.Update))
	}
}

func TestReloadMovesViewRootToSurvivor(t *testing.T) {
	s := newScenario(t)
	if _, err := s.DrillInto(key(t, s, "A")); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(key(t, s, "A")); err != nil {
		t.Fatal(err)
	}

	stats, _, err := s.Reload(hierarchy.Record{Name: "Root", Children: []hierarchy.Record{{Name: "B"}}})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Retired != 2 {
		t.Errorf("retired = %d, want 2", stats.Retired)
	}
	if !s.AtRoot() {
		t.Errorf("view root %s survived removal", s.Current())
	}
	if s.Selected() != nil {
		t.Error("selection of a removed node kept")
	}
	assertNames(t, s, "Root", "B")
}

func TestReloadMalformedLeavesSession(t *testing.T) {
	s := newScenario(t)
	before := names(s)
	if _, _, err := s.Reload(map[string]any{"name": "Root", "children": "A"}); !errors.Is(err, hierarchy.ErrMalformedInput) {
		t.Fatalf("Reload: %v", err)
	}
	assertNames(t, s, before...)
}

func TestRebuild(t *testing.T) {
	s := newScenario(t)
	a := key(t, s, "A")
	if _, err := s.Toggle(a); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DrillInto(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !s.AtRoot() {
		t.Error("rebuild kept navigation")
	}
	assertNames(t, s, "Root", "A", "B")
	if len(s.Transition().Enter) != 3 {
		t.Errorf("rebuild should re-enter everything, got %d", len(s.Transition().Enter))
	}
}

// Arbitrary sequences of interactions keep every transition a partition and
// the visible set free of duplicates. Only the documented errors occur.
func TestInteractionSequences(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s, err := session.New(testutil.RecordGen(4, 3).Draw(rt, "record"), session.DefaultOptions())
		if err != nil {
			rt.Fatalf("New: %v", err)
		}
		nodes := s.Tree().Nodes()
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			n := nodes[rapid.IntRange(0, len(nodes)-1).Draw(rt, "node")]
			k := s.Keys().KeyOf(n)
			var tr reconcile.Transition
			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				tr, err = s.Toggle(k)
			case 1:
				tr, err = s.DrillInto(k)
			case 2:
				tr, err = s.GoBack()
			case 3:
				tr, err = s.CollapseAll(k)
			default:
				tr, err = s.ExpandAll(k)
			}
			if err != nil {
				if errors.Is(err, navigation.ErrAtRoot) || errors.Is(err, navigation.ErrNotDescendant) {
					continue
				}
				rt.Fatalf("step %d: %v", i, err)
			}
			if err := tr.Validate(); err != nil {
				rt.Fatalf("step %d: %v", i, err)
			}
			seen := make(map[identity.Key]bool)
			for _, v := range s.Visible() {
				if seen[v.Key] {
					rt.Fatalf("duplicate visible key %s", v.Key)
				}
				seen[v.Key] = true
			}
			if s.Visible()[0].Key != s.Current() {
				rt.Fatalf("visible set does not start at the view root")
			}
		}
	})
}

// Drilling anywhere and backing out to the root leaves collapse state and the
// visible set exactly as they were.
func TestDrillRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s, err := session.New(testutil.RecordGen(5, 3).Draw(rt, "record"), session.DefaultOptions())
		if err != nil {
			rt.Fatalf("New: %v", err)
		}
		nodes := s.Tree().Nodes()
		if len(nodes) < 2 {
			return
		}
		target := nodes[rapid.IntRange(1, len(nodes)-1).Draw(rt, "target")]
		before := s.Collapse().Snapshot()
		visible := names(s)

		if _, err := s.DrillInto(s.Keys().KeyOf(target)); err != nil {
			rt.Fatalf("DrillInto: %v", err)
		}
		for !s.AtRoot() {
			if _, err := s.GoBack(); err != nil {
				rt.Fatalf("GoBack: %v", err)
			}
		}
		if !maps.Equal(before, s.Collapse().Snapshot()) {
			rt.Fatalf("collapse state changed by navigation")
		}
		if !slices.Equal(visible, names(s)) {
			rt.Fatalf("visible %v, want %v", names(s), visible)
		}
	})
}

func TestReveal(t *testing.T) {
	s := newScenario(t)
	a1 := key(t, s, "A1")

	tr, err := s.Reveal(a1)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	assertNames(t, s, "Root", "A", "A1", "B")
	if len(tr.Enter) != 1 || tr.Enter[0].Key != a1 {
		t.Errorf("enter = %v", tr.Enter)
	}
	if s.SelectedKey() != a1 {
		t.Errorf("selected = %s, want %s", s.SelectedKey(), a1)
	}

	// Already visible: selection moves, nothing animates.
	b := key(t, s, "B")
	tr, err = s.Reveal(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Nodes()) != 0 {
		t.Errorf("reveal of a visible node produced %d changes", len(tr.Nodes()))
	}
	if s.SelectedKey() != b {
		t.Errorf("selected = %s", s.SelectedKey())
	}

	if _, err := s.DrillInto(key(t, s, "A")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reveal(b); !errors.Is(err, navigation.ErrNotDescendant) {
		t.Errorf("reveal outside the view root: %v", err)
	}
	var stale *reconcile.StaleReferenceError
	if _, err := s.Reveal(identity.Key(9999)); !errors.As(err, &stale) {
		t.Errorf("reveal of unknown key: %v", err)
	}
}

func visiblePosition(t *testing.T, s *session.Session, k identity.Key) layout.Point {
	t.Helper()
	for _, v := range s.Visible() {
		if v.Key == k {
			return v.Position
		}
	}
	t.Fatalf("key %s not visible", k)
	return layout.Point{}
}

func TestFailedOperationDropsInterrupt(t *testing.T) {
	s := newScenario(t)
	a := key(t, s, "A")
	settled := visiblePosition(t, s, a)

	s.Interrupt(map[identity.Key]layout.Point{a: {X: 999, Y: 999}})
	if _, err := s.GoBack(); !errors.Is(err, navigation.ErrAtRoot) {
		t.Fatalf("GoBack at root: %v", err)
	}

	tr, err := s.Toggle(a)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range tr.Update {
		if u.Key == a && u.From != settled {
			t.Errorf("A animates from %v, want settled %v", u.From, settled)
		}
	}
}

func TestReexpandDuringCollapse(t *testing.T) {
	s := newScenario(t)
	a, a1 := key(t, s, "A"), key(t, s, "A1")
	if _, err := s.Toggle(a); err != nil {
		t.Fatal(err)
	}
	collapse, err := s.Toggle(a)
	if err != nil {
		t.Fatal(err)
	}

	frame := render.Interpolate(collapse, 0.5)
	drawn := frame.Positions()
	mid, ok := drawn[a1]
	if !ok {
		t.Fatal("exiting A1 missing from the drawn positions")
	}
	s.Interrupt(drawn)

	tr, err := s.Toggle(a)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range tr.Enter {
		if c.Key == a1 {
			t.Fatalf("A1 re-enters from %v instead of continuing", c.From)
		}
	}
	for _, u := range tr.Update {
		if u.Key == a1 && u.From != mid {
			t.Errorf("A1 restarts from %v, want drawn position %v", u.From, mid)
		}
	}
	if err := tr.Validate(); err != nil {
		t.Error(err)
	}
}
