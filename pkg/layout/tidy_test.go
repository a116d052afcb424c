package layout_test

import (
	"math"
	"sort"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/testutil"
)

func TestScenarioPositions(t *testing.T) {
	tree := testutil.ScenarioTree()
	vis := hierarchy.CollectVisible(tree.Root(), nil)
	pos := layout.Tidy{Size: layout.Size{Width: 800, Height: 620}}.Layout(vis)

	want := map[string]layout.Point{
		"Root": {X: 0, Y: 310},
		"A":    {X: 180, Y: 155},
		"A1":   {X: 360, Y: 155},
		"B":    {X: 180, Y: 465},
	}
	for name, p := range want {
		got := pos[testutil.MustFindNode(t, tree, name)]
		if math.Abs(got.X-p.X) > 1e-9 || math.Abs(got.Y-p.Y) > 1e-9 {
			t.Errorf("%s at %v, want %v", name, got, p)
		}
	}
}

func TestSingleNodeCentered(t *testing.T) {
	tree := testutil.Single()
	pos := layout.Tidy{Size: layout.Size{Height: 100}}.Layout(hierarchy.CollectVisible(tree.Root(), nil))
	if got := pos[tree.Root()]; got != (layout.Point{X: 0, Y: 50}) {
		t.Errorf("single node at %v", got)
	}
}

func TestEmptyLayout(t *testing.T) {
	if got := (layout.Tidy{}).Layout(nil); len(got) != 0 {
		t.Errorf("empty layout returned %d positions", len(got))
	}
}

func TestCustomDepthSpacing(t *testing.T) {
	tree := testutil.QuickChain(3)
	pos := layout.Tidy{Size: layout.Size{Height: 10}, DepthSpacing: 50}.Layout(hierarchy.CollectVisible(tree.Root(), nil))
	if pos[tree.At(2)].X != 100 {
		t.Errorf("depth-2 x = %v, want 100", pos[tree.At(2)].X)
	}
}

func TestLayoutRelativeToViewRoot(t *testing.T) {
	tree := testutil.ScenarioTree()
	a := testutil.MustFindNode(t, tree, "A")
	pos := layout.Tidy{Size: layout.Size{Height: 100}}.Layout(hierarchy.CollectVisible(a, nil))
	if pos[a].X != 0 {
		t.Errorf("view root x = %v, want 0", pos[a].X)
	}
}

func TestBounds(t *testing.T) {
	lo, hi := layout.Bounds(layout.Positions{
		&hierarchy.Node{}: {X: 1, Y: 5},
		&hierarchy.Node{}: {X: -2, Y: 9},
	})
	if lo != (layout.Point{X: -2, Y: 5}) || hi != (layout.Point{X: 1, Y: 9}) {
		t.Errorf("Bounds = %v %v", lo, hi)
	}
}

// Nodes on the same level never overlap, parents sit between their first
// and last child, and everything fits the breadth budget.
func TestTidyInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tree, err := hierarchy.Build(testutil.RecordGen(5, 4).Draw(rt, "record"))
		if err != nil {
			rt.Fatalf("Build: %v", err)
		}
		const height = 1000.0
		vis := hierarchy.CollectVisible(tree.Root(), nil)
		pos := layout.Tidy{Size: layout.Size{Height: height}}.Layout(vis)
		if len(pos) != len(vis) {
			rt.Fatalf("positioned %d of %d", len(pos), len(vis))
		}

		levels := make(map[int][]float64)
		for _, v := range vis {
			p := pos[v.Node]
			if p.Y < -1e-9 || p.Y > height+1e-9 {
				rt.Fatalf("%s at y=%v outside [0,%v]", v.Node.Name, p.Y, height)
			}
			if p.X != float64(v.Depth)*layout.DefaultDepthSpacing {
				rt.Fatalf("x=%v at depth %d", p.X, v.Depth)
			}
			levels[v.Depth] = append(levels[v.Depth], p.Y)

			kids := v.Node.Children()
			if len(kids) > 0 {
				first, last := pos[kids[0]].Y, pos[kids[len(kids)-1]].Y
				if p.Y < first-1e-9 || p.Y > last+1e-9 {
					rt.Fatalf("parent %s at %v outside children [%v,%v]", v.Node.Name, p.Y, first, last)
				}
			}
		}
		for depth, ys := range levels {
			sort.Float64s(ys)
			for i := 1; i < len(ys); i++ {
				if ys[i]-ys[i-1] < 1e-9 {
					rt.Fatalf("overlap at depth %d: %v", depth, ys)
				}
			}
		}
	})
}
