// Package testutil provides hierarchy fixture generators for various tree shapes.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
)

// MapFixture is one mind map as served by a data source: the
// `[{id, title, data}]` array shape.
type MapFixture struct {
	ID    string           `json:"id" yaml:"id"`
	Title string           `json:"title" yaml:"title"`
	Data  hierarchy.Record `json:"data" yaml:"data"`
}

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed          int64  // Random seed for determinism (0 = use current time)
	NamePrefix    string // Prefix for node names (default: "n")
	IncludeAttrs  bool   // Attach a few attributes to each node
	EmptyChildren bool   // Leaves get an explicit empty children list
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       42,
		NamePrefix: "n",
	}
}

// Generator creates hierarchy fixtures with various shapes.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.NamePrefix == "" {
		cfg.NamePrefix = "n"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) node() hierarchy.Record {
	r := hierarchy.Record{Name: fmt.Sprintf("%s%d", g.cfg.NamePrefix, g.next)}
	g.next++
	if g.cfg.IncludeAttrs {
		r.Attributes = map[string]string{
			"weight": fmt.Sprintf("%d", g.rng.Intn(100)),
			"owner":  []string{"ops", "dev", "qa"}[g.rng.Intn(3)],
		}
	}
	if g.cfg.EmptyChildren {
		r.Children = []hierarchy.Record{}
	}
	return r
}

// Chain creates a single path n0 -> n1 -> ... -> n{size-1}.
// Depth = size-1.
func (g *Generator) Chain(size int) hierarchy.Record {
	if size < 1 {
		size = 1
	}
	nodes := make([]hierarchy.Record, size)
	for i := range nodes {
		nodes[i] = g.node()
	}
	for i := size - 2; i >= 0; i-- {
		nodes[i].Children = []hierarchy.Record{nodes[i+1]}
	}
	return nodes[0]
}

// Star creates a hub with `spokes` leaf children.
func (g *Generator) Star(spokes int) hierarchy.Record {
	hub := g.node()
	hub.Name = "hub"
	hub.Children = make([]hierarchy.Record, 0, spokes)
	for i := 0; i < spokes; i++ {
		hub.Children = append(hub.Children, g.node())
	}
	return hub
}

// Tree creates a complete tree with given depth and branching factor.
// Each non-leaf node has `breadth` children.
func (g *Generator) Tree(depth, breadth int) hierarchy.Record {
	if breadth < 1 {
		breadth = 1
	}
	var build func(d int) hierarchy.Record
	build = func(d int) hierarchy.Record {
		r := g.node()
		if d == depth {
			return r
		}
		r.Children = make([]hierarchy.Record, 0, breadth)
		for i := 0; i < breadth; i++ {
			r.Children = append(r.Children, build(d+1))
		}
		return r
	}
	return build(0)
}

// Random creates a tree of exactly size nodes by attaching each new node to a
// uniformly chosen existing node.
func (g *Generator) Random(size int) hierarchy.Record {
	if size < 1 {
		size = 1
	}
	type slot struct {
		rec      hierarchy.Record
		children []int
	}
	slots := []slot{{rec: g.node()}}
	for i := 1; i < size; i++ {
		parent := g.rng.Intn(len(slots))
		slots = append(slots, slot{rec: g.node()})
		slots[parent].children = append(slots[parent].children, i)
	}
	var assemble func(i int) hierarchy.Record
	assemble = func(i int) hierarchy.Record {
		r := slots[i].rec
		if len(slots[i].children) > 0 {
			r.Children = make([]hierarchy.Record, 0, len(slots[i].children))
			for _, c := range slots[i].children {
				r.Children = append(r.Children, assemble(c))
			}
		}
		return r
	}
	return assemble(0)
}

// Maps wraps records into map fixtures with ids "map-1".."map-N".
func (g *Generator) Maps(records ...hierarchy.Record) []MapFixture {
	out := make([]MapFixture, len(records))
	for i, r := range records {
		out[i] = MapFixture{
			ID:    fmt.Sprintf("map-%d", i+1),
			Title: fmt.Sprintf("Map %d: %s", i+1, r.Name),
			Data:  r,
		}
	}
	return out
}

// ToJSON serializes a fixture value. Panics on failure since fixtures are
// always serializable.
func ToJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// CountNodes returns the number of records in r, r included.
func CountNodes(r hierarchy.Record) int {
	n := 1
	for _, c := range r.Children {
		n += CountNodes(c)
	}
	return n
}

// Outline renders r as one indented name per line, for readable diffs.
func Outline(r hierarchy.Record) string {
	var sb strings.Builder
	var walk func(r hierarchy.Record, depth int)
	walk = func(r hierarchy.Record, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(r.Name)
		sb.WriteByte('\n')
		for _, c := range r.Children {
			walk(c, depth+1)
		}
	}
	walk(r, 0)
	return sb.String()
}

// ============================================================================
// Property-test generators
// ============================================================================

// RecordGen draws a random hierarchy of bounded depth and fan-out. Names are
// drawn from a small alphabet so duplicate sibling names occur regularly.
func RecordGen(maxDepth, maxFanout int) *rapid.Generator[hierarchy.Record] {
	return rapid.Custom(func(t *rapid.T) hierarchy.Record {
		return drawRecord(t, 0, maxDepth, maxFanout)
	})
}

func drawRecord(t *rapid.T, depth, maxDepth, maxFanout int) hierarchy.Record {
	r := hierarchy.Record{
		Name: rapid.SampledFrom([]string{"a", "b", "c", "d", "root", "x"}).Draw(t, "name"),
	}
	if depth >= maxDepth {
		return r
	}
	fanout := rapid.IntRange(0, maxFanout).Draw(t, "fanout")
	if fanout == 0 {
		return r
	}
	r.Children = make([]hierarchy.Record, 0, fanout)
	for i := 0; i < fanout; i++ {
		r.Children = append(r.Children, drawRecord(t, depth+1, maxDepth, maxFanout))
	}
	return r
}

// ============================================================================
// Quick helpers
// ============================================================================

// Scenario returns the canonical four-node fixture:
// Root -> (A -> A1), B.
func Scenario() hierarchy.Record {
	return hierarchy.Record{
		Name: "Root",
		Children: []hierarchy.Record{
			{Name: "A", Children: []hierarchy.Record{{Name: "A1"}}},
			{Name: "B"},
		},
	}
}

// ScenarioTree builds Scenario into a tree.
func ScenarioTree() *hierarchy.Tree {
	return hierarchy.MustBuild(Scenario())
}

// QuickChain returns a built chain of the given size.
func QuickChain(size int) *hierarchy.Tree {
	return hierarchy.MustBuild(NewDefault().Chain(size))
}

// QuickStar returns a built star with the given number of spokes.
func QuickStar(spokes int) *hierarchy.Tree {
	return hierarchy.MustBuild(NewDefault().Star(spokes))
}

// QuickTree returns a built complete tree.
func QuickTree(depth, breadth int) *hierarchy.Tree {
	return hierarchy.MustBuild(NewDefault().Tree(depth, breadth))
}

// QuickRandom returns a built random tree of the given size.
func QuickRandom(size int) *hierarchy.Tree {
	return hierarchy.MustBuild(NewDefault().Random(size))
}

// Single returns a tree with only a root.
func Single() *hierarchy.Tree {
	return hierarchy.MustBuild(hierarchy.Record{Name: "solo"})
}
