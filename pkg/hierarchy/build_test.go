package hierarchy_test

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/testutil"
)

func TestParseScenario(t *testing.T) {
	tree, err := hierarchy.Parse([]byte(`{"name":"Root","children":[{"name":"A","children":[{"name":"A1"}]},{"name":"B"}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	testutil.AssertNodeCount(t, tree, 4)
	testutil.AssertParentLinks(t, tree)

	names := make([]string, 0, tree.Len())
	for i, n := range tree.Nodes() {
		names = append(names, n.Name)
		if n.Index() != i {
			t.Errorf("%s index = %d, want %d", n.Name, n.Index(), i)
		}
		if tree.At(i) != n || !tree.Contains(n) {
			t.Errorf("arena lookup broken for %s", n.Name)
		}
	}
	if strings.Join(names, ",") != "Root,A,A1,B" {
		t.Errorf("pre-order = %v", names)
	}

	a1 := testutil.MustFindNode(t, tree, "A1")
	if got := hierarchy.PathString(a1); got != "Root / A / A1" {
		t.Errorf("PathString = %q", got)
	}
	if !hierarchy.IsAncestor(tree.Root(), a1) || hierarchy.IsAncestor(a1, a1) {
		t.Error("IsAncestor should be strict")
	}
}

func TestBuildMalformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{"missing name", `{"children":[]}`, "/name"},
		{"null name", `{"name":null}`, "/name"},
		{"empty name", `{"name":""}`, "/name"},
		{"nested empty name", `{"name":"r","children":[{"name":""}]}`, "/children/0/name"},
		{"object name", `{"name":{"x":1}}`, "/name"},
		{"children not list", `{"name":"r","children":{"name":"x"}}`, "/children"},
		{"child not record", `{"name":"r","children":[1]}`, "/children/0"},
		{"nested missing name", `{"name":"r","children":[{"name":"a"},{"children":[]}]}`, "/children/1/name"},
		{"attributes not mapping", `{"name":"r","attributes":[1,2]}`, "/attributes"},
		{"attribute not scalar", `{"name":"r","attributes":{"k":[1]}}`, "/attributes/k"},
		{"root is array", `[{"name":"r"}]`, ""},
		{"invalid json", `{"name":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hierarchy.Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, hierarchy.ErrMalformedInput) {
				t.Errorf("error %v does not match ErrMalformedInput", err)
			}
			var me *hierarchy.MalformedInputError
			if !errors.As(err, &me) {
				t.Fatalf("error %T is not *MalformedInputError", err)
			}
			if me.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", me.Path, tt.wantPath)
			}
		})
	}
}

func TestBuildAttributes(t *testing.T) {
	tree, err := hierarchy.Parse([]byte(`{
		"name": 1200,
		"kind": "process",
		"weight": 3.5,
		"active": true,
		"nested": {"ignored": true},
		"attributes": {"kind": "component", "owner": "ops"}
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root()
	if root.Name != "1200" {
		t.Errorf("numeric name = %q, want 1200", root.Name)
	}
	want := map[string]string{"kind": "component", "owner": "ops", "weight": "3.5", "active": "true"}
	if len(root.Attributes) != len(want) {
		t.Errorf("attributes = %v, want %v", root.Attributes, want)
	}
	for k, v := range want {
		if root.Attributes[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, root.Attributes[k], v)
		}
	}
}

func TestBuildChildrenFieldPresence(t *testing.T) {
	tree, err := hierarchy.Parse([]byte(`{"name":"r","children":[{"name":"empty","children":[]},{"name":"absent"},{"name":"null","children":null}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	kids := tree.Root().Children()
	if !kids[0].HasChildrenField() || !kids[0].IsLeaf() {
		t.Error("empty children: field present, still a leaf")
	}
	if kids[1].HasChildrenField() || kids[2].HasChildrenField() {
		t.Error("absent and null children should report no field")
	}
}

func TestBuildFromYAML(t *testing.T) {
	src := `
name: Root
owner: ops
children:
  - name: A
    children:
      - name: A1
  - name: B
    attributes:
      port: 8080
`
	var raw any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	tree, err := hierarchy.Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	testutil.AssertNodeCount(t, tree, 4)
	if tree.Root().Attributes["owner"] != "ops" {
		t.Errorf("root attributes = %v", tree.Root().Attributes)
	}
	b := testutil.MustFindNode(t, tree, "B")
	if b.Attributes["port"] != "8080" {
		t.Errorf("B attributes = %v", b.Attributes)
	}
}

func TestBuildRecord(t *testing.T) {
	tree, err := hierarchy.Build(testutil.Scenario())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	testutil.AssertNodeCount(t, tree, 4)

	if _, err := hierarchy.Build(hierarchy.Record{}); !errors.Is(err, hierarchy.ErrMalformedInput) {
		t.Errorf("empty record: got %v", err)
	}
	// The typed and decoded paths agree on empty names.
	_, recErr := hierarchy.Build(hierarchy.Record{Name: "r", Children: []hierarchy.Record{{Name: ""}}})
	_, mapErr := hierarchy.Build(map[string]any{"name": "r", "children": []any{map[string]any{"name": ""}}})
	if !errors.Is(recErr, hierarchy.ErrMalformedInput) || !errors.Is(mapErr, hierarchy.ErrMalformedInput) {
		t.Errorf("empty child name: record %v, map %v", recErr, mapErr)
	}
	if _, err := hierarchy.Build((*hierarchy.Record)(nil)); !errors.Is(err, hierarchy.ErrMalformedInput) {
		t.Errorf("nil record: got %v", err)
	}
}

func TestBuildDepthLimit(t *testing.T) {
	var sb strings.Builder
	depth := hierarchy.MaxDepth + 2
	for i := 0; i < depth; i++ {
		sb.WriteString(`{"name":"n","children":[`)
	}
	sb.WriteString(`{"name":"leaf"}`)
	for i := 0; i < depth; i++ {
		sb.WriteString(`]}`)
	}
	_, err := hierarchy.Parse([]byte(sb.String()))
	if !errors.Is(err, hierarchy.ErrMalformedInput) {
		t.Fatalf("expected depth error, got %v", err)
	}
}

func TestFindParentMatchesBackLinks(t *testing.T) {
	tree := testutil.QuickRandom(200)
	root := tree.Root()
	for _, n := range tree.Nodes() {
		if got := hierarchy.FindParent(root, n); got != n.Parent() {
			t.Fatalf("FindParent(%s) = %v, back-link = %v", n.Name, got, n.Parent())
		}
	}
}

func TestWalkStopsDescent(t *testing.T) {
	tree := testutil.ScenarioTree()
	var seen []string
	hierarchy.Walk(tree.Root(), func(n *hierarchy.Node) bool {
		seen = append(seen, n.Name)
		return n.Name != "A"
	})
	if strings.Join(seen, ",") != "Root,A,B" {
		t.Errorf("Walk = %v", seen)
	}
}
