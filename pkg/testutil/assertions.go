package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
)

// AssertNodeCount verifies the expected number of nodes in a tree.
func AssertNodeCount(t *testing.T, tree *hierarchy.Tree, expected int) {
	t.Helper()
	if tree.Len() != expected {
		t.Errorf("expected %d nodes, got %d", expected, tree.Len())
	}
}

// AssertVisibleNames verifies the visible traversal yields exactly the given
// names in pre-order.
func AssertVisibleNames(t *testing.T, visible []hierarchy.VisibleNode, expected ...string) {
	t.Helper()
	got := VisibleNames(visible)
	if !slices.Equal(got, expected) {
		t.Errorf("visible = %v, want %v", got, expected)
	}
}

// AssertNoDuplicateNodes verifies no node appears twice in a visible set.
func AssertNoDuplicateNodes(t *testing.T, visible []hierarchy.VisibleNode) {
	t.Helper()
	seen := make(map[*hierarchy.Node]bool)
	for _, v := range visible {
		if seen[v.Node] {
			t.Errorf("duplicate visible node: %s", hierarchy.PathString(v.Node))
		}
		seen[v.Node] = true
	}
}

// AssertParentLinks verifies every node's parent back-reference agrees with
// the parent's children list.
func AssertParentLinks(t *testing.T, tree *hierarchy.Tree) {
	t.Helper()
	for _, n := range tree.Nodes() {
		for _, c := range n.Children() {
			if c.Parent() != n {
				t.Errorf("%s: parent link points at %v, want %s", hierarchy.PathString(c), c.Parent(), n.Name)
			}
			if c.Depth() != n.Depth()+1 {
				t.Errorf("%s: depth %d, want %d", hierarchy.PathString(c), c.Depth(), n.Depth()+1)
			}
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Source file helpers

// WriteJSONFile writes v as JSON to dir/name and returns the path.
func WriteJSONFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", name, err)
	}
	return WriteFile(t, dir, name, data)
}

// WriteYAMLFile writes v as YAML to dir/name and returns the path.
func WriteYAMLFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal %s: %v", name, err)
	}
	return WriteFile(t, dir, name, data)
}

// WriteFile writes raw bytes to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// Lookup helpers

// VisibleNames returns the names of a visible set in order.
func VisibleNames(visible []hierarchy.VisibleNode) []string {
	out := make([]string, len(visible))
	for i, v := range visible {
		out[i] = v.Node.Name
	}
	return out
}

// FindNode returns the first node of t, in pre-order, with the given name.
func FindNode(t *hierarchy.Tree, name string) *hierarchy.Node {
	for _, n := range t.Nodes() {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// MustFindNode is FindNode that fails the test when the name is absent.
func MustFindNode(t *testing.T, tree *hierarchy.Tree, name string) *hierarchy.Node {
	t.Helper()
	n := FindNode(tree, name)
	if n == nil {
		t.Fatalf("node %q not found", name)
	}
	return n
}
