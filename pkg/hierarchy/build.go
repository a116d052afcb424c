package hierarchy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
)

// ErrMalformedInput is matched by every *MalformedInputError.
var ErrMalformedInput = errors.New("malformed hierarchy input")

// MalformedInputError reports where the raw input violates the required shape.
// Path is a JSON-pointer-like location, e.g. "/children/0/name".
type MalformedInputError struct {
	Path   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed hierarchy input: %s", e.Reason)
	}
	return fmt.Sprintf("malformed hierarchy input at %s: %s", e.Path, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedInput) succeed.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// Record is the typed form of a raw hierarchy record. A nil Children slice
// means the field was absent; an empty non-nil slice means it was present.
type Record struct {
	Name       string            `json:"name" yaml:"name"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Children   []Record          `json:"children,omitempty" yaml:"children,omitempty"`
}

// Parse decodes a JSON document and builds the tree from it.
func Parse(data []byte) (*Tree, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return Build(raw)
}

// Build converts a decoded record (map[string]any from JSON or YAML, a Record,
// or raw JSON bytes) into a Tree. It fails with *MalformedInputError when a
// record lacks a string name, when children is present but is not a list of
// well-formed records, or when attributes is not a mapping of scalars.
func Build(raw any) (*Tree, error) {
	defer metrics.Timer(metrics.HierarchyBuild)()
	start := time.Now()

	b := &builder{}
	var (
		root *Node
		err  error
	)
	switch v := raw.(type) {
	case []byte:
		return Parse(v)
	case json.RawMessage:
		return Parse(v)
	case Record:
		root, err = b.fromRecord(&v, nil, 0, "")
	case *Record:
		if v == nil {
			return nil, &MalformedInputError{Reason: "nil record"}
		}
		root, err = b.fromRecord(v, nil, 0, "")
	default:
		root, err = b.fromMap(raw, nil, 0, "")
	}
	if err != nil {
		return nil, err
	}

	debug.LogTiming(fmt.Sprintf("hierarchy.Build (%d nodes)", len(b.nodes)), time.Since(start))
	return &Tree{root: root, nodes: b.nodes}, nil
}

// MustBuild is Build for fixtures; it panics on malformed input.
func MustBuild(raw any) *Tree {
	t, err := Build(raw)
	if err != nil {
		panic(err)
	}
	return t
}

type builder struct {
	nodes []*Node
}

func (b *builder) add(n *Node, parent *Node, depth int) {
	n.parent = parent
	n.depth = depth
	n.index = len(b.nodes)
	b.nodes = append(b.nodes, n)
}

func (b *builder) fromRecord(r *Record, parent *Node, depth int, path string) (*Node, error) {
	if depth > MaxDepth {
		return nil, &MalformedInputError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d", MaxDepth)}
	}
	if r.Name == "" {
		return nil, &MalformedInputError{Path: path + "/name", Reason: "missing name"}
	}
	n := &Node{Name: r.Name}
	if len(r.Attributes) > 0 {
		n.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			n.Attributes[k] = v
		}
	}
	b.add(n, parent, depth)

	if r.Children != nil {
		n.hasChildren = true
		n.children = make([]*Node, 0, len(r.Children))
		for i := range r.Children {
			child, err := b.fromRecord(&r.Children[i], n, depth+1, fmt.Sprintf("%s/children/%d", path, i))
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
	}
	return n, nil
}

func (b *builder) fromMap(raw any, parent *Node, depth int, path string) (*Node, error) {
	if depth > MaxDepth {
		return nil, &MalformedInputError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d", MaxDepth)}
	}
	m, ok := asMap(raw)
	if !ok {
		return nil, &MalformedInputError{Path: path, Reason: fmt.Sprintf("expected a record, got %T", raw)}
	}

	nameVal, ok := m["name"]
	if !ok {
		return nil, &MalformedInputError{Path: path + "/name", Reason: "missing name"}
	}
	name, ok := nameVal.(string)
	if !ok {
		// Numeric names show up in generated process maps ("name": 1200).
		s, scalar := scalarString(nameVal)
		if !scalar || nameVal == nil {
			return nil, &MalformedInputError{Path: path + "/name", Reason: fmt.Sprintf("name must be a string, got %T", nameVal)}
		}
		name = s
	}
	if name == "" {
		return nil, &MalformedInputError{Path: path + "/name", Reason: "missing name"}
	}

	n := &Node{Name: name}
	attrs, err := collectAttributes(m, path)
	if err != nil {
		return nil, err
	}
	n.Attributes = attrs
	b.add(n, parent, depth)

	childrenVal, present := m["children"]
	if !present || childrenVal == nil {
		return n, nil
	}
	list, ok := childrenVal.([]any)
	if !ok {
		return nil, &MalformedInputError{Path: path + "/children", Reason: fmt.Sprintf("children must be a list, got %T", childrenVal)}
	}
	n.hasChildren = true
	n.children = make([]*Node, 0, len(list))
	for i, item := range list {
		child, err := b.fromMap(item, n, depth+1, fmt.Sprintf("%s/children/%d", path, i))
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

// collectAttributes merges unknown scalar fields with the explicit attributes
// mapping. Explicit attributes win on conflicts.
func collectAttributes(m map[string]any, path string) (map[string]string, error) {
	var attrs map[string]string
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch k {
		case "name", "children", "attributes":
			continue
		}
		s, ok := scalarString(m[k])
		if !ok {
			continue // nested structures outside attributes are ignored
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[k] = s
	}

	explicit, present := m["attributes"]
	if !present || explicit == nil {
		return attrs, nil
	}
	am, ok := asMap(explicit)
	if !ok {
		return nil, &MalformedInputError{Path: path + "/attributes", Reason: fmt.Sprintf("attributes must be a mapping, got %T", explicit)}
	}
	for k, v := range am {
		s, ok := scalarString(v)
		if !ok {
			return nil, &MalformedInputError{Path: path + "/attributes/" + k, Reason: fmt.Sprintf("attribute values must be scalars, got %T", v)}
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[k] = s
	}
	return attrs, nil
}

// asMap accepts the map shapes produced by JSON and YAML decoders.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}
