package datasource

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
)

// MindMap is one titled hierarchy as served by a mind map backend:
// {"id": ..., "title": ..., "data": {name, children}}.
type MindMap struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Data   any    `json:"data" yaml:"data"`
	Source string `json:"source,omitempty" yaml:"-"`
}

// Build parses the map's data into a hierarchy.
func (m MindMap) Build() (*hierarchy.Tree, error) {
	tree, err := hierarchy.Build(m.Data)
	if err != nil {
		return nil, fmt.Errorf("mind map %s: %w", m.ID, err)
	}
	return tree, nil
}

// LoadFile loads every mind map in the file at path.
func LoadFile(ctx context.Context, path string) ([]MindMap, error) {
	src, err := NewDataSource(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(ctx, src)
}

// LoadFromSource loads mind maps from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source DataSource) ([]MindMap, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	var (
		maps []MindMap
		err  error
	)
	switch source.Type {
	case SourceTypeSQLite:
		reader, rerr := NewSQLiteReader(source)
		if rerr != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, rerr)
		}
		defer reader.Close()
		maps, err = reader.LoadMaps(ctx)

	case SourceTypeJSON, SourceTypeYAML:
		data, rerr := os.ReadFile(source.Path)
		if rerr != nil {
			return nil, rerr
		}
		maps, err = Decode(data, source.Type, defaultID(source.Path))

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSourceType, source.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source.Path, err)
	}
	for i := range maps {
		maps[i].Source = source.Path
	}
	debug.Log("datasource: loaded %d maps from %s", len(maps), source.Path)
	return maps, nil
}

func defaultID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Decode reads JSON or YAML holding either an array of mind maps or a single
// root record. Bare records get IDs derived from idPrefix and their name as
// title.
func Decode(data []byte, typ SourceType, idPrefix string) ([]MindMap, error) {
	var raw any
	switch typ {
	case SourceTypeYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", hierarchy.ErrMalformedInput, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", hierarchy.ErrMalformedInput, err)
		}
	}

	switch v := raw.(type) {
	case []any:
		out := make([]MindMap, 0, len(v))
		for i, item := range v {
			m, err := asMindMap(item, idPrefix, i, len(v) > 1)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, m)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		m, err := asMindMap(v, idPrefix, 0, false)
		if err != nil {
			return nil, err
		}
		return []MindMap{m}, nil
	}
}

// asMindMap accepts either the {id, title, data} envelope or a bare record.
func asMindMap(item any, idPrefix string, index int, numbered bool) (MindMap, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return MindMap{}, fmt.Errorf("%w: expected an object, got %T", hierarchy.ErrMalformedInput, item)
	}
	id := idPrefix
	if numbered {
		id = idPrefix + "-" + strconv.Itoa(index+1)
	}

	if data, ok := obj["data"]; ok {
		m := MindMap{ID: id, Data: data}
		if v, ok := obj["id"]; ok {
			m.ID = fmt.Sprint(v)
		}
		if v, ok := obj["title"].(string); ok {
			m.Title = v
		}
		if m.Title == "" {
			if rec, ok := data.(map[string]any); ok {
				m.Title, _ = rec["name"].(string)
			}
		}
		return m, nil
	}

	title, _ := obj["name"].(string)
	return MindMap{ID: id, Title: title, Data: obj}, nil
}

// FileResult is the outcome of loading one file of a batch.
type FileResult struct {
	Path  string
	Maps  []MindMap
	Error error
}

// LoadOptions bounds a batch load.
type LoadOptions struct {
	// Concurrency limits parallel file loads (default 8).
	Concurrency int
}

// LoadAll loads every path (files or directories) in parallel. Results are
// merged in argument order, directory entries in file-name order. Per-file
// failures are reported in the results and do not abort the batch; a map ID
// already seen is skipped. Only context cancellation is fatal.
func LoadAll(ctx context.Context, paths []string, opts LoadOptions) ([]MindMap, []FileResult, error) {
	defer debug.LogEnterExit("datasource.LoadAll")()

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			files = append(files, p) // reported per file below
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		sources, err := DiscoverSources(p, DiscoveryOptions{})
		if err != nil {
			return nil, nil, err
		}
		for _, s := range sources {
			files = append(files, s.Path)
		}
	}

	results, err := loadParallel(ctx, files, opts)
	if err != nil {
		return nil, results, fmt.Errorf("fatal error during parallel loading: %w", err)
	}

	var all []MindMap
	seen := make(map[string]string)
	for _, r := range results {
		if r.Error != nil {
			debug.Log("datasource: %s: %v", r.Path, r.Error)
			continue
		}
		for _, m := range r.Maps {
			if first, dup := seen[m.ID]; dup {
				debug.Log("datasource: map %s in %s already loaded from %s", m.ID, r.Path, first)
				continue
			}
			seen[m.ID] = r.Path
			all = append(all, m)
		}
	}
	return all, results, nil
}

func loadParallel(ctx context.Context, files []string, opts LoadOptions) ([]FileResult, error) {
	results := make([]FileResult, len(files))

	limit := opts.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			maps, err := LoadFile(ctx, path)
			results[i] = FileResult{Path: path, Maps: maps, Error: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// FindMap returns the map with the given ID.
func FindMap(maps []MindMap, id string) (MindMap, bool) {
	for _, m := range maps {
		if m.ID == id {
			return m, true
		}
	}
	return MindMap{}, false
}
