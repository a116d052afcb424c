// Package datasource discovers and loads mind maps from JSON, YAML and SQLite
// sources. A source holds one or more mind maps, each a titled root record.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a JSON file holding an array of mind maps or a single record
	SourceTypeJSON SourceType = "json"
	// SourceTypeYAML is the YAML equivalent of SourceTypeJSON
	SourceTypeYAML SourceType = "yaml"
	// SourceTypeSQLite is a SQLite database with a mindmaps table
	SourceTypeSQLite SourceType = "sqlite"
)

// Priority values for source types (higher = preferred when two sources
// carry a map with the same ID)
const (
	PrioritySQLite = 100
	PriorityJSON   = 80
	PriorityYAML   = 60
)

// ErrUnknownSourceType is returned for files that are not a supported source.
var ErrUnknownSourceType = errors.New("unknown source type")

// DataSource represents a potential source of mind maps
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the path to the source file
	Path string `json:"path"`
	// Priority determines preference on ID collisions (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// MapCount is the number of mind maps in the source (set during validation)
	MapCount int `json:"map_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, maps=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.MapCount, status)
}

// DetectSourceType maps a file path to its source type by extension.
func DetectSourceType(path string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SourceTypeJSON, nil
	case ".yaml", ".yml":
		return SourceTypeYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSourceType, path)
	}
}

func priorityOf(t SourceType) int {
	switch t {
	case SourceTypeSQLite:
		return PrioritySQLite
	case SourceTypeJSON:
		return PriorityJSON
	default:
		return PriorityYAML
	}
}

// NewDataSource stats path and describes it as a source.
func NewDataSource(path string) (DataSource, error) {
	typ, err := DetectSourceType(path)
	if err != nil {
		return DataSource{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, err
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%s is a directory", path)
	}
	return DataSource{
		Type:     typ,
		Path:     path,
		Priority: priorityOf(typ),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds every supported file directly inside dir, sorted by
// file name. Hidden files and editor backups are skipped.
func DiscoverSources(dir string, opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") ||
			strings.HasSuffix(name, "~") ||
			strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") {
			continue
		}
		src, err := NewDataSource(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		sources = append(sources, src)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", src.Type, src.Path, src.ModTime.Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return filepath.Base(sources[i].Path) < filepath.Base(sources[j].Path)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}
	return sources, nil
}

// ValidateSource loads the source and records whether it holds at least one
// well-formed mind map.
func ValidateSource(source *DataSource) error {
	maps, err := LoadFromSource(context.Background(), *source)
	if err != nil {
		source.Valid = false
		source.ValidationError = err.Error()
		return err
	}
	if len(maps) == 0 {
		source.Valid = false
		source.ValidationError = "no mind maps"
		return fmt.Errorf("%s: no mind maps", source.Path)
	}
	source.Valid = true
	source.ValidationError = ""
	source.MapCount = len(maps)
	return nil
}
