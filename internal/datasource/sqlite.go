package datasource

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/mindwork/pkg/debug"
)

// SQLiteReader provides read access to a mind map SQLite database with a
// table mindmaps(id TEXT, title TEXT, data TEXT), data holding the root
// record as JSON.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode so a viewer never locks out the writer
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000", // 16MB cache
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s: %v", pragma, err)
		}
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadMaps reads all mind maps in insertion order.
func (r *SQLiteReader) LoadMaps(ctx context.Context) ([]MindMap, error) {
	return r.LoadMapsFiltered(ctx, nil)
}

// LoadMapsFiltered reads the mind maps whose id and title pass filter.
// Rows with undecodable data are skipped.
func (r *SQLiteReader) LoadMapsFiltered(ctx context.Context, filter func(id, title string) bool) ([]MindMap, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, data FROM mindmaps ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var maps []MindMap
	for rows.Next() {
		var id string
		var title, data sql.NullString
		if err := rows.Scan(&id, &title, &data); err != nil {
			continue
		}
		if filter != nil && !filter(id, title.String) {
			continue
		}
		var raw any
		if err := json.Unmarshal([]byte(data.String), &raw); err != nil {
			debug.Log("datasource: %s: map %s: %v", r.path, id, err)
			continue
		}
		m := MindMap{ID: id, Title: title.String, Data: raw}
		if m.Title == "" {
			if rec, ok := raw.(map[string]any); ok {
				m.Title, _ = rec["name"].(string)
			}
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mind maps: %w", err)
	}
	return maps, nil
}

// CountMaps returns the number of rows in the mindmaps table
func (r *SQLiteReader) CountMaps(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mindmaps").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetMapByID retrieves a single mind map by ID
func (r *SQLiteReader) GetMapByID(ctx context.Context, id string) (*MindMap, error) {
	maps, err := r.LoadMapsFiltered(ctx, func(mid, _ string) bool { return mid == id })
	if err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		return nil, fmt.Errorf("mind map not found: %s", id)
	}
	return &maps[0], nil
}
