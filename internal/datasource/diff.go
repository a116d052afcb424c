package datasource

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// MapDiff describes how a freshly loaded set of mind maps differs from the
// previous one. A live reload uses it to decide whether the open map needs
// reconciling.
type MapDiff struct {
	Added   []string
	Removed []string
	Changed []string
	// Retitled maps changed only their title.
	Retitled []string
}

// HasChanges returns true if anything differs
func (d MapDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0 || len(d.Retitled) > 0
}

// Touches reports whether the map with the given ID was changed or removed.
func (d MapDiff) Touches(id string) bool {
	for _, list := range [][]string{d.Changed, d.Removed} {
		for _, v := range list {
			if v == id {
				return true
			}
		}
	}
	return false
}

// Summary returns a human-readable summary of the differences
func (d MapDiff) Summary() string {
	if !d.HasChanges() {
		return "no changes"
	}
	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := len(d.Changed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d changed", n))
	}
	if n := len(d.Retitled); n > 0 {
		parts = append(parts, fmt.Sprintf("%d retitled", n))
	}
	return strings.Join(parts, ", ")
}

// DiffMaps compares two loads by map ID. Map data is compared by its
// canonical JSON encoding.
func DiffMaps(prev, next []MindMap) MapDiff {
	var d MapDiff
	old := make(map[string]MindMap, len(prev))
	for _, m := range prev {
		old[m.ID] = m
	}
	for _, m := range next {
		o, ok := old[m.ID]
		if !ok {
			d.Added = append(d.Added, m.ID)
			continue
		}
		delete(old, m.ID)
		switch {
		case !sameData(o.Data, m.Data):
			d.Changed = append(d.Changed, m.ID)
		case o.Title != m.Title:
			d.Retitled = append(d.Retitled, m.ID)
		}
	}
	for id := range old {
		d.Removed = append(d.Removed, id)
	}
	sort.Strings(d.Removed)
	return d
}

func sameData(a, b any) bool {
	// encoding sorts map keys, so equal trees encode identically
	ea, err1 := json.Marshal(a)
	eb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
