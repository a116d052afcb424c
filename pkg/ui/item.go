package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/vanderheijden86/mindwork/internal/datasource"
)

// MapItem wraps a loaded mind map to implement list.Item
type MapItem struct {
	Map      datasource.MindMap
	Favorite int  // 1-9 when bound to a number key, 0 otherwise
	Changed  bool // touched by the last reload
}

func (i MapItem) Title() string {
	if i.Map.Title != "" {
		return i.Map.Title
	}
	return i.Map.ID
}

func (i MapItem) Description() string {
	if i.Map.Source == "" {
		return i.Map.ID
	}
	return fmt.Sprintf("%s • %s", i.Map.ID, filepath.Base(i.Map.Source))
}

func (i MapItem) FilterValue() string {
	var sb strings.Builder
	sb.WriteString(i.Map.ID)
	if i.Map.Title != "" {
		sb.WriteString(" ")
		sb.WriteString(i.Map.Title)
	}
	if i.Map.Source != "" {
		sb.WriteString(" ")
		sb.WriteString(filepath.Base(i.Map.Source))
	}
	return sb.String()
}

// mapItems converts maps into list items, marking favorites and the maps
// touched by diff.
func mapItems(maps []datasource.MindMap, favorite func(id string) int, diff *datasource.MapDiff) []list.Item {
	items := make([]list.Item, len(maps))
	for i, mm := range maps {
		it := MapItem{Map: mm}
		if favorite != nil {
			it.Favorite = favorite(mm.ID)
		}
		if diff != nil {
			it.Changed = diff.Touches(mm.ID)
		}
		items[i] = it
	}
	return items
}
