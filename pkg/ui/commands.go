package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/mindwork/internal/datasource"
	"github.com/vanderheijden86/mindwork/pkg/watcher"
)

// FileChangedMsg is sent when a watched source changes on disk.
type FileChangedMsg struct{}

// MapsLoadedMsg carries a freshly loaded set of mind maps.
type MapsLoadedMsg struct {
	Maps    []datasource.MindMap
	Results []datasource.FileResult
	Err     error
}

// animTickMsg advances the running transition. Ticks of an older
// generation are dropped.
type animTickMsg struct {
	gen int
	at  time.Time
}

// frameInterval is one animation frame (~60fps).
const frameInterval = time.Second / 60

func animTickCmd(gen int) tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return animTickMsg{gen: gen, at: t}
	})
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// LoadMapsCmd reloads every source path off the update loop.
func LoadMapsCmd(paths []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		maps, results, err := datasource.LoadAll(ctx, paths, datasource.LoadOptions{})
		return MapsLoadedMsg{Maps: maps, Results: results, Err: err}
	}
}

// failedFiles counts results that did not load.
func failedFiles(results []datasource.FileResult) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}
