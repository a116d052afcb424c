package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/mindwork/internal/datasource"
	"github.com/vanderheijden86/mindwork/pkg/config"
	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
	"github.com/vanderheijden86/mindwork/pkg/render"
	"github.com/vanderheijden86/mindwork/pkg/session"
	"github.com/vanderheijden86/mindwork/pkg/ui"
	"github.com/vanderheijden86/mindwork/pkg/version"
	"github.com/vanderheijden86/mindwork/pkg/viewport"
	"github.com/vanderheijden86/mindwork/pkg/watcher"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole program. It returns the exit code so deferred cleanup
// (profile, metrics, watcher) runs on every path.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mw", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cpuProfile := fs.String("cpu-profile", "", "Write CPU profile to file")
	help := fs.Bool("help", false, "Show help")
	versionFlag := fs.Bool("version", false, "Show version")
	fileFlag := fs.String("file", "", "Mind map source file (json, yaml or sqlite)")
	dirFlag := fs.String("dir", "", "Directory of mind map sources")
	mapFlag := fs.String("map", "", "ID of the map to open")
	configFlag := fs.String("config", "", "Config file (default $XDG_CONFIG_HOME/mindwork/config.yaml)")
	snapshotFlag := fs.String("snapshot", "", "Write a static picture of the map to this path and exit")
	snapshotWizard := fs.Bool("snapshot-wizard", false, "Ask for snapshot options interactively and exit")
	formatFlag := fs.String("format", "", "Snapshot format: svg or png (default from extension)")
	robotFlag := fs.Bool("robot", false, "Print the visible set and view transform as JSON and exit")
	watchFlag := fs.Bool("watch", false, "Reload when sources change")
	noWatchFlag := fs.Bool("no-watch", false, "Disable live reload")
	metricsFlag := fs.Bool("metrics", false, "Print timing metrics as JSON to stderr on exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Fprintln(stdout, "Usage: mw [options]")
		fmt.Fprintln(stdout, "\nAn animated terminal viewer for hierarchical mind maps.")
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}

	if *versionFlag {
		fmt.Fprintf(stdout, "mw %s\n", version.Version)
		return 0
	}

	if *watchFlag && *noWatchFlag {
		fmt.Fprintln(stderr, "Error: --watch and --no-watch are mutually exclusive")
		return 2
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *metricsFlag {
		metrics.SetEnabled(true)
		defer printMetrics(stderr)
	}

	sources := resolveSources(*fileFlag, *dirFlag, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	maps, results, err := datasource.LoadAll(ctx, sources, datasource.LoadOptions{})
	cancel()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading mind maps: %v\n", err)
		return 1
	}
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(stderr, "Warning: %s: %v\n", r.Path, r.Error)
		}
	}
	if *mapFlag != "" {
		cfg.Sources.DefaultMap = *mapFlag
	}

	if *robotFlag || *snapshotFlag != "" || *snapshotWizard {
		mm, err := pickMap(maps, cfg.Sources.DefaultMap)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		switch {
		case *robotFlag:
			err = writeRobot(stdout, mm, viewOptions(cfg))
		case *snapshotWizard:
			err = runSnapshotWizard(mm, cfg)
		default:
			err = writeSnapshot(mm, cfg, render.SnapshotOptions{Path: *snapshotFlag, Format: *formatFlag, Title: mm.Title})
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if len(maps) == 0 {
		fmt.Fprintln(stdout, "No mind maps found. Point mw at a file with --file or a directory with --dir.")
		return 0
	}

	m := ui.NewModel(maps, cfg).WithSources(sources)

	watch := cfg.WatchEnabled()
	if *watchFlag {
		watch = true
	} else if *noWatchFlag {
		watch = false
	}
	if watch && len(sources) > 0 {
		w, err := startWatcher(sources[0], cfg.Watch)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: live reload disabled: %v\n", err)
		} else {
			if len(sources) > 1 {
				debug.Log("watch: only %s is watched, %d other sources reload on 'r'", sources[0], len(sources)-1)
			}
			m = m.WithWatcher(w)
		}
	}
	defer m.Stop()

	closeLog, err := openDebugLog()
	if err != nil {
		fmt.Fprintf(stderr, "Warning: debug log: %v\n", err)
	} else {
		defer closeLog()
	}

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(stderr, "Error running mind map viewer: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads an explicit config file, or the default one. A missing or
// broken default config falls back to the defaults.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err != nil {
		debug.Log("config: %v, using defaults", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

// resolveSources picks the paths to load: flags first, then the config,
// then the working directory.
func resolveSources(file, dir string, cfg config.Config) []string {
	var out []string
	if file != "" {
		out = append(out, file)
	}
	if dir != "" {
		out = append(out, dir)
	}
	if len(out) > 0 {
		return out
	}
	if paths := cfg.SourcePaths(); len(paths) > 0 {
		return paths
	}
	return []string{"."}
}

// pickMap returns the map with the given ID, or the first map when id is empty.
func pickMap(maps []datasource.MindMap, id string) (datasource.MindMap, error) {
	if len(maps) == 0 {
		return datasource.MindMap{}, errors.New("no mind maps found")
	}
	if id == "" {
		return maps[0], nil
	}
	mm, ok := datasource.FindMap(maps, id)
	if !ok {
		return datasource.MindMap{}, fmt.Errorf("map %q not found", id)
	}
	return mm, nil
}

func viewOptions(cfg config.Config) session.Options {
	v := cfg.View
	return session.Options{
		Size:            sizeOf(v.Width, v.Height),
		DepthSpacing:    v.DepthSpacing,
		InitialScale:    v.InitialScale,
		MinScale:        v.MinScale,
		MaxScale:        v.MaxScale,
		InitialCollapse: v.InitialCollapse,
	}
}

// robotNode is one visible node in --robot output.
type robotNode struct {
	Key               uint64            `json:"key"`
	Parent            uint64            `json:"parent,omitempty"`
	Name              string            `json:"name"`
	Path              string            `json:"path"`
	Depth             int               `json:"depth"`
	X                 float64           `json:"x"`
	Y                 float64           `json:"y"`
	Leaf              bool              `json:"leaf"`
	HasHiddenChildren bool              `json:"has_hidden_children"`
	Attributes        map[string]string `json:"attributes,omitempty"`
}

// robotOutput is the --robot document.
type robotOutput struct {
	MapID       string             `json:"map_id"`
	Title       string             `json:"title"`
	Breadcrumbs []string           `json:"breadcrumbs"`
	Transform   viewport.Transform `json:"transform"`
	Nodes       []robotNode        `json:"nodes"`
	TotalNodes  int                `json:"total_nodes"`
}

func robotView(mm datasource.MindMap, opts session.Options) (robotOutput, error) {
	s, err := session.New(mm.Data, opts)
	if err != nil {
		return robotOutput{}, fmt.Errorf("map %s: %w", mm.ID, err)
	}
	out := robotOutput{
		MapID:       mm.ID,
		Title:       mm.Title,
		Breadcrumbs: s.Breadcrumbs(),
		Transform:   s.Transform(),
		TotalNodes:  s.Tree().Len(),
	}
	for _, v := range s.Visible() {
		out.Nodes = append(out.Nodes, robotNode{
			Key:               uint64(v.Key),
			Parent:            uint64(v.Parent),
			Name:              v.Node.Name,
			Path:              hierarchy.PathString(v.Node),
			Depth:             v.Depth,
			X:                 v.Position.X,
			Y:                 v.Position.Y,
			Leaf:              v.Node.IsLeaf(),
			HasHiddenChildren: v.HasHiddenChildren,
			Attributes:        v.Node.Attributes,
		})
	}
	return out, nil
}

func writeRobot(w io.Writer, mm datasource.MindMap, opts session.Options) error {
	out, err := robotView(mm, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeSnapshot renders the initial view of mm. Width and height default to
// the configured layout size.
func writeSnapshot(mm datasource.MindMap, cfg config.Config, opts render.SnapshotOptions) error {
	vo := viewOptions(cfg)
	if opts.Width > 0 && opts.Height > 0 {
		vo.Size = sizeOf(opts.Width, opts.Height)
	}
	s, err := session.New(mm.Data, vo)
	if err != nil {
		return fmt.Errorf("map %s: %w", mm.ID, err)
	}
	opts.Breadcrumbs = s.Breadcrumbs()
	opts.Frame = render.Interpolate(s.Transition(), 1)
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = int(vo.Size.Width), int(vo.Size.Height)
	}
	if err := render.SaveSnapshot(opts); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Snapshot written (%d nodes)\n", len(opts.Frame.Nodes))
	return nil
}

func runSnapshotWizard(mm datasource.MindMap, cfg config.Config) error {
	title := mm.Title
	if title == "" {
		title = mm.ID
	}
	wc, err := render.NewWizard(title).Run()
	if err != nil {
		return err
	}
	return writeSnapshot(mm, cfg, render.SnapshotOptions{
		Path:   wc.Path,
		Format: wc.Format,
		Title:  wc.Title,
		Width:  wc.Width,
		Height: wc.Height,
	})
}

func startWatcher(path string, wc config.WatchConfig) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(path,
		watcher.WithDebounceDuration(wc.Debounce()),
		watcher.WithForcePoll(wc.ForcePoll),
		watcher.WithOnError(func(err error) { debug.Log("watch: %v", err) }),
		watcher.WithFilter(isSourceFile),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// metricsReport is the --metrics document written on exit.
type metricsReport struct {
	Timing   []metrics.TimingStats `json:"timing"`
	Counters map[string]int64      `json:"counters"`
}

func printMetrics(w io.Writer) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(metricsReport{Timing: metrics.AllTimingStats(), Counters: metrics.CounterValues()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: metrics: %v\n", err)
	}
}

// openDebugLog sends debug output to MW_DEBUG_FILE while the TUI owns the
// terminal. The returned func closes the file.
func openDebugLog() (func(), error) {
	path := os.Getenv("MW_DEBUG_FILE")
	if path == "" || !debug.Enabled() {
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	debug.SetOutput(f)
	return func() {
		debug.SetOutput(nil)
		f.Close()
	}, nil
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set MW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("MW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func isSourceFile(name string) bool {
	_, err := datasource.DetectSourceType(name)
	return err == nil
}

func sizeOf(w, h int) layout.Size {
	return layout.Size{Width: float64(w), Height: float64(h)}
}
