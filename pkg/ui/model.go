package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/mindwork/internal/datasource"
	"github.com/vanderheijden86/mindwork/pkg/config"
	"github.com/vanderheijden86/mindwork/pkg/debug"
	"github.com/vanderheijden86/mindwork/pkg/hierarchy"
	"github.com/vanderheijden86/mindwork/pkg/identity"
	"github.com/vanderheijden86/mindwork/pkg/layout"
	"github.com/vanderheijden86/mindwork/pkg/metrics"
	"github.com/vanderheijden86/mindwork/pkg/navigation"
	"github.com/vanderheijden86/mindwork/pkg/reconcile"
	"github.com/vanderheijden86/mindwork/pkg/render"
	"github.com/vanderheijden86/mindwork/pkg/session"
	zoom "github.com/vanderheijden86/mindwork/pkg/viewport"
	"github.com/vanderheijden86/mindwork/pkg/watcher"
)

// focus represents which pane receives keys
type focus int

const (
	focusOutline focus = iota
	focusDetails
	focusMaps
)

func (f focus) String() string {
	switch f {
	case focusDetails:
		return "details"
	case focusMaps:
		return "maps"
	default:
		return "outline"
	}
}

const (
	zoomStep = 1.25
	panCells = 4
)

// Model is the main Bubble Tea model for the mind map viewer. It is the
// single writer of the mounted session: watcher and loader results arrive
// as messages and are applied here.
type Model struct {
	cfg      config.Config
	theme    Theme
	maps     []datasource.MindMap
	mapList  list.Model
	sources  []string
	watcher  *watcher.Watcher
	loadedAt time.Time

	mapID string
	sess  *session.Session

	// Animation of the last transition
	anim    reconcile.Transition
	frame   render.Frame
	clock   render.Clock
	animGen int

	cursorKey identity.Key
	focused   focus
	finder    *NodeFinderModel
	showHelp  bool

	details    viewport.Model
	mdRenderer *glamour.TermRenderer
	mdWidth    int

	status    string
	statusErr bool

	width, height int
	ready         bool
	now           func() time.Time
}

// NewModel creates the viewer over the given maps and mounts the configured
// default map, or the first one.
func NewModel(maps []datasource.MindMap, cfg config.Config) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	l := list.New(mapItems(maps, cfg.MapFavoriteNumber, nil), MapDelegate{Theme: theme}, 0, 0)
	l.Title = "Maps"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	m := Model{
		cfg:      cfg,
		theme:    theme,
		maps:     maps,
		mapList:  l,
		loadedAt: time.Now(),
		clock:    render.Clock{Duration: cfg.View.Duration()},
		details:  viewport.New(40, 10),
		// Default dimensions for immediate ready state (updated when WindowSizeMsg arrives)
		width:  120,
		height: 40,
		ready:  true,
		now:    time.Now,
	}
	m.layoutPanes()

	if len(maps) > 0 {
		id := cfg.Sources.DefaultMap
		if _, ok := datasource.FindMap(maps, id); !ok {
			id = maps[0].ID
		}
		m.mount(id)
	} else {
		m.setStatus("no mind maps loaded", true)
	}
	return m
}

// WithSources sets the paths reloaded on file changes and on "r".
func (m Model) WithSources(paths []string) Model {
	m.sources = append([]string(nil), paths...)
	return m
}

// WithWatcher makes the model reload whenever w reports a change.
func (m Model) WithWatcher(w *watcher.Watcher) Model {
	m.watcher = w
	return m
}

// Stop releases background resources.
func (m Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	if m.clock.Running() {
		cmds = append(cmds, animTickCmd(m.animGen))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layoutPanes()
		cmd := m.resizeSession()
		return m, cmd

	case animTickMsg:
		cmd := m.advance(msg)
		return m, cmd

	case FileChangedMsg:
		var cmds []tea.Cmd
		if len(m.sources) > 0 {
			m.setStatus("source changed, reloading…", false)
			cmds = append(cmds, LoadMapsCmd(m.sources))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case MapsLoadedMsg:
		cmd := m.applyMaps(msg)
		return m, cmd

	case tea.MouseMsg:
		cmd := m.handleMouse(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.finder != nil {
		cmd := m.handleFinderKeys(msg)
		return m, cmd
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	// While the map list filters, every key belongs to it.
	if m.focused == focusMaps && m.mapList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.mapList, cmd = m.mapList.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "tab":
		m.cycleFocus()
		return m, nil
	case "r":
		if len(m.sources) == 0 {
			m.setStatus("nothing to reload", false)
			return m, nil
		}
		m.setStatus("reloading…", false)
		return m, LoadMapsCmd(m.sources)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := int(key[0] - '0')
		id := m.cfg.FavoriteMap(n)
		if id == "" {
			m.setStatus(fmt.Sprintf("no favorite on %d", n), false)
			return m, nil
		}
		cmd := m.mount(id)
		return m, cmd
	}

	switch m.focused {
	case focusMaps:
		cmd := m.handleMapKeys(msg)
		return m, cmd
	case focusDetails:
		switch key {
		case "j", "down", "k", "up", "pgdown", "pgup":
			var cmd tea.Cmd
			m.details, cmd = m.details.Update(msg)
			return m, cmd
		}
	}
	cmd := m.handleOutlineKeys(msg)
	return m, cmd
}

func (m *Model) handleMapKeys(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "enter" {
		if it, ok := m.mapList.SelectedItem().(MapItem); ok {
			cmd := m.mount(it.Map.ID)
			m.focused = focusOutline
			return cmd
		}
		return nil
	}
	var cmd tea.Cmd
	m.mapList, cmd = m.mapList.Update(msg)
	return cmd
}

func (m *Model) handleOutlineKeys(msg tea.KeyMsg) tea.Cmd {
	if m.sess == nil {
		return nil
	}
	rows := outlineRows(m.sess.Visible())
	cur := m.cursorIndex(rows)
	s := m.sess
	k := m.cursorKey

	switch msg.String() {
	case "j", "down":
		if cur < len(rows)-1 {
			m.cursorKey = rows[cur+1].Key
		}
	case "k", "up":
		if cur > 0 {
			m.cursorKey = rows[cur-1].Key
		}
	case "g", "home":
		m.cursorKey = rows[0].Key
	case "G", "end":
		m.cursorKey = rows[len(rows)-1].Key
	case " ", "space":
		return m.mutate(func() (reconcile.Transition, error) { return s.Toggle(k) })
	case "enter":
		if err := s.Select(k); err != nil {
			return m.fail(err)
		}
		m.refreshDetails()
	case "esc":
		s.ClearSelection()
		m.refreshDetails()
	case "d":
		return m.mutate(func() (reconcile.Transition, error) { return s.DrillInto(k) })
	case "b", "backspace":
		return m.mutate(s.GoBack)
	case "E":
		return m.mutate(func() (reconcile.Transition, error) { return s.ExpandAll(k) })
	case "C":
		return m.mutate(func() (reconcile.Transition, error) { return s.CollapseAll(k) })
	case "+", "=":
		m.zoomBy(zoomStep)
	case "-", "_":
		m.zoomBy(1 / zoomStep)
	case "H", "shift+left":
		m.pan(panCells, 0)
	case "L", "shift+right":
		m.pan(-panCells, 0)
	case "K", "shift+up":
		m.pan(0, panCells/2)
	case "J", "shift+down":
		m.pan(0, -panCells/2)
	case "0":
		m.frameView()
	case "/":
		root, _ := s.Keys().Resolve(s.Current())
		f := NewNodeFinderModel(root, s.Keys(), m.theme)
		m.finder = &f
	case "y":
		m.copyPath(k)
	}
	return nil
}

func (m *Model) handleFinderKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.finder = nil
		return nil
	case "enter":
		c, ok := m.finder.Selected()
		m.finder = nil
		if !ok {
			return nil
		}
		m.cursorKey = c.Key
		s := m.sess
		return m.mutate(func() (reconcile.Transition, error) { return s.Reveal(c.Key) })
	case "up", "ctrl+p":
		m.finder.MoveUp()
		return nil
	case "down", "ctrl+n":
		m.finder.MoveDown()
		return nil
	}
	return m.finder.Update(msg)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.sess == nil || m.finder != nil || m.showHelp {
		return nil
	}
	// Canvas panel starts after the sidebar, inside its border, below the header.
	x := msg.X - m.sidebarWidth() - 1
	y := msg.Y - 2
	c := m.canvas()
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return nil
	}
	anchor := layout.Point{X: float64(x) * c.CellWidth, Y: float64(y) * c.CellHeight}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.sess.ApplyGesture(zoom.Zoom(1.1, anchor))
	case msg.Button == tea.MouseButtonWheelDown:
		m.sess.ApplyGesture(zoom.Zoom(1/1.1, anchor))
	case msg.Action == tea.MouseActionPress && (msg.Button == tea.MouseButtonLeft || msg.Button == tea.MouseButtonRight):
		grid := c.Draw(m.frame, m.sess.Transform(), m.sess.SelectedKey())
		k, ok := grid.KeyAt(x, y)
		if !ok {
			return nil
		}
		m.cursorKey = k
		s := m.sess
		if msg.Button == tea.MouseButtonRight {
			return m.mutate(func() (reconcile.Transition, error) { return s.DrillInto(k) })
		}
		if err := s.Select(k); err != nil {
			return m.fail(err)
		}
		return m.mutate(func() (reconcile.Transition, error) { return s.Toggle(k) })
	}
	return nil
}

// mount opens the map with the given ID in a fresh session.
func (m *Model) mount(id string) tea.Cmd {
	mm, ok := datasource.FindMap(m.maps, id)
	if !ok {
		m.setStatus(fmt.Sprintf("no map %q", id), true)
		return nil
	}
	s, err := session.New(mm.Data, m.sessionOptions())
	if err != nil {
		m.setStatus(fmt.Sprintf("%s: %v", id, err), true)
		return nil
	}
	m.sess = s
	m.mapID = mm.ID
	m.cursorKey = s.Current()
	m.finder = nil
	m.clock = render.Clock{Duration: m.cfg.View.Duration()}
	m.frameView()
	m.selectListItem(mm.ID)
	m.setStatus(fmt.Sprintf("opened %s", MapItem{Map: mm}.Title()), false)
	debug.Log("ui: mounted %s (%d nodes)", mm.ID, s.Tree().Len())
	return m.apply(s.Transition(), nil)
}

func (m *Model) sessionOptions() session.Options {
	v := m.cfg.View
	pw, ph := m.canvas().PixelSize()
	return session.Options{
		Size:            layout.Size{Width: pw, Height: ph},
		DepthSpacing:    v.DepthSpacing,
		InitialScale:    v.InitialScale,
		MinScale:        v.MinScale,
		MaxScale:        v.MaxScale,
		InitialCollapse: v.InitialCollapse,
	}
}

// applyMaps swaps in a reloaded set of maps and reconciles the open one.
func (m *Model) applyMaps(msg MapsLoadedMsg) tea.Cmd {
	if msg.Err != nil {
		m.setStatus(fmt.Sprintf("reload failed: %v", msg.Err), true)
		return nil
	}
	diff := datasource.DiffMaps(m.maps, msg.Maps)
	m.maps = msg.Maps
	m.loadedAt = time.Now()
	m.mapList.SetItems(mapItems(m.maps, m.cfg.MapFavoriteNumber, &diff))
	m.selectListItem(m.mapID)

	summary := diff.Summary()
	if n := failedFiles(msg.Results); n > 0 {
		summary += fmt.Sprintf(" (%d files failed)", n)
	}

	if m.sess == nil {
		if len(m.maps) == 0 {
			m.setStatus("reload: "+summary, false)
			return nil
		}
		return m.mount(m.maps[0].ID)
	}
	if !diff.Touches(m.mapID) {
		m.setStatus("reload: "+summary, false)
		return nil
	}

	mm, ok := datasource.FindMap(m.maps, m.mapID)
	if !ok {
		m.setStatus(fmt.Sprintf("map %s was removed from its source", m.mapID), true)
		return nil
	}
	m.interrupt()
	stats, tr, err := m.sess.Reload(mm.Data)
	if err != nil {
		m.setStatus(fmt.Sprintf("reload %s: %v", m.mapID, err), true)
		return nil
	}
	cmd := m.apply(tr, nil)
	m.setStatus(fmt.Sprintf("reload: %s; %s", summary, stats), false)
	return cmd
}

// mutate runs op against the session and animates its transition. A
// transition still in flight restarts from where its nodes are drawn.
func (m *Model) mutate(op func() (reconcile.Transition, error)) tea.Cmd {
	if m.sess == nil {
		return nil
	}
	m.interrupt()
	tr, err := op()
	return m.apply(tr, err)
}

func (m *Model) interrupt() {
	if m.sess != nil && m.clock.Running() {
		m.sess.Interrupt(m.frame.Positions())
	}
}

func (m *Model) apply(tr reconcile.Transition, err error) tea.Cmd {
	if err != nil {
		return m.fail(err)
	}
	m.syncCursor()
	m.refreshDetails()
	if len(tr.Enter)+len(tr.Update)+len(tr.Exit) == 0 {
		return nil
	}
	m.anim = tr
	m.animGen++
	m.clock.Start(m.now())
	m.frame = render.Interpolate(tr, 0)
	return animTickCmd(m.animGen)
}

func (m *Model) fail(err error) tea.Cmd {
	switch {
	case errors.Is(err, navigation.ErrAtRoot):
		m.setStatus("already at the top of the map", false)
	case errors.Is(err, navigation.ErrNotDescendant):
		m.setStatus("pick a node below the current root", false)
	case errors.Is(err, reconcile.ErrStaleReference):
		debug.Log("ui: %v, rebuilding", err)
		if rerr := m.sess.Rebuild(); rerr != nil {
			m.setStatus(rerr.Error(), true)
			return nil
		}
		m.cursorKey = m.sess.Current()
		m.frameView()
		cmd := m.apply(m.sess.Transition(), nil)
		m.setStatus("view was out of date and has been rebuilt", true)
		return cmd
	default:
		m.setStatus(err.Error(), true)
	}
	return nil
}

func (m *Model) advance(msg animTickMsg) tea.Cmd {
	if msg.gen != m.animGen || !m.clock.Running() {
		return nil
	}
	p := m.clock.Tick(msg.at)
	m.frame = render.Interpolate(m.anim, p)
	if m.clock.Running() {
		return animTickCmd(m.animGen)
	}
	return nil
}

// syncCursor keeps the cursor on a visible row, falling back to the nearest
// visible ancestor of the node it was on.
func (m *Model) syncCursor() {
	if m.sess == nil {
		return
	}
	rows := outlineRows(m.sess.Visible())
	if len(rows) == 0 || indexOf(rows, m.cursorKey) >= 0 {
		return
	}
	keys := m.sess.Keys()
	if n, ok := keys.Resolve(m.cursorKey); ok {
		for p := n.Parent(); p != nil; p = p.Parent() {
			k, known := keys.Lookup(p)
			if known && indexOf(rows, k) >= 0 {
				m.cursorKey = k
				return
			}
		}
	}
	m.cursorKey = rows[0].Key
}

func (m Model) cursorIndex(rows []outlineRow) int {
	return max(indexOf(rows, m.cursorKey), 0)
}

func (m *Model) zoomBy(f float64) {
	if m.sess == nil {
		return
	}
	pw, ph := m.canvas().PixelSize()
	t := m.sess.ApplyGesture(zoom.Zoom(f, layout.Point{X: pw / 2, Y: ph / 2}))
	m.setStatus(fmt.Sprintf("zoom %.2fx", t.Scale), false)
}

func (m *Model) pan(cols, rows int) {
	if m.sess == nil {
		return
	}
	c := m.canvas()
	m.sess.ApplyGesture(zoom.Pan(float64(cols)*c.CellWidth, float64(rows)*c.CellHeight))
}

// frameView restores the initial zoom and puts the view root at the left
// edge of the canvas, vertically centered.
func (m *Model) frameView() {
	if m.sess == nil {
		return
	}
	tr := m.sess.Recenter()
	vis := m.sess.Visible()
	if len(vis) == 0 {
		return
	}
	c := m.canvas()
	_, ph := c.PixelSize()
	p := tr.Apply(vis[0].Position)
	m.sess.ApplyGesture(zoom.Pan(2*c.CellWidth-p.X, ph/2-p.Y))
}

func (m *Model) copyPath(k identity.Key) {
	n, ok := m.sess.Keys().Resolve(k)
	if !ok {
		return
	}
	path := hierarchy.PathString(n)
	if err := clipboard.WriteAll(path); err != nil {
		m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
		return
	}
	m.setStatus("copied "+path, false)
}

func (m *Model) cycleFocus() {
	switch m.focused {
	case focusOutline:
		m.focused = focusDetails
	case focusDetails:
		if m.sidebarWidth() > 0 {
			m.focused = focusMaps
		} else {
			m.focused = focusOutline
		}
	default:
		m.focused = focusOutline
	}
}

func (m *Model) selectListItem(id string) {
	for i, it := range m.mapList.Items() {
		if mi, ok := it.(MapItem); ok && mi.Map.ID == id {
			m.mapList.Select(i)
			return
		}
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
	if isErr {
		debug.Log("ui: %s", msg)
	}
}

// refreshDetails re-renders the details pane for the current selection.
func (m *Model) refreshDetails() {
	if m.mdRenderer == nil || m.mdWidth != m.details.Width {
		m.mdRenderer = newMarkdownRenderer(m.details.Width - 2)
		m.mdWidth = m.details.Width
	}
	m.details.SetContent(renderMarkdown(m.mdRenderer, detailsMarkdown(m.sess)))
	m.details.GotoTop()
}

// resizeSession fits the layout extent to the new canvas; nodes glide to
// their new places from wherever they are drawn.
func (m *Model) resizeSession() tea.Cmd {
	if m.sess == nil {
		return nil
	}
	m.interrupt()
	pw, ph := m.canvas().PixelSize()
	tr, err := m.sess.Resize(layout.Size{Width: pw, Height: ph})
	if err != nil {
		return m.fail(err)
	}
	m.frameView()
	return m.apply(tr, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// LAYOUT
// ══════════════════════════════════════════════════════════════════════════════

func (m Model) bodyHeight() int {
	return max(m.height-2, 4) // header + footer
}

func (m Model) sidebarWidth() int {
	if len(m.maps) < 2 {
		return 0
	}
	return min(28, max(m.width/5, 16))
}

func (m Model) rightWidth() int {
	w := max(32, m.width/3)
	if rest := m.width - m.sidebarWidth() - w; rest < 20 {
		w = max(m.width-m.sidebarWidth()-20, 0)
	}
	return w
}

func (m Model) canvasWidth() int {
	return max(m.width-m.sidebarWidth()-m.rightWidth(), 3)
}

func (m Model) outlineHeight() int {
	return m.bodyHeight() / 2
}

// canvas returns the rasterizer sized to the inside of the canvas panel.
func (m Model) canvas() render.Canvas {
	c := render.NewCanvas(max(m.canvasWidth()-2, 1), max(m.bodyHeight()-2, 1))
	c.LabelWidth = 16
	return c
}

func (m *Model) layoutPanes() {
	if w := m.sidebarWidth(); w > 0 {
		m.mapList.SetSize(w-2, m.bodyHeight()-2)
	}
	m.details.Width = max(m.rightWidth()-2, 1)
	m.details.Height = max(m.bodyHeight()-m.outlineHeight()-2, 1)
	m.refreshDetails()
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEW
// ══════════════════════════════════════════════════════════════════════════════

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()

	var body string
	if m.showHelp {
		body = m.renderHelpOverlay()
	} else {
		body = m.renderBody()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	t := m.theme
	left := t.Header.Render("mindwork")
	if m.sess == nil {
		return left
	}
	title := m.mapID
	if mm, ok := datasource.FindMap(m.maps, m.mapID); ok {
		title = MapItem{Map: mm}.Title()
	}
	crumbs := strings.Join(m.sess.Breadcrumbs(), " › ")
	line := left + " " + t.PrimaryBold.Render(title) + t.MutedText.Render(" │ ") + crumbs
	return truncateANSI(line, m.width)
}

func (m Model) renderBody() string {
	h := m.bodyHeight()
	var cols []string

	if w := m.sidebarWidth(); w > 0 {
		cols = append(cols, panel(m.mapList.View(), w, h, m.focused == focusMaps))
	}

	c := m.canvas()
	var canvasContent string
	if m.sess != nil {
		grid := c.Draw(m.frame, m.sess.Transform(), m.sess.SelectedKey())
		canvasContent = strings.Join(grid.Lines(m.theme.CanvasStyler()), "\n")
	} else {
		canvasContent = m.theme.MutedText.Render(m.status)
	}
	cols = append(cols, panel(canvasContent, m.canvasWidth(), h, false))

	rw := m.rightWidth()
	if rw > 0 {
		oh := m.outlineHeight()
		var top string
		if m.finder != nil {
			top = panel(m.finder.View(rw-2, oh-2), rw, oh, true)
		} else {
			var rows []outlineRow
			sel := identity.None
			if m.sess != nil {
				rows = outlineRows(m.sess.Visible())
				sel = m.sess.SelectedKey()
			}
			top = panel(renderOutline(m.theme, rows, m.cursorIndex(rows), sel, rw-2, oh-2), rw, oh, m.focused == focusOutline)
		}
		bottom := panel(m.details.View(), rw, h-oh, m.focused == focusDetails)
		cols = append(cols, lipgloss.JoinVertical(lipgloss.Left, top, bottom))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderFooter() string {
	t := m.theme
	var left string
	switch {
	case m.status != "" && m.statusErr:
		left = t.ErrorText.Render(m.status)
	case m.status != "":
		left = t.InfoText.Render(m.status)
	}

	hints := []string{RenderKeyHint("space", "toggle"), RenderKeyHint("d", "drill")}
	if m.sess != nil && !m.sess.AtRoot() {
		hints = append(hints, RenderKeyHint("b", "back"))
	}
	hints = append(hints, RenderKeyHint("/", "find"), RenderKeyHint("?", "help"))

	var right []string
	if m.sess != nil {
		right = append(right,
			RenderCountBadge(len(m.sess.Visible()), "node"),
			t.MutedText.Render(fmt.Sprintf("%.2fx", m.sess.Transform().Scale)))
	}
	right = append(right, t.MutedText.Render("loaded "+FormatTimeRel(m.loadedAt)))

	line := strings.Join(hints, "  ")
	if left != "" {
		line = left + "  " + line
	}
	r := strings.Join(right, " ")
	gap := m.width - lipgloss.Width(line) - lipgloss.Width(r)
	if gap < 1 {
		return truncateANSI(line, m.width)
	}
	return line + strings.Repeat(" ", gap) + r
}

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"Outline", [][2]string{
		{"j/k", "move cursor"},
		{"space", "expand / collapse"},
		{"enter", "select, show details"},
		{"E / C", "expand / collapse subtree"},
		{"d", "drill into node"},
		{"b", "back to parent root"},
		{"/", "find node"},
		{"y", "copy node path"},
	}},
	{"View", [][2]string{
		{"+ / -", "zoom"},
		{"H J K L", "pan"},
		{"0", "recenter"},
		{"click", "select and toggle"},
		{"right click", "drill into"},
	}},
	{"General", [][2]string{
		{"tab", "switch pane"},
		{"1-9", "open favorite map"},
		{"r", "reload sources"},
		{"q", "quit"},
	}},
}

func (m *Model) renderHelpOverlay() string {
	t := m.theme
	var sb strings.Builder
	for i, sec := range helpSections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.PrimaryBold.Render(sec.title))
		sb.WriteString("\n")
		for _, kv := range sec.keys {
			sb.WriteString("  ")
			sb.WriteString(t.InfoText.Render(padRight(kv[0], 12)))
			sb.WriteString(kv[1])
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(t.MutedText.Render("press any key to close"))
	box := FocusedPanelStyle.Padding(1, 2).Render(sb.String())
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
}

// truncateANSI cuts a styled line to width cells.
func truncateANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCESSORS (tests and the CLI)
// ══════════════════════════════════════════════════════════════════════════════

// Session returns the mounted session, nil when no map is open.
func (m Model) Session() *session.Session { return m.sess }

// MapID returns the ID of the open map.
func (m Model) MapID() string { return m.mapID }

// FocusState returns the focused pane name.
func (m Model) FocusState() string { return m.focused.String() }

// Status returns the status line text.
func (m Model) Status() string { return m.status }

// Animating reports whether a transition is running.
func (m Model) Animating() bool { return m.clock.Running() }
