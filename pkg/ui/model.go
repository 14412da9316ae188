package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/vanderheijden86/graph3d/pkg/datestate"
	"github.com/vanderheijden86/graph3d/pkg/debug"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/projection"
	"github.com/vanderheijden86/graph3d/pkg/simulation"
	"github.com/vanderheijden86/graph3d/pkg/watcher"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const (
	orbitStep = math.Pi / 24
	tiltStep  = math.Pi / 36
	zoomStep  = 1.25
)

// FrameMsg is sent after the session applied a date change.
type FrameMsg struct {
	State datestate.State
}

// FileChangedMsg is sent when a watched data file changes on disk.
type FileChangedMsg struct {
	Paths []string
}

// ReloadedMsg carries the result of re-reading the dataset.
type ReloadedMsg struct {
	Graph model.Graph
	Err   error
}

// Reloader re-reads the dataset, typically from the files being watched.
type Reloader func() (model.Graph, error)

// WaitForFrameCmd blocks until the session reports a date change.
func WaitForFrameCmd(frames <-chan datestate.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-frames
		if !ok {
			return nil
		}
		return FrameMsg{State: st}
	}
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		paths, ok := <-w.Changed()
		if !ok {
			return nil
		}
		return FileChangedMsg{Paths: paths}
	}
}

// ReloadCmd runs the reloader off the UI goroutine.
func ReloadCmd(r Reloader) tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		g, err := r()
		return ReloadedMsg{Graph: g, Err: err}
	}
}

// Option configures a Model.
type Option func(*Model)

// WithTheme overrides the default theme.
func WithTheme(t Theme) Option {
	return func(m *Model) { m.theme = t }
}

// WithDataset sets the dataset name shown in the header.
func WithDataset(name string) Option {
	return func(m *Model) { m.dataset = name }
}

// WithWatcher enables live reload. The reloader is called for every change.
func WithWatcher(w *watcher.Watcher, r Reloader) Option {
	return func(m *Model) {
		m.watcher = w
		m.reload = r
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copyText = fn }
}

// WithMarkdownStyle picks the detail pane style: auto, dark or light.
func WithMarkdownStyle(style string) Option {
	return func(m *Model) { m.mdStyle = style }
}

// WithDetailPane opens the detail pane on start.
func WithDetailPane(on bool) Option {
	return func(m *Model) { m.showDetail = on }
}

// WithSize sets the initial terminal size, before the first WindowSizeMsg.
func WithSize(width, height int) Option {
	return func(m *Model) {
		m.width = width
		m.height = height
	}
}

// Model is the bubbletea model for the money-flow viewer.
type Model struct {
	session *simulation.Session
	frames  chan datestate.State
	theme   Theme
	dataset string

	watcher  *watcher.Watcher
	reload   Reloader
	copyText func(string) error

	width  int
	height int
	cursor int
	camera projection.Camera

	showHelp   bool
	showDetail bool
	detail     viewport.Model
	md         *glamour.TermRenderer
	mdStyle    string
	mdWidth    int

	date      *dateForm
	statusMsg string
	statusErr bool
	quitting  bool
}

// NewModel wires a model to the session. The session observer is replaced:
// date changes are forwarded to the model as FrameMsg.
func NewModel(s *simulation.Session, opts ...Option) Model {
	m := Model{
		session:  s,
		frames:   make(chan datestate.State, 1),
		copyText: clipboard.WriteAll,
		width:    100,
		height:   30,
		detail:   viewport.New(40, 10),
	}
	m.theme = DefaultTheme(lipgloss.DefaultRenderer())
	for _, opt := range opts {
		opt(&m)
	}

	frames := m.frames
	s.OnChange(func(st datestate.State) {
		// Drop the update if one is already queued; View always reads the
		// latest snapshot.
		select {
		case frames <- st:
		default:
		}
	})

	m.reframe()
	m.resize(m.width, m.height)
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{WaitForFrameCmd(m.frames)}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m *Model) reframe() {
	m.camera = projection.Frame(m.session.Snapshot().Nodes)
}

// layout splits the terminal: list | canvas, with the detail pane under the
// canvas when open.
func (m Model) layout() (listW, canvasW, canvasH, detailH int) {
	bodyH := max(m.height-2, 3)
	listW = clamp(m.width/3, 24, 40)
	if listW > m.width/2 {
		listW = m.width / 2
	}
	canvasW = max(m.width-listW-1, 1)
	canvasH = bodyH
	if m.showDetail {
		detailH = max(bodyH/3, 4)
		canvasH = max(bodyH-detailH, 1)
	}
	return listW, canvasW, canvasH, detailH
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	_, canvasW, _, detailH := m.layout()
	m.detail.Width = canvasW
	m.detail.Height = max(detailH-2, 1)

	wrap := max(canvasW-4, 20)
	if m.md == nil || wrap != m.mdWidth {
		r, err := newMarkdownRenderer(m.mdStyle, wrap)
		if err != nil {
			debug.Log("ui: markdown renderer: %v", err)
		}
		m.md = r
		m.mdWidth = wrap
	}
	m.refreshDetail()
}

// detailNode is the focused node, or the node under the cursor.
func (m Model) detailNode(snap simulation.Snapshot) (model.PositionedNode, bool) {
	if snap.HasSelection {
		for _, n := range snap.Nodes {
			if n.ID == snap.Selected {
				return n, true
			}
		}
	}
	if m.cursor >= 0 && m.cursor < len(snap.Nodes) {
		return snap.Nodes[m.cursor], true
	}
	return model.PositionedNode{}, false
}

func (m *Model) refreshDetail() {
	if !m.showDetail {
		return
	}
	snap := m.session.Snapshot()
	n, ok := m.detailNode(snap)
	if !ok {
		m.detail.SetContent(m.theme.MutedText.Render("No nodes loaded"))
		return
	}
	m.detail.SetContent(renderMarkdown(m.md, nodeMarkdown(n, m.session.Graph(), snap)))
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case FrameMsg:
		m.refreshDetail()
		return m, WaitForFrameCmd(m.frames)

	case FileChangedMsg:
		debug.Log("ui: data changed: %s", strings.Join(msg.Paths, ", "))
		m.setStatus("Reloading data…", false)
		return m, tea.Batch(ReloadCmd(m.reload), WatchFileCmd(m.watcher))

	case ReloadedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Reload failed: %v", msg.Err), true)
			return m, nil
		}
		m.session.Reload(msg.Graph)
		m.reframe()
		m.cursor = clamp(m.cursor, 0, max(len(msg.Graph.Nodes)-1, 0))
		m.setStatus(fmt.Sprintf("Reloaded %d nodes, %d edges", len(msg.Graph.Nodes), len(msg.Graph.Edges)), false)
		m.refreshDetail()
		return m, nil
	}

	// huh.Form needs every message type, not just keys, for its internal
	// navigation to work.
	if m.date != nil {
		return m.updateDateForm(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m Model) updateDateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.date = nil
		m.setStatus("Date jump cancelled", false)
		return m, nil
	}

	updated, cmd := m.date.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.date.form = f
	}

	switch m.date.form.State {
	case huh.StateCompleted:
		d, err := m.date.date()
		m.date = nil
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.session.Machine().SetDate(d)
		m.setStatus("Jumped to "+datestate.FormatDate(d), false)
		m.refreshDetail()
		return m, nil
	case huh.StateAborted:
		m.date = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		switch key {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	machine := m.session.Machine()
	snap := m.session.Snapshot()
	m.statusMsg = ""
	m.statusErr = false

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil

	case " ":
		machine.TogglePlayPause()
	case "n":
		machine.NextDay()
	case "p":
		machine.PreviousDay()
	case "r":
		machine.Reset()
	case "s":
		machine.ToggleSpeed()
	case "d":
		f := newDateForm(machine.Date())
		m.date = &f
		return m, f.form.Init()

	case "j", "down":
		m.cursor = clamp(m.cursor+1, 0, max(len(snap.Nodes)-1, 0))
	case "k", "up":
		m.cursor = clamp(m.cursor-1, 0, max(len(snap.Nodes)-1, 0))
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(len(snap.Nodes)-1, 0)
	case "enter":
		if m.cursor < len(snap.Nodes) {
			m.session.Click(snap.Nodes[m.cursor].ID)
		}
	case "esc":
		if snap.HasSelection {
			m.session.Click(snap.Selected)
		}
	case "l":
		m.session.ToggleLabels()
	case "i":
		m.showDetail = !m.showDetail
		m.resize(m.width, m.height)
	case "J":
		m.detail.LineDown(1)
		return m, nil
	case "K":
		m.detail.LineUp(1)
		return m, nil
	case "y":
		m.copySummary(snap)

	case "h", "left":
		m.camera = m.camera.Orbit(-orbitStep, 0)
	case "right":
		m.camera = m.camera.Orbit(orbitStep, 0)
	case "pgup":
		m.camera = m.camera.Orbit(0, tiltStep)
	case "pgdown":
		m.camera = m.camera.Orbit(0, -tiltStep)
	case "+", "=":
		m.camera = m.camera.Zoom(1 / zoomStep)
	case "-", "_":
		m.camera = m.camera.Zoom(zoomStep)
	case "0":
		m.reframe()
	}

	m.refreshDetail()
	return m, nil
}

func (m *Model) copySummary(snap simulation.Snapshot) {
	n, ok := m.detailNode(snap)
	if !ok {
		m.setStatus("Nothing to copy", true)
		return
	}
	text := fmt.Sprintf("%s (%s): %s %s on %s", n.Name, n.ID, n.Role, model.FormatValue(n.Value), snap.State.FormattedDate())
	if err := m.copyText(text); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("📋 Copied %s to clipboard", n.Name), false)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.session.Snapshot()
	header := m.renderHeader(snap)
	status := m.renderStatus(snap)

	var body string
	bodyH := max(m.height-2, 3)
	switch {
	case m.date != nil:
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.theme.Panel.Padding(1, 2).Render(m.date.form.View()))
	case m.showHelp:
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, renderHelp(m.theme, m.width))
	default:
		body = m.renderBody(snap)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m Model) renderHeader(snap simulation.Snapshot) string {
	title := m.theme.Header.Render("g3d")
	info := fmt.Sprintf(" %s  %d nodes · %d edges", m.datasetLabel(), len(snap.Nodes), len(snap.Arrows))
	return title + m.theme.MutedText.Render(truncate(info, max(m.width-lipgloss.Width(title), 0)))
}

func (m Model) datasetLabel() string {
	if m.dataset == "" {
		return "money flow"
	}
	return m.dataset
}

func (m Model) renderBody(snap simulation.Snapshot) string {
	listW, canvasW, canvasH, detailH := m.layout()
	bodyH := canvasH + detailH

	list := m.renderList(snap, listW, bodyH)
	sep := m.theme.MutedText.Render(strings.TrimSuffix(strings.Repeat("│\n", bodyH), "\n"))

	right := renderScene(snap, m.camera, canvasW, canvasH, m.theme)
	if m.showDetail {
		pane := m.theme.Panel.Width(max(canvasW-2, 1)).Height(max(detailH-2, 1)).Render(m.detail.View())
		right = lipgloss.JoinVertical(lipgloss.Left, right, pane)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, sep, right)
}

func (m Model) renderList(snap simulation.Snapshot, w, h int) string {
	var b strings.Builder
	title := fmt.Sprintf("Nodes %d/%d", snap.Visibility.VisibleNodeCount(), len(snap.Nodes))
	b.WriteString(m.theme.KeyText.Render(padRight(truncate(title, w), w)))

	rows := h - 1
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	const valueW = 7
	nameW := max(w-2-2-2-valueW-1, 1)
	for i := start; i < len(snap.Nodes) && i-start < rows; i++ {
		n := snap.Nodes[i]
		b.WriteString("\n")

		marker := "  "
		if i == m.cursor {
			marker = m.theme.KeyText.Render("›") + " "
		}
		glyph := m.theme.NodeStyle(n.Type).Render("●")
		if snap.HasSelection && n.ID == snap.Selected {
			glyph = m.theme.FocusMark.Render("◉")
		}
		icon, roleColor := m.theme.GetRoleIcon(n.Role)
		name := padRight(truncate(n.Name, nameW), nameW)
		value := padLeft(compactValue(n.Value), valueW)

		visible := snap.Visibility.NodeVisible(n.ID)
		switch {
		case !visible:
			name = m.theme.MutedText.Render(name)
			value = m.theme.MutedText.Render(value)
		case i == m.cursor:
			name = m.theme.Base.Bold(true).Render(name)
		}
		if visible && n.Value < 0 {
			value = m.theme.Negative.Render(value)
		}
		b.WriteString(marker + glyph + " " + m.theme.Renderer.NewStyle().Foreground(roleColor).Render(icon) + " " + name + " " + value)
	}
	return lipgloss.NewStyle().Width(w).Height(h).Render(b.String())
}

func (m Model) renderStatus(snap simulation.Snapshot) string {
	st := snap.State
	parts := []string{st.PlayGlyph() + " " + st.FormattedDate(), st.SpeedLabel()}
	if snap.HasSelection {
		name := snap.Selected
		for _, n := range snap.Nodes {
			if n.ID == snap.Selected {
				name = n.Name
				break
			}
		}
		parts = append(parts, "focus: "+name)
	}
	if snap.LabelsEnabled {
		parts = append(parts, "labels on")
	} else {
		parts = append(parts, "labels off")
	}
	if m.watcher != nil && m.watcher.IsPolling() {
		parts = append(parts, "polling")
	}
	line := strings.Join(parts, " │ ")
	if m.statusMsg != "" {
		msg := m.statusMsg
		if m.statusErr {
			msg = m.theme.Negative.Render(msg)
		}
		line += " │ " + msg
	} else {
		line += " │ ? help"
	}
	return m.theme.Status.Width(max(m.width, 1)).MaxHeight(1).Render(line)
}
