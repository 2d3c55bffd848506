// Package tui is the interactive browser over the navigator.
//
// The model never reads the dump tree itself. Reloads and selection loads
// run as tea.Cmds against the reload controller and the navigator, and the
// model re-reads the navigator's current view when they report back, so a
// load superseded by a newer selection simply never shows up.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deploymenttheory/go-ffsp/internal/display"
	"github.com/deploymenttheory/go-ffsp/internal/model"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
	"github.com/deploymenttheory/go-ffsp/internal/runner"
)

// pane is one of the browsable lists.
type pane int

const (
	paneEraseblocks pane = iota // Eraseblocks of the snapshot
	paneClusters                // Clusters of the selected eraseblock
	paneInodes                  // Inodes of the selected cluster
	paneCount
)

// reloadedMsg reports the end of a reload.
type reloadedMsg struct{ err error }

// selectedMsg reports the end of a selection load.
type selectedMsg struct{ err error }

// tickMsg triggers a periodic reload.
type tickMsg time.Time

// mountMsg carries a fresh mount status.
type mountMsg runner.MountStatus

// StatusFunc reports whether the file system is mounted.
type StatusFunc func(ctx context.Context) runner.MountStatus

// Options configure the browser.
type Options struct {
	// Interval between automatic reloads, zero for manual reloads only.
	Interval time.Duration
	// Status reports the mount state shown in the status bar. Optional.
	Status StatusFunc
	// Title is shown in the header, usually the debug directory.
	Title string
}

// Model is the browser state. It implements tea.Model.
type Model struct {
	ctx   context.Context
	ctrl  *reload.Controller
	nav   *navigator.Navigator
	opts  Options
	view  *navigator.View
	mount runner.MountStatus

	focus  pane
	cursor [paneCount]int

	reloading bool
	initial   tea.Cmd
	lastErr   error
	quitting  bool

	width  int
	height int
}

// New returns a browser over ctrl. The first reload counts as in flight from
// here on and is issued by Init.
func New(ctx context.Context, ctrl *reload.Controller, opts Options) Model {
	m := Model{
		ctx:    ctx,
		ctrl:   ctrl,
		nav:    ctrl.Navigator(),
		opts:   opts,
		view:   ctrl.Navigator().Current(),
		width:  120,
		height: 40,
	}
	m.initial = m.startReload()
	return m
}

// Run starts the browser on the alternate screen and blocks until it quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.initial, m.mountCmd(), m.tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case reloadedMsg:
		m.reloading = false
		m.lastErr = msg.err
		m.refresh()
		return m, nil

	case selectedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		}
		m.refresh()
		return m, nil

	case mountMsg:
		m.mount = runner.MountStatus(msg)
		return m, nil

	case tickMsg:
		cmd := tea.Batch(m.startReload(), m.mountCmd(), m.tickCmd())
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "r":
		cmd := tea.Batch(m.startReload(), m.mountCmd())
		return m, cmd

	case "tab":
		m.focus = m.nextPane()
		return m, nil

	case "up", "k":
		if m.cursor[m.focus] > 0 {
			m.cursor[m.focus]--
		}
		return m, nil

	case "down", "j":
		if m.cursor[m.focus] < m.rowCount(m.focus)-1 {
			m.cursor[m.focus]++
		}
		return m, nil

	case "enter":
		return m.pick()

	case "esc":
		switch m.focus {
		case paneInodes:
			// Back to the eraseblock, keeping its cluster list.
			m.focus = paneClusters
			return m, m.applyCmd(display.EraseblockPicked{ID: m.view.State.Eraseblock})
		default:
			m.focus = paneEraseblocks
			m.cursor[paneClusters], m.cursor[paneInodes] = 0, 0
			if err := display.Apply(m.ctx, m.nav, display.SelectionCleared{}); err != nil {
				m.lastErr = err
			}
			m.refresh()
			return m, nil
		}
	}
	return m, nil
}

// pick selects the row under the cursor of the focused pane.
func (m Model) pick() (tea.Model, tea.Cmd) {
	switch m.focus {
	case paneEraseblocks:
		entries := m.eraseblocks()
		if len(entries) == 0 {
			return m, nil
		}
		m.cursor[paneClusters], m.cursor[paneInodes] = 0, 0
		m.focus = paneClusters
		return m, m.applyCmd(display.EraseblockPicked{ID: entries[m.cursor[paneEraseblocks]].ID})

	case paneClusters:
		if len(m.view.Clusters) == 0 {
			return m, nil
		}
		m.cursor[paneInodes] = 0
		m.focus = paneInodes
		return m, m.applyCmd(display.ClusterPicked{ID: m.view.Clusters[m.cursor[paneClusters]].ID})
	}
	return m, nil
}

// refresh picks up the navigator's latest view and clamps the cursors.
func (m *Model) refresh() {
	m.view = m.nav.Current()
	for p := pane(0); p < paneCount; p++ {
		if n := m.rowCount(p); m.cursor[p] >= n {
			m.cursor[p] = max(n-1, 0)
		}
	}
	switch m.view.State.Kind {
	case navigator.NoSelection:
		m.focus = paneEraseblocks
	case navigator.EraseblockSelected:
		if m.focus == paneInodes {
			m.focus = paneClusters
		}
	}
}

func (m Model) nextPane() pane {
	next := (m.focus + 1) % paneCount
	switch {
	case next == paneClusters && m.view.Eraseblock == nil:
		return paneEraseblocks
	case next == paneInodes && m.view.State.Kind != navigator.ClusterSelected:
		return paneEraseblocks
	}
	return next
}

func (m Model) eraseblocks() []model.EraseblockEntry {
	if m.view.Snapshot == nil {
		return nil
	}
	return m.view.Snapshot.Eraseblocks()
}

func (m Model) rowCount(p pane) int {
	switch p {
	case paneEraseblocks:
		if m.view.Snapshot == nil {
			return 0
		}
		return len(m.view.Snapshot.Eraseblocks())
	case paneClusters:
		return len(m.view.Clusters)
	case paneInodes:
		return len(m.view.Inodes)
	}
	return 0
}

func (m *Model) startReload() tea.Cmd {
	if m.reloading {
		return nil
	}
	m.reloading = true
	return m.reloadCmd()
}

func (m Model) reloadCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.Reload(ctx)
		return reloadedMsg{err: err}
	}
}

func (m Model) applyCmd(ev display.Event) tea.Cmd {
	nav, ctx := m.nav, m.ctx
	return func() tea.Msg {
		return selectedMsg{err: display.Apply(ctx, nav, ev)}
	}
}

func (m Model) mountCmd() tea.Cmd {
	if m.opts.Status == nil {
		return nil
	}
	status, ctx := m.opts.Status, m.ctx
	return func() tea.Msg {
		return mountMsg(status(ctx))
	}
}

func (m Model) tickCmd() tea.Cmd {
	if m.opts.Interval <= 0 {
		return nil
	}
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
