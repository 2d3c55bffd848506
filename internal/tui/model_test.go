package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ffsp/internal/dump"
	"github.com/deploymenttheory/go-ffsp/internal/dumptest"
	"github.com/deploymenttheory/go-ffsp/internal/navigator"
	"github.com/deploymenttheory/go-ffsp/internal/reload"
	"github.com/deploymenttheory/go-ffsp/internal/runner"
)

func newModel(t *testing.T, tree *dumptest.Tree, opts Options) Model {
	t.Helper()
	logger, _ := test.NewNullLogger()
	ctrl, err := reload.New(tree.Reader(), navigator.New(logger), reload.Options{Workers: 2, Log: logger})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return New(context.Background(), ctrl, opts)
}

func browseTree() *dumptest.Tree {
	return dumptest.New().
		Super(0, 1, 2).
		Metrics(1, 2, 3).
		Eraseblock(0, 0x00, 10).
		Eraseblock(1, 0x04, 20, 21).
		Eraseblock(2, 0x20).
		Cluster(10, 0).
		Cluster(20, 4096, 7).
		Cluster(21, 8192).
		Inode(7, 99, 0o100644)
}

// drain runs cmd and feeds every resulting message back into m.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case tea.QuitMsg, nil:
	default:
		next, more := m.Update(msg)
		m = drain(t, next.(Model), more)
	}
	return m
}

func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	return drain(t, next.(Model), cmd)
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyR     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	keyQ     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
)

func TestInitialLoad(t *testing.T) {
	m := newModel(t, browseTree(), Options{
		Title:  "/mnt/ffsp/.FFSP",
		Status: func(context.Context) runner.MountStatus { return runner.MountStatus{DebugDirPresent: true} },
	})
	assert.Contains(t, m.View(), "Loading snapshot")
	assert.True(t, m.reloading)

	m = drain(t, m, m.Init())
	require.NotNil(t, m.view.Snapshot)
	assert.False(t, m.reloading)
	assert.True(t, m.mount.Mounted())

	out := m.View()
	assert.Contains(t, out, "ERASEBLOCKS (3)")
	assert.Contains(t, out, "FFSP")
	assert.Contains(t, out, "[/]")
	assert.Contains(t, out, "no selection")
}

func TestDrillDownAndBack(t *testing.T) {
	m := newModel(t, browseTree(), Options{})
	m = drain(t, m, m.Init())

	m = press(t, m, keyDown)
	assert.Equal(t, 1, m.cursor[paneEraseblocks])

	m = press(t, m, keyEnter)
	assert.Equal(t, navigator.OnEraseblock(1), m.view.State)
	assert.Equal(t, paneClusters, m.focus)
	require.Len(t, m.view.Clusters, 2)
	assert.Contains(t, m.View(), "CLUSTERS (2)")

	m = press(t, m, keyEnter)
	assert.Equal(t, navigator.OnCluster(1, 20), m.view.State)
	assert.Equal(t, paneInodes, m.focus)
	require.Len(t, m.view.Inodes, 1)
	assert.Contains(t, m.View(), "INODES (1)")

	m = press(t, m, keyEsc)
	assert.Equal(t, navigator.OnEraseblock(1), m.view.State)
	assert.Equal(t, paneClusters, m.focus)
	require.Len(t, m.view.Clusters, 2)

	m = press(t, m, keyEsc)
	assert.Equal(t, navigator.None, m.view.State)
	assert.Equal(t, paneEraseblocks, m.focus)
}

func TestCursorBounds(t *testing.T) {
	m := newModel(t, browseTree(), Options{})
	m = drain(t, m, m.Init())

	m = press(t, m, keyUp)
	assert.Equal(t, 0, m.cursor[paneEraseblocks])
	for i := 0; i < 5; i++ {
		m = press(t, m, keyDown)
	}
	assert.Equal(t, 2, m.cursor[paneEraseblocks])
}

func TestTabSkipsEmptyPanes(t *testing.T) {
	m := newModel(t, browseTree(), Options{})
	m = drain(t, m, m.Init())

	m = press(t, m, keyTab)
	assert.Equal(t, paneEraseblocks, m.focus)

	m = press(t, m, keyEnter)
	m = press(t, m, keyTab)
	assert.Equal(t, paneEraseblocks, m.focus, "no cluster selected yet")
	m = press(t, m, keyTab)
	assert.Equal(t, paneClusters, m.focus)
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	tree := browseTree()
	m := newModel(t, tree, Options{})
	m = drain(t, m, m.Init())
	gen := m.view.Snapshot.Generation

	tree.Remove(dump.SuperPath())
	m = press(t, m, keyR)
	require.Error(t, m.lastErr)
	assert.Equal(t, gen, m.view.Snapshot.Generation)
	assert.Contains(t, m.View(), "reload failed")

	tree.Super(0, 1, 2)
	m = press(t, m, keyR)
	assert.NoError(t, m.lastErr)
	assert.NotEqual(t, gen, m.view.Snapshot.Generation)
}

func TestReloadCollapsesSelection(t *testing.T) {
	tree := browseTree()
	m := newModel(t, tree, Options{})
	m = drain(t, m, m.Init())

	m = press(t, m, keyDown)
	m = press(t, m, keyEnter)
	m = press(t, m, keyEnter)
	require.Equal(t, navigator.OnCluster(1, 20), m.view.State)

	tree.Eraseblock(1, 0x04, 21)
	m = press(t, m, keyR)
	assert.Equal(t, navigator.OnEraseblock(1), m.view.State)
	assert.Equal(t, paneClusters, m.focus)
	assert.Equal(t, 0, m.cursor[paneInodes])
}

func TestTickStartsOneReload(t *testing.T) {
	m := newModel(t, browseTree(), Options{Interval: time.Millisecond})

	// A tick before the first reload reports back only schedules the next tick.
	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	assert.True(t, m.reloading)
	require.NotNil(t, cmd)
	_, ok := cmd().(tickMsg)
	assert.True(t, ok, "no second reload while the first is in flight")

	next, _ = m.Update(reloadedMsg{})
	m = next.(Model)
	assert.False(t, m.reloading)

	next, cmd = m.Update(tickMsg(time.Now()))
	m = next.(Model)
	assert.True(t, m.reloading)
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	assert.Len(t, batch, 2, "reload and next tick")

	// Only the next tick is scheduled while the reload is in flight.
	next, cmd = m.Update(tickMsg(time.Now()))
	assert.True(t, next.(Model).reloading)
	assert.NotNil(t, cmd)
}

func TestQuit(t *testing.T) {
	m := newModel(t, browseTree(), Options{})
	next, cmd := m.Update(keyQ)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
}

func TestWindow(t *testing.T) {
	tests := []struct {
		cursor, n, height int
		from, to          int
	}{
		{0, 3, 10, 0, 3},
		{0, 20, 5, 0, 5},
		{10, 20, 5, 8, 13},
		{19, 20, 5, 15, 20},
		{0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		from, to := window(tt.cursor, tt.n, tt.height)
		assert.Equal(t, tt.from, from)
		assert.Equal(t, tt.to, to)
	}
}
