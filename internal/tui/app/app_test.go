package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookload/internal/capability"
	"bookload/internal/harness"
	"bookload/internal/report"
	"bookload/internal/runner"
	"bookload/internal/storage"
)

func newModel(t *testing.T, store storage.Store) Model {
	t.Helper()
	updates := make(runner.StatsUpdateChan, 10)
	h := harness.New(capability.Set{}, runner.Config{}, harness.WithUpdates(updates))
	return NewModel(context.Background(), h, updates, store, 2, time.Second)
}

func press(m Model, key string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return next.(Model)
}

func TestTabSwitching(t *testing.T) {
	m := newModel(t, nil)
	assert.Equal(t, ViewLive, m.CurrentView)

	m = press(m, "2")
	assert.Equal(t, ViewReport, m.CurrentView)
	m = press(m, "3")
	assert.Equal(t, ViewHistory, m.CurrentView)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlRight})
	assert.Equal(t, ViewLive, next.(Model).CurrentView)
}

func TestStopCancelsRun(t *testing.T) {
	m := newModel(t, nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(Model)
	assert.Error(t, m.RunCtx.Err())
	assert.Equal(t, "Stopping run...", m.StatusMsg)
}

func TestQuitCancelsRun(t *testing.T) {
	m := newModel(t, nil)
	m = press(m, "q")
	assert.Error(t, m.RunCtx.Err())
}

func TestRunDoneSavesHistory(t *testing.T) {
	path := t.TempDir() + "/history.db"
	store, err := storage.OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := newModel(t, store)
	out := runner.Outcome{RunID: "run-1", Config: runner.Config{Users: 2, Duration: time.Second}}
	rep := report.Build(out, report.DefaultThresholds())

	next, _ := m.Update(RunDoneMsg{Result: harness.Result{Outcome: out, Report: rep}})
	m = next.(Model)

	assert.False(t, m.RunActive)
	assert.Equal(t, ViewReport, m.CurrentView)
	require.NotNil(t, m.ReportView.Report)

	items, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "run-1", items[0].ID)
	assert.Len(t, m.HistoryView.Table.Rows(), 1)
}

func TestStatsMsgFeedsLiveView(t *testing.T) {
	m := newModel(t, nil)
	next, _ := m.Update(StatsMsg{Phase: runner.PhaseUsers, Requests: 5})
	m = next.(Model)
	assert.Equal(t, uint64(5), m.LiveView.Stats.Requests)

	next, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, next.(Model).View(), "[1] Live")
}
