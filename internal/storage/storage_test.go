package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookload/internal/report"
	"bookload/internal/runner"
)

func item(id string, ts time.Time) HistoryItem {
	return HistoryItem{
		ID:        id,
		Timestamp: ts,
		Config:    runner.Config{Users: 10, Duration: 30 * time.Second},
		Summary:   RunSummary{Total: 100, Success: 99, Fail: 1},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(ctx, item(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	items, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "run-2", items[0].ID)
	assert.Equal(t, "run-0", items[2].ID)

	items, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, got.Config.Duration)
	assert.Equal(t, uint64(99), got.Summary.Success)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Saving an existing id replaces it.
	updated := item("run-0", base.Add(time.Hour))
	updated.Summary.Fail = 7
	require.NoError(t, s.Save(ctx, updated))
	items, err = s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "run-0", items[0].ID)
	assert.Equal(t, uint64(7), items[0].Summary.Fail)
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestBoltStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), item("keep", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path, "")
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "keep")
	require.NoError(t, err)
	assert.Equal(t, "keep", got.ID)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BOOKLOAD_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("BOOKLOAD_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.pool.Exec(ctx, "TRUNCATE bookload_runs")
	require.NoError(t, err)

	exerciseStore(t, s)
}

func TestNewHistoryItem(t *testing.T) {
	rep := report.Report{
		RunID:       "abc",
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Overall: report.Overall{
			Total: 10, Success: 8, Fail: 2,
			AvgResponse: 15 * time.Millisecond,
			Completed:   true,
		},
		Dashboard:       &report.Dashboard{Completed: 4, Attempted: 5},
		Recommendations: []report.Recommendation{{Code: "high-failure-rate"}},
	}
	it := NewHistoryItem(runner.Config{Users: 3}, rep)

	assert.Equal(t, "abc", it.ID)
	assert.Equal(t, 3, it.Config.Users)
	assert.Equal(t, 15.0, it.Summary.AvgResponseMs)
	assert.Equal(t, 4, it.Summary.DashboardCompleted)
	assert.Equal(t, 1, it.Summary.Recommendations)
	assert.True(t, it.Summary.Completed)
}
