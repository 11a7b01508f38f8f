// Package storage keeps a history of finished load runs.
package storage

import (
	"context"
	"errors"
	"time"

	"bookload/internal/report"
	"bookload/internal/runner"
)

// MaxItems bounds List when no limit is given.
const MaxItems = 100

var ErrNotFound = errors.New("history item not found")

type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Summary   RunSummary    `json:"summary"`
}

type RunSummary struct {
	Total              uint64  `json:"total"`
	Success            uint64  `json:"success"`
	Fail               uint64  `json:"fail"`
	AvgResponseMs      float64 `json:"avg_response_ms"`
	P95ResponseMs      float64 `json:"p95_response_ms"`
	OpsPerSecond       float64 `json:"ops_per_second"`
	ListenerUpdates    int64   `json:"listener_updates"`
	DashboardCompleted int     `json:"dashboard_completed"`
	DashboardAttempted int     `json:"dashboard_attempted"`
	Recommendations    int     `json:"recommendations"`
	Completed          bool    `json:"completed"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// NewHistoryItem condenses a built report into a history entry.
func NewHistoryItem(cfg runner.Config, rep report.Report) HistoryItem {
	s := RunSummary{
		Total:           rep.Overall.Total,
		Success:         rep.Overall.Success,
		Fail:            rep.Overall.Fail,
		AvgResponseMs:   ms(rep.Overall.AvgResponse),
		P95ResponseMs:   ms(rep.Overall.P95),
		OpsPerSecond:    rep.Overall.OpsPerSecond,
		ListenerUpdates: rep.Listener.UpdatesReceived,
		Recommendations: len(rep.Recommendations),
		Completed:       rep.Overall.Completed,
	}
	if rep.Dashboard != nil {
		s.DashboardCompleted = rep.Dashboard.Completed
		s.DashboardAttempted = rep.Dashboard.Attempted
	}
	ts := rep.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return HistoryItem{ID: rep.RunID, Timestamp: ts, Config: cfg, Summary: s}
}

// Store persists history items. List returns the newest first.
type Store interface {
	Save(ctx context.Context, item HistoryItem) error
	List(ctx context.Context, limit int) ([]HistoryItem, error)
	Get(ctx context.Context, id string) (*HistoryItem, error)
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxItems {
		return MaxItems
	}
	return limit
}
