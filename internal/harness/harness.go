// Package harness exposes the load test entry points to a hosting program.
package harness

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/report"
	"bookload/internal/runner"
	"bookload/internal/stats"
)

const (
	QuickUsers   = 10
	QuickBudget  = 30 * time.Second
	StressUsers  = 50
	StressBudget = 120 * time.Second
)

// Result bundles the raw outcome with its built report. Report.Overall,
// Report.Listener and Report.Dashboard are the programmatic groups.
type Result struct {
	Outcome runner.Outcome
	Report  report.Report
}

type Harness struct {
	base       runner.Config
	thresholds report.Thresholds
	caps       capability.Set
	seed       uint64
	purposes   []string
	memory     stats.MemorySource
	logger     *zap.Logger
	out        io.Writer
	updates    runner.StatsUpdateChan

	mu      sync.Mutex
	metrics *stats.Stats
}

type Option func(*Harness)

// WithOutput renders every report to w.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) { h.out = w }
}

func WithThresholds(th report.Thresholds) Option {
	return func(h *Harness) { h.thresholds = th }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

func WithMemory(src stats.MemorySource) Option {
	return func(h *Harness) { h.memory = src }
}

func WithSeed(seed uint64) Option {
	return func(h *Harness) { h.seed = seed }
}

func WithPurposes(p []string) Option {
	return func(h *Harness) { h.purposes = p }
}

// WithUpdates forwards live snapshots of each run to ch.
func WithUpdates(ch runner.StatsUpdateChan) Option {
	return func(h *Harness) { h.updates = ch }
}

// New builds a harness over caps. base supplies every setting other than
// the user count and budget passed to LoadTest.
func New(caps capability.Set, base runner.Config, opts ...Option) *Harness {
	h := &Harness{
		base:       base,
		thresholds: report.DefaultThresholds(),
		caps:       caps,
		memory:     stats.RuntimeMemory{},
		logger:     zap.NewNop(),
		out:        io.Discard,
		metrics:    stats.NewStats(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Metrics is the live aggregate of the current or most recent run.
func (h *Harness) Metrics() *stats.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.metrics
}

// LoadTest runs users virtual users against a duration budget, renders the
// report and returns it.
func (h *Harness) LoadTest(ctx context.Context, users int, budget time.Duration) Result {
	cfg := h.base
	cfg.Users = users
	cfg.Duration = budget

	st := stats.NewStats()
	h.mu.Lock()
	h.metrics = st
	h.mu.Unlock()

	gen := booking.NewGenerator(h.seed, booking.WithPurposes(h.purposes))
	r := runner.NewRunner(cfg, h.caps, h.updates,
		runner.WithStats(st),
		runner.WithGenerator(gen),
		runner.WithMemory(h.memory),
		runner.WithLogger(h.logger),
	)

	h.logger.Info("starting load test", zap.Int("users", users), zap.Duration("budget", budget))
	out := r.Run(ctx)
	rep := report.Build(out, h.thresholds)
	if err := rep.Render(h.out); err != nil {
		h.logger.Warn("report render failed", zap.Error(err))
	}
	return Result{Outcome: out, Report: rep}
}

// QuickLoadTest is LoadTest with 10 users and a 30 second budget.
func (h *Harness) QuickLoadTest(ctx context.Context) Result {
	return h.LoadTest(ctx, QuickUsers, QuickBudget)
}

// StressTest is LoadTest with 50 users and a 2 minute budget.
func (h *Harness) StressTest(ctx context.Context) Result {
	return h.LoadTest(ctx, StressUsers, StressBudget)
}
