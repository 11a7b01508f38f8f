package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/probe"
	"bookload/internal/stats"
)

const (
	tickInterval        = 200 * time.Millisecond
	defaultDrainTimeout = 5 * time.Second
)

type Runner struct {
	Cfg    Config
	Ops    *Operations
	Stats  *stats.Stats
	Memory stats.MemorySource
	Logger *zap.Logger

	// Event Channel
	Updates StatsUpdateChan

	mu         sync.Mutex
	results    [][]OperationResult
	bookingIDs []string

	activeUsers int64
	phase       atomic.Value
}

type Option func(*Runner)

func WithGenerator(g *booking.Generator) Option {
	return func(r *Runner) { r.Ops.Gen = g }
}

func WithMemory(src stats.MemorySource) Option {
	return func(r *Runner) { r.Memory = src }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.Logger = l
		r.Ops.Logger = l
	}
}

// WithStats shares an existing aggregate, e.g. one exposed by a host.
func WithStats(s *stats.Stats) Option {
	return func(r *Runner) {
		r.Stats = s
		r.Ops.Stats = s
	}
}

func NewRunner(cfg Config, caps capability.Set, updates StatsUpdateChan, opts ...Option) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}
	st := stats.NewStats()
	r := &Runner{
		Cfg:     cfg,
		Stats:   st,
		Memory:  stats.RuntimeMemory{},
		Logger:  zap.NewNop(),
		Updates: updates,
		Ops: &Operations{
			Caps:   caps,
			Gen:    booking.NewGenerator(0),
			Stats:  st,
			Logger: zap.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.phase.Store(PhaseIdle)
	return r
}

// StartTickLoop starts a goroutine that pushes stats updates
func (r *Runner) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) sendUpdate() {
	snap := r.Stats.Snapshot()
	elapsed := time.Duration(0)
	if !snap.StartTime.IsZero() {
		elapsed = time.Since(snap.StartTime)
		if !snap.EndTime.IsZero() {
			elapsed = snap.Elapsed()
		}
	}
	h := r.Stats.ResponseTime
	s := StatsSnapshot{
		Phase:         r.Phase(),
		Requests:      snap.Total,
		Success:       snap.Success,
		Fail:          snap.Fail,
		ActiveUsers:   atomic.LoadInt64(&r.activeUsers),
		Elapsed:       elapsed,
		ErrorRate:     snap.ErrorRate(),
		AvgResponseMs: ms(snap.AverageResponseTime()),
		P50Ms:         ms(h.Quantile(50)),
		P95Ms:         ms(h.Quantile(95)),
		P99Ms:         ms(h.Quantile(99)),
		MaxMs:         ms(h.Max()),
	}

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(p)
	r.Logger.Info("phase", zap.String("phase", string(p)))
	r.sendUpdate()
}

func (r *Runner) Phase() Phase {
	return r.phase.Load().(Phase)
}

func (r *Runner) GetActiveUsers() int64 {
	return atomic.LoadInt64(&r.activeUsers)
}

// Run executes one full load run. It always returns an Outcome; cancelling
// ctx cuts the remaining phases short.
func (r *Runner) Run(ctx context.Context) Outcome {
	out := Outcome{RunID: uuid.NewString(), Config: r.Cfg}

	r.Stats.Start(time.Now())
	r.Stats.SampleMemory(r.Memory)

	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	r.StartTickLoop(tickCtx, tickInterval)

	r.setPhase(PhaseUsers)
	out.Users, out.Completed, out.Abandoned = r.runUsers(ctx)

	r.Stats.SampleMemory(r.Memory)

	r.setPhase(PhaseListener)
	out.Listener = r.runListener(ctx)

	r.setPhase(PhaseDashboards)
	out.Dashboards = r.runDashboards(ctx)

	if r.Cfg.Approvals > 0 {
		r.setPhase(PhaseApprovals)
		out.Approvals = r.runApprovals(ctx)
	}

	r.Stats.Finish(time.Now())
	r.setPhase(PhaseDone)

	out.Stats = r.Stats.Snapshot()
	out.Memory = r.Stats.MemorySamples()
	out.Errors = r.Stats.Errors()
	out.ByKind = r.Stats.ByKind()
	h := r.Stats.ResponseTime
	out.P50, out.P95, out.P99, out.Max = h.Quantile(50), h.Quantile(95), h.Quantile(99), h.Max()
	return out
}

// runUsers launches the virtual users and races them against the budget.
// On expiry the users are cancelled and given DrainTimeout to exit.
func (r *Runner) runUsers(ctx context.Context) ([][]OperationResult, bool, int) {
	n := r.Cfg.Users
	if n < 0 {
		n = 0
	}
	r.mu.Lock()
	r.results = make([][]OperationResult, n)
	r.bookingIDs = nil
	r.mu.Unlock()

	userCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user int) {
			defer wg.Done()
			r.virtualUser(userCtx, user)
		}(i)
	}
	r.Logger.Info("virtual users launched", zap.Int("users", n), zap.Duration("budget", r.Cfg.Duration))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var budget <-chan time.Time
	if r.Cfg.Duration > 0 {
		t := time.NewTimer(r.Cfg.Duration)
		defer t.Stop()
		budget = t.C
	}

	completed := false
	select {
	case <-done:
		completed = true
	case <-budget:
		r.Logger.Info("duration budget elapsed, cancelling virtual users")
	case <-ctx.Done():
		r.Logger.Info("run cancelled", zap.Error(ctx.Err()))
	}

	abandoned := 0
	if !completed {
		cancel()
		r.setPhase(PhaseDraining)

		drain := r.Cfg.DrainTimeout
		if drain <= 0 {
			drain = defaultDrainTimeout
		}
		t := time.NewTimer(drain)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			abandoned = int(r.GetActiveUsers())
			r.Logger.Warn("virtual users did not exit before drain timeout", zap.Int("abandoned", abandoned))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([][]OperationResult, len(r.results))
	for i, seq := range r.results {
		users[i] = append([]OperationResult(nil), seq...)
	}
	return users, completed, abandoned
}

func (r *Runner) virtualUser(ctx context.Context, user int) {
	atomic.AddInt64(&r.activeUsers, 1)
	defer atomic.AddInt64(&r.activeUsers, -1)

	for op := 0; op < r.Cfg.OperationsPerUser; op++ {
		if ctx.Err() != nil {
			return
		}
		res := r.Ops.SubmitBooking(ctx, user, op)

		r.mu.Lock()
		r.results[user] = append(r.results[user], res)
		if res.Success && res.BookingID != "" {
			r.bookingIDs = append(r.bookingIDs, res.BookingID)
		}
		r.mu.Unlock()

		if op == r.Cfg.OperationsPerUser-1 || r.Cfg.OperationDelay <= 0 {
			continue
		}
		t := time.NewTimer(r.Cfg.OperationDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (r *Runner) runListener(ctx context.Context) probe.Result {
	p := probe.NewListener(r.Ops.Caps.Activity,
		probe.WithMemory(r.Memory),
		probe.WithLogger(r.Logger),
	)
	res, err := p.Run(ctx, r.Cfg.ListenerWindow)
	if err != nil {
		r.Logger.Info("listener probe cut short", zap.Error(err))
	}
	return res
}

func (r *Runner) runDashboards(ctx context.Context) []DashboardResult {
	n := min(r.Cfg.Users, r.Cfg.DashboardProbes)
	role := r.Cfg.DashboardRole
	if role == "" {
		role = RoleEmployee
	}

	var out []DashboardResult
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		out = append(out, r.Ops.ProbeDashboard(ctx, RequesterID(i), role))
	}
	return out
}

func (r *Runner) runApprovals(ctx context.Context) []ApprovalResult {
	r.mu.Lock()
	ids := append([]string(nil), r.bookingIDs...)
	r.mu.Unlock()

	n := min(r.Cfg.Approvals, len(ids))
	out := make([]ApprovalResult, 0, n)
	for _, id := range ids[:n] {
		if ctx.Err() != nil {
			break
		}
		out = append(out, r.Ops.ApproveBooking(ctx, id))
	}
	return out
}
