package runner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/stats"
)

func testConfig(users, ops int) Config {
	return Config{
		Users:             users,
		Duration:          5 * time.Second,
		OperationsPerUser: ops,
		ListenerWindow:    10 * time.Millisecond,
		DashboardProbes:   5,
		DashboardRole:     RoleEmployee,
		DrainTimeout:      time.Second,
	}
}

func newTestRunner(t *testing.T, cfg Config, caps capability.Set) *Runner {
	t.Helper()
	return NewRunner(cfg, caps, make(StatsUpdateChan, 256),
		WithGenerator(booking.NewGenerator(1)),
		WithMemory(stats.NoMemory{}),
		WithLogger(zaptest.NewLogger(t)),
	)
}

func TestRunWithoutCapabilitiesUsesFallbackIDs(t *testing.T) {
	r := newTestRunner(t, testConfig(3, 2), capability.Set{})
	out := r.Run(context.Background())

	assert.True(t, out.Completed)
	assert.Equal(t, uint64(6), out.Stats.Total)
	assert.Equal(t, uint64(6), out.Stats.Success)
	assert.Zero(t, out.Stats.Fail)
	require.Len(t, out.Users, 3)
	for u, seq := range out.Users {
		require.Len(t, seq, 2)
		for op, res := range seq {
			assert.True(t, res.Success)
			assert.True(t, res.Fallback)
			assert.Equal(t, FallbackBookingID(u, op), res.BookingID)
		}
	}

	require.Len(t, out.Dashboards, 3)
	for _, d := range out.Dashboards {
		assert.True(t, d.Success)
	}
	assert.Zero(t, out.Listener.UpdatesReceived)
	assert.Zero(t, out.Listener.UpdatesPerSecond)
	assert.Empty(t, out.Memory)
	assert.NotEmpty(t, out.RunID)
}

func TestRunRecordsEveryFailure(t *testing.T) {
	caps := capability.Set{
		CreateBooking: func(context.Context, booking.Booking) (string, error) {
			return "", errors.New("backend unavailable")
		},
	}
	r := newTestRunner(t, testConfig(2, 3), caps)
	out := r.Run(context.Background())

	assert.Equal(t, uint64(6), out.Stats.Total)
	assert.Zero(t, out.Stats.Success)
	assert.Equal(t, uint64(6), out.Stats.Fail)
	require.Len(t, out.Errors, 6)
	for _, e := range out.Errors {
		assert.Equal(t, "backend unavailable", e.Message)
	}
	for _, seq := range out.Users {
		for _, res := range seq {
			assert.Empty(t, res.BookingID)
		}
	}
}

func TestRunWithZeroUsers(t *testing.T) {
	r := newTestRunner(t, testConfig(0, 10), capability.Set{})
	out := r.Run(context.Background())

	assert.True(t, out.Completed)
	assert.Zero(t, out.Stats.Total)
	assert.Zero(t, out.Stats.AverageResponseTime())
	assert.Empty(t, out.Dashboards)
	assert.Empty(t, out.Results())
}

func TestRunCancelsUsersWhenBudgetElapses(t *testing.T) {
	var started atomic.Int64
	caps := capability.Set{
		CreateBooking: func(ctx context.Context, _ booking.Booking) (string, error) {
			started.Add(1)
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	cfg := testConfig(4, 10)
	cfg.Duration = 50 * time.Millisecond
	r := newTestRunner(t, cfg, caps)

	begin := time.Now()
	out := r.Run(context.Background())

	assert.False(t, out.Completed)
	assert.Zero(t, out.Abandoned)
	assert.Less(t, time.Since(begin), 2*time.Second)
	assert.Equal(t, int64(4), started.Load())
	assert.Equal(t, uint64(4), out.Stats.Total)
	assert.Equal(t, out.Stats.Total, out.Stats.Success+out.Stats.Fail)
	assert.Zero(t, r.GetActiveUsers())
}

func TestRunReportsAbandonedUsers(t *testing.T) {
	release := make(chan struct{})
	caps := capability.Set{
		CreateBooking: func(context.Context, booking.Booking) (string, error) {
			<-release
			return "late", nil
		},
	}
	cfg := testConfig(2, 1)
	cfg.Duration = 20 * time.Millisecond
	cfg.DrainTimeout = 20 * time.Millisecond
	r := newTestRunner(t, cfg, caps)

	out := r.Run(context.Background())
	close(release)

	assert.False(t, out.Completed)
	assert.Equal(t, 2, out.Abandoned)
}

func TestCapabilityPanicBecomesFailure(t *testing.T) {
	caps := capability.Set{
		CreateBooking: func(context.Context, booking.Booking) (string, error) {
			panic("boom")
		},
		PopulateEmployeeDashboard: func(context.Context, string) error {
			panic("dashboard boom")
		},
	}
	r := newTestRunner(t, testConfig(1, 1), caps)
	out := r.Run(context.Background())

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "capability panicked: boom")
	require.Len(t, out.Dashboards, 1)
	assert.False(t, out.Dashboards[0].Success)
}

func TestRunApprovesCollectedBookings(t *testing.T) {
	var seq atomic.Int64
	var approved []string
	caps := capability.Set{
		CreateBooking: func(context.Context, booking.Booking) (string, error) {
			return "B-" + string(rune('a'+seq.Add(1))), nil
		},
		UpdateBooking: func(_ context.Context, id string, p booking.Patch) error {
			assert.Equal(t, booking.StatusApproved, p.Status)
			approved = append(approved, id)
			return nil
		},
	}
	cfg := testConfig(1, 3)
	cfg.Approvals = 2
	r := newTestRunner(t, cfg, caps)
	out := r.Run(context.Background())

	require.Len(t, out.Approvals, 2)
	assert.Len(t, approved, 2)
	for _, a := range out.Approvals {
		assert.True(t, a.Success)
		assert.True(t, strings.HasPrefix(a.DriverID, "driver_"))
	}
	assert.Equal(t, uint64(3), out.Stats.Total)
	assert.Equal(t, uint64(2), out.ByKind[stats.KindApproval].Total)
	assert.Equal(t, uint64(1), out.ByKind[stats.KindDashboard].Total)
	assert.Equal(t, uint64(3), out.ByKind[stats.KindSubmission].Total)
}

func TestProbeDashboardRoles(t *testing.T) {
	var adminCalls int
	ops := &Operations{
		Caps: capability.Set{
			PopulateAdminDashboard: func(context.Context) error {
				adminCalls++
				return nil
			},
			PopulateDriverDashboard: func(context.Context, string) error {
				return errors.New("no trips")
			},
		},
		Gen:   booking.NewGenerator(1),
		Stats: stats.NewStats(),
	}
	ctx := context.Background()

	assert.True(t, ops.ProbeDashboard(ctx, "emp_0", RoleEmployee).Success)
	assert.True(t, ops.ProbeDashboard(ctx, "emp_0", RoleAdmin).Success)
	assert.Equal(t, 1, adminCalls)

	res := ops.ProbeDashboard(ctx, "driver_1", RoleDriver)
	assert.False(t, res.Success)
	assert.Equal(t, "no trips", res.Err)

	res = ops.ProbeDashboard(ctx, "emp_0", Role("auditor"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, ErrUnknownRole.Error())

	assert.Zero(t, ops.Stats.Snapshot().Total)
	assert.Equal(t, uint64(4), ops.Stats.ByKind()[stats.KindDashboard].Total)
}

func TestApproveWithoutCapabilitySucceeds(t *testing.T) {
	ops := &Operations{Gen: booking.NewGenerator(1), Stats: stats.NewStats()}
	res := ops.ApproveBooking(context.Background(), "B-1")
	assert.True(t, res.Success)
	assert.Equal(t, "B-1", res.BookingID)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("driver")
	require.NoError(t, err)
	assert.Equal(t, RoleDriver, r)

	_, err = ParseRole("guest")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRunPublishesFinalPhase(t *testing.T) {
	updates := make(StatsUpdateChan, 256)
	r := NewRunner(testConfig(1, 1), capability.Set{}, updates, WithMemory(stats.NoMemory{}))
	r.Run(context.Background())

	var last StatsSnapshot
	for {
		select {
		case s := <-updates:
			last = s
			continue
		default:
		}
		break
	}
	assert.Equal(t, PhaseDone, last.Phase)
	assert.Equal(t, uint64(1), last.Requests)
}

func TestRunZeroDashboardProbesDisablesThem(t *testing.T) {
	var calls atomic.Int32
	caps := capability.Set{
		PopulateEmployeeDashboard: func(context.Context, string) error {
			calls.Add(1)
			return nil
		},
	}
	cfg := testConfig(3, 1)
	cfg.DashboardProbes = 0
	out := newTestRunner(t, cfg, caps).Run(context.Background())

	assert.Empty(t, out.Dashboards)
	assert.Zero(t, calls.Load())
	assert.Zero(t, out.ByKind[stats.KindDashboard].Total)
}

func TestRunDashboardProbesCappedByUsers(t *testing.T) {
	cfg := testConfig(3, 1)
	cfg.DashboardProbes = 2
	out := newTestRunner(t, cfg, capability.Set{}).Run(context.Background())

	assert.Len(t, out.Dashboards, 2)
}

func TestRunPublishesErrorRate(t *testing.T) {
	updates := make(StatsUpdateChan, 256)
	caps := capability.Set{
		CreateBooking: func(context.Context, booking.Booking) (string, error) {
			return "", errors.New("down")
		},
	}
	r := NewRunner(testConfig(2, 1), caps, updates, WithMemory(stats.NoMemory{}))
	r.Run(context.Background())

	var last StatsSnapshot
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, uint64(2), last.Fail)
	assert.Equal(t, 100.0, last.ErrorRate)
}
