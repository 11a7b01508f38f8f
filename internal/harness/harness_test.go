package harness

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bookload/internal/booking"
	"bookload/internal/capability"
	"bookload/internal/runner"
	"bookload/internal/stats"
)

func baseConfig() runner.Config {
	return runner.Config{
		OperationsPerUser: 2,
		ListenerWindow:    10 * time.Millisecond,
		DashboardProbes:   5,
		DashboardRole:     runner.RoleEmployee,
		DrainTimeout:      time.Second,
	}
}

func TestLoadTestRendersReport(t *testing.T) {
	var buf bytes.Buffer
	h := New(capability.Set{}, baseConfig(),
		WithOutput(&buf),
		WithMemory(stats.NoMemory{}),
		WithLogger(zaptest.NewLogger(t)),
		WithSeed(3),
	)

	res := h.LoadTest(context.Background(), 2, 5*time.Second)

	assert.Equal(t, uint64(4), res.Report.Overall.Total)
	assert.Equal(t, 100.0, res.Report.Overall.SuccessPct)
	require.NotNil(t, res.Report.Dashboard)
	assert.Equal(t, 2, res.Report.Dashboard.Attempted)
	assert.Contains(t, buf.String(), "LOAD TEST REPORT")
	assert.Same(t, h.Metrics(), h.Metrics())
	assert.Equal(t, uint64(4), h.Metrics().Snapshot().Total)
}

func TestLoadTestWithFailingBackend(t *testing.T) {
	caps := capability.Set{
		CreateBooking: func(context.Context, booking.Booking) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	h := New(caps, baseConfig(), WithMemory(stats.NoMemory{}))
	res := h.LoadTest(context.Background(), 1, 5*time.Second)

	assert.Equal(t, 100.0, res.Report.Overall.FailPct)
	require.NotEmpty(t, res.Report.Recommendations)
	assert.Equal(t, "high-failure-rate", res.Report.Recommendations[0].Code)
	assert.Equal(t, 2, res.Report.ErrorCount)
}

func TestPresetsUseFixedShape(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := New(capability.Set{}, baseConfig(), WithMemory(stats.NoMemory{}))
	quick := h.QuickLoadTest(ctx)
	assert.Equal(t, QuickUsers, quick.Outcome.Config.Users)
	assert.Equal(t, QuickBudget, quick.Outcome.Config.Duration)

	stress := h.StressTest(ctx)
	assert.Equal(t, StressUsers, stress.Outcome.Config.Users)
	assert.Equal(t, StressBudget, stress.Outcome.Config.Duration)
	assert.Equal(t, stress.Outcome.Stats.Total, stress.Outcome.Stats.Success+stress.Outcome.Stats.Fail)
}
