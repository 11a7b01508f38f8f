package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookload/internal/probe"
	"bookload/internal/runner"
	"bookload/internal/stats"
)

func outcome() runner.Outcome {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return runner.Outcome{
		RunID:     "run-1",
		Config:    runner.Config{Users: 10, Duration: 30 * time.Second},
		Completed: true,
		Stats: stats.Snapshot{
			Total:           100,
			Success:         95,
			Fail:            5,
			ResponseTimeSum: 20 * time.Second,
			StartTime:       start,
			EndTime:         start.Add(10 * time.Second),
		},
		Listener: probe.Result{ListenerType: "all", UpdatesReceived: 50, UpdatesPerSecond: 10},
	}
}

func codes(recs []Recommendation) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Code)
	}
	return out
}

func TestBuildOverall(t *testing.T) {
	rep := Build(outcome(), DefaultThresholds())

	assert.Equal(t, 95.0, rep.Overall.SuccessPct)
	assert.Equal(t, 5.0, rep.Overall.FailPct)
	assert.Equal(t, 200*time.Millisecond, rep.Overall.AvgResponse)
	assert.InDelta(t, 10.0, rep.Overall.OpsPerSecond, 0.001)
	assert.Empty(t, rep.Recommendations)
	assert.Nil(t, rep.Memory)
	assert.Nil(t, rep.Dashboard)
}

func TestBuildWithNoOperations(t *testing.T) {
	rep := Build(runner.Outcome{}, DefaultThresholds())

	assert.Zero(t, rep.Overall.SuccessPct)
	assert.Zero(t, rep.Overall.FailPct)
	assert.Zero(t, rep.Overall.AvgResponse)
	assert.Zero(t, rep.Overall.OpsPerSecond)
	assert.Empty(t, rep.Recommendations)

	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))
	assert.Contains(t, buf.String(), "Successful            : 0 (0.00%)")
	assert.NotContains(t, buf.String(), "NaN")
}

func TestRecommendations(t *testing.T) {
	out := outcome()
	out.Stats.Fail = 20
	out.Stats.Success = 80
	out.Stats.ResponseTimeSum = 150 * time.Second
	out.Listener.UpdatesPerSecond = 150
	out.Memory = []stats.MemorySample{{UsedMB: 10}, {UsedMB: 80}}

	rep := Build(out, DefaultThresholds())
	assert.Equal(t, []string{"slow-responses", "high-failure-rate", "memory-growth", "chatty-listeners"}, codes(rep.Recommendations))

	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))
	assert.Contains(t, buf.String(), "Average response time is high (>1s)")
	assert.Contains(t, buf.String(), "Failure rate is high (>10%)")
	assert.Contains(t, buf.String(), "Memory usage increased significantly (>50MB)")
	assert.Contains(t, buf.String(), "(>100/sec)")
}

func TestMemorySection(t *testing.T) {
	out := outcome()
	out.Memory = []stats.MemorySample{{UsedMB: 100, LimitMB: 1000}, {UsedMB: 120, LimitMB: 1000}}
	rep := Build(out, DefaultThresholds())
	require.NotNil(t, rep.Memory)
	assert.Equal(t, 20.0, rep.Memory.DeltaMB)
	assert.Equal(t, 12.0, rep.Memory.UsagePct)

	out.Memory = []stats.MemorySample{{UsedMB: 100}, {UsedMB: 90}}
	rep = Build(out, DefaultThresholds())
	assert.Zero(t, rep.Memory.UsagePct)

	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))
	assert.Contains(t, buf.String(), "Limit : unlimited")
	assert.Contains(t, buf.String(), "Delta : -10.00 MB")
}

func TestErrorsAreTruncated(t *testing.T) {
	out := outcome()
	for i := 0; i < 12; i++ {
		out.Errors = append(out.Errors, stats.ErrorRecord{Message: fmt.Sprintf("err %d", i), UserID: i})
	}
	rep := Build(out, DefaultThresholds())

	assert.Len(t, rep.Errors, MaxListedErrors)
	assert.Equal(t, 12, rep.ErrorCount)
	assert.Len(t, out.Errors, 12)

	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))
	assert.Contains(t, buf.String(), "10. err 9 (User: 9")
	assert.Contains(t, buf.String(), "... and 2 more errors")
}

func TestDashboardAndApprovals(t *testing.T) {
	out := outcome()
	out.Dashboards = []runner.DashboardResult{
		{Role: runner.RoleAdmin, Success: true, ResponseTime: 10 * time.Millisecond},
		{Role: runner.RoleAdmin, Success: false, ResponseTime: 30 * time.Millisecond},
	}
	out.Approvals = []runner.ApprovalResult{{Success: true, ResponseTime: 4 * time.Millisecond}}

	rep := Build(out, DefaultThresholds())
	require.NotNil(t, rep.Dashboard)
	assert.Equal(t, 20*time.Millisecond, rep.Dashboard.Average)
	assert.Equal(t, 1, rep.Dashboard.Completed)
	assert.Equal(t, 2, rep.Dashboard.Attempted)
	require.NotNil(t, rep.Approvals)
	assert.Equal(t, 1, rep.Approvals.Succeeded)

	var buf bytes.Buffer
	require.NoError(t, rep.Render(&buf))
	assert.Contains(t, buf.String(), "Tests Completed   : 1/2")
}
