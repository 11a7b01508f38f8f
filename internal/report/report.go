// Package report turns a run outcome into a summary with threshold-based
// recommendations, and renders it for the console.
package report

import (
	"time"

	"bookload/internal/probe"
	"bookload/internal/runner"
	"bookload/internal/stats"
)

// MaxListedErrors is how many error records a report lists individually.
const MaxListedErrors = 10

type Thresholds struct {
	AvgResponse    time.Duration `mapstructure:"avg_response" json:"avg_response" yaml:"avg_response" validate:"gt=0"`
	FailureRate    float64       `mapstructure:"failure_rate" json:"failure_rate" yaml:"failure_rate" validate:"gte=0,lte=100"`
	MemoryGrowthMB float64       `mapstructure:"memory_growth_mb" json:"memory_growth_mb" yaml:"memory_growth_mb" validate:"gte=0"`
	ListenerRate   float64       `mapstructure:"listener_rate" json:"listener_rate" yaml:"listener_rate" validate:"gte=0"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AvgResponse:    time.Second,
		FailureRate:    10,
		MemoryGrowthMB: 50,
		ListenerRate:   100,
	}
}

type Overall struct {
	Total        uint64        `json:"total" yaml:"total"`
	Success      uint64        `json:"success" yaml:"success"`
	Fail         uint64        `json:"fail" yaml:"fail"`
	SuccessPct   float64       `json:"success_pct" yaml:"success_pct"`
	FailPct      float64       `json:"fail_pct" yaml:"fail_pct"`
	AvgResponse  time.Duration `json:"avg_response" yaml:"avg_response"`
	P50          time.Duration `json:"p50" yaml:"p50"`
	P95          time.Duration `json:"p95" yaml:"p95"`
	P99          time.Duration `json:"p99" yaml:"p99"`
	Max          time.Duration `json:"max" yaml:"max"`
	OpsPerSecond float64       `json:"ops_per_second" yaml:"ops_per_second"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
	Completed    bool          `json:"completed" yaml:"completed"`
	Abandoned    int           `json:"abandoned,omitempty" yaml:"abandoned,omitempty"`
}

type Memory struct {
	StartMB float64 `json:"start_mb" yaml:"start_mb"`
	EndMB   float64 `json:"end_mb" yaml:"end_mb"`
	DeltaMB float64 `json:"delta_mb" yaml:"delta_mb"`
	// LimitMB is 0 when the process has no memory limit.
	LimitMB  float64 `json:"limit_mb" yaml:"limit_mb"`
	UsagePct float64 `json:"usage_pct,omitempty" yaml:"usage_pct,omitempty"`
}

type Dashboard struct {
	Role      runner.Role   `json:"role" yaml:"role"`
	Average   time.Duration `json:"average" yaml:"average"`
	Completed int           `json:"completed" yaml:"completed"`
	Attempted int           `json:"attempted" yaml:"attempted"`
}

type Approvals struct {
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Attempted int           `json:"attempted" yaml:"attempted"`
	Average   time.Duration `json:"average" yaml:"average"`
}

type Recommendation struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

type Report struct {
	RunID           string              `json:"run_id" yaml:"run_id"`
	GeneratedAt     time.Time           `json:"generated_at" yaml:"generated_at"`
	Users           int                 `json:"users" yaml:"users"`
	Budget          time.Duration       `json:"budget" yaml:"budget"`
	Overall         Overall             `json:"overall" yaml:"overall"`
	Memory          *Memory             `json:"memory,omitempty" yaml:"memory,omitempty"`
	Listener        probe.Result        `json:"listener" yaml:"listener"`
	Dashboard       *Dashboard          `json:"dashboard,omitempty" yaml:"dashboard,omitempty"`
	Approvals       *Approvals          `json:"approvals,omitempty" yaml:"approvals,omitempty"`
	Errors          []stats.ErrorRecord `json:"errors,omitempty" yaml:"errors,omitempty"`
	ErrorCount      int                 `json:"error_count" yaml:"error_count"`
	Recommendations []Recommendation    `json:"recommendations" yaml:"recommendations"`
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Build summarises out. It does not touch the outcome.
func Build(out runner.Outcome, th Thresholds) Report {
	s := out.Stats
	rep := Report{
		RunID:       out.RunID,
		GeneratedAt: time.Now(),
		Users:       out.Config.Users,
		Budget:      out.Config.Duration,
		Overall: Overall{
			Total:        s.Total,
			Success:      s.Success,
			Fail:         s.Fail,
			SuccessPct:   percent(s.Success, s.Total),
			FailPct:      s.ErrorRate(),
			AvgResponse:  s.AverageResponseTime(),
			P50:          out.P50,
			P95:          out.P95,
			P99:          out.P99,
			Max:          out.Max,
			OpsPerSecond: s.OperationsPerSecond(),
			Elapsed:      s.Elapsed(),
			Completed:    out.Completed,
			Abandoned:    out.Abandoned,
		},
		Listener:   out.Listener,
		ErrorCount: len(out.Errors),
	}

	if n := len(out.Memory); n >= 2 {
		first, last := out.Memory[0], out.Memory[n-1]
		m := &Memory{
			StartMB: first.UsedMB,
			EndMB:   last.UsedMB,
			DeltaMB: last.UsedMB - first.UsedMB,
			LimitMB: first.LimitMB,
		}
		if m.LimitMB > 0 {
			m.UsagePct = last.UsedMB / m.LimitMB * 100
		}
		rep.Memory = m
	}

	if len(out.Dashboards) > 0 {
		d := &Dashboard{Role: out.Dashboards[0].Role, Attempted: len(out.Dashboards)}
		var sum time.Duration
		for _, r := range out.Dashboards {
			sum += r.ResponseTime
			if r.Success {
				d.Completed++
			}
		}
		d.Average = sum / time.Duration(len(out.Dashboards))
		rep.Dashboard = d
	}

	if len(out.Approvals) > 0 {
		a := &Approvals{Attempted: len(out.Approvals)}
		var sum time.Duration
		for _, r := range out.Approvals {
			sum += r.ResponseTime
			if r.Success {
				a.Succeeded++
			}
		}
		a.Average = sum / time.Duration(len(out.Approvals))
		rep.Approvals = a
	}

	if len(out.Errors) > 0 {
		n := min(len(out.Errors), MaxListedErrors)
		rep.Errors = append([]stats.ErrorRecord(nil), out.Errors[:n]...)
	}

	rep.Recommendations = recommend(rep, th)
	return rep
}

func recommend(rep Report, th Thresholds) []Recommendation {
	var recs []Recommendation
	if rep.Overall.AvgResponse > th.AvgResponse {
		recs = append(recs, Recommendation{
			Code:    "slow-responses",
			Message: "Average response time is high (>" + th.AvgResponse.String() + "). Consider optimizing database queries.",
		})
	}
	if rep.Overall.Total > 0 && rep.Overall.FailPct > th.FailureRate {
		recs = append(recs, Recommendation{
			Code:    "high-failure-rate",
			Message: "Failure rate is high (>" + trimFloat(th.FailureRate) + "%). Check error logs and system stability.",
		})
	}
	if rep.Memory != nil && rep.Memory.DeltaMB > th.MemoryGrowthMB {
		recs = append(recs, Recommendation{
			Code:    "memory-growth",
			Message: "Memory usage increased significantly (>" + trimFloat(th.MemoryGrowthMB) + "MB). Check for memory leaks.",
		})
	}
	if rep.Listener.UpdatesPerSecond > th.ListenerRate {
		recs = append(recs, Recommendation{
			Code:    "chatty-listeners",
			Message: "Real-time listener updates are very frequent (>" + trimFloat(th.ListenerRate) + "/sec). Consider throttling.",
		})
	}
	return recs
}
