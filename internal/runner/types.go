package runner

import (
	"fmt"
	"time"

	"bookload/internal/probe"
	"bookload/internal/stats"
)

type Config struct {
	Users             int           `json:"users" yaml:"users"`
	Duration          time.Duration `json:"duration" yaml:"duration"`
	OperationsPerUser int           `json:"operations_per_user" yaml:"operations_per_user"`
	OperationDelay    time.Duration `json:"operation_delay" yaml:"operation_delay"`
	ListenerWindow    time.Duration `json:"listener_window" yaml:"listener_window"`
	// DashboardProbes caps the dashboard probes at min(Users, DashboardProbes); 0 disables them.
	DashboardProbes int           `json:"dashboard_probes" yaml:"dashboard_probes"`
	DashboardRole   Role          `json:"dashboard_role" yaml:"dashboard_role"`
	Approvals       int           `json:"approvals" yaml:"approvals"`
	DrainTimeout    time.Duration `json:"drain_timeout" yaml:"drain_timeout"`
}

// Role selects which dashboard a probe populates.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
	RoleDriver   Role = "driver"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleEmployee, RoleAdmin, RoleDriver:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Phase is the orchestrator's current step, published with every snapshot.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUsers      Phase = "virtual users"
	PhaseDraining   Phase = "draining"
	PhaseListener   Phase = "listener probe"
	PhaseDashboards Phase = "dashboard probes"
	PhaseApprovals  Phase = "approvals"
	PhaseDone       Phase = "done"
)

// OperationResult is the outcome of one booking submission.
type OperationResult struct {
	TimeStamp      time.Time     `json:"timestamp" yaml:"timestamp"`
	UserID         int           `json:"user_id" yaml:"user_id"`
	OperationIndex int           `json:"operation_index" yaml:"operation_index"`
	BookingID      string        `json:"booking_id,omitempty" yaml:"booking_id,omitempty"`
	Success        bool          `json:"success" yaml:"success"`
	Fallback       bool          `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	ResponseTime   time.Duration `json:"response_time" yaml:"response_time"`
	Err            string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type ApprovalResult struct {
	BookingID    string        `json:"booking_id" yaml:"booking_id"`
	DriverID     string        `json:"driver_id" yaml:"driver_id"`
	Success      bool          `json:"success" yaml:"success"`
	ResponseTime time.Duration `json:"response_time" yaml:"response_time"`
	Err          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type DashboardResult struct {
	UserID       string        `json:"user_id" yaml:"user_id"`
	Role         Role          `json:"role" yaml:"role"`
	Success      bool          `json:"success" yaml:"success"`
	ResponseTime time.Duration `json:"response_time" yaml:"response_time"`
	Err          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Outcome is everything one orchestrated run produced.
type Outcome struct {
	RunID      string
	Config     Config
	Users      [][]OperationResult
	Completed  bool // every virtual user finished inside the budget
	Abandoned  int  // users still running when the drain timeout expired
	Listener   probe.Result
	Dashboards []DashboardResult
	Approvals  []ApprovalResult
	Stats      stats.Snapshot
	Memory     []stats.MemorySample
	Errors     []stats.ErrorRecord
	ByKind     map[stats.Kind]stats.KindCounts
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Max        time.Duration
}

// Results flattens the per-user results in user order.
func (o Outcome) Results() []OperationResult {
	var out []OperationResult
	for _, u := range o.Users {
		out = append(out, u...)
	}
	return out
}

// StatsSnapshot is sent over the channel
type StatsSnapshot struct {
	Phase       Phase
	Requests    uint64
	Success     uint64
	Fail        uint64
	ActiveUsers int64
	Elapsed     time.Duration

	// Pre-calculated percentiles for the UI (cheap copy)
	ErrorRate     float64
	AvgResponseMs float64
	P50Ms         float64
	P95Ms         float64
	P99Ms         float64
	MaxMs         float64
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot
