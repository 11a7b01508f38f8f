package stats

import (
	"sync"
	"time"
)

// Kind identifies the simulated operation an outcome belongs to.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindApproval   Kind = "approval"
	KindDashboard  Kind = "dashboard"
)

// ErrorRecord describes one failed booking submission.
type ErrorRecord struct {
	Message        string        `json:"error" yaml:"error"`
	UserID         int           `json:"user_id" yaml:"user_id"`
	OperationIndex int           `json:"operation_index" yaml:"operation_index"`
	ResponseTime   time.Duration `json:"response_time" yaml:"response_time"`
}

// KindCounts is the per-kind breakdown. Every operation kind is recorded here.
type KindCounts struct {
	Total           uint64        `json:"total" yaml:"total"`
	Success         uint64        `json:"success" yaml:"success"`
	Fail            uint64        `json:"fail" yaml:"fail"`
	ResponseTimeSum time.Duration `json:"response_time_sum" yaml:"response_time_sum"`
}

// Average returns the mean response time, or 0 when nothing was recorded.
func (k KindCounts) Average() time.Duration {
	if k.Total == 0 {
		return 0
	}
	return k.ResponseTimeSum / time.Duration(k.Total)
}

// Stats is the metrics aggregate of one harness run. The top-level counters
// track booking submissions; all kinds land in the per-kind breakdown.
// Counter updates share one lock so Total == Success + Fail holds for every
// reader.
type Stats struct {
	mu sync.Mutex

	startTime time.Time
	endTime   time.Time

	total           uint64
	success         uint64
	fail            uint64
	responseTimeSum time.Duration

	byKind map[Kind]*KindCounts
	errors []ErrorRecord
	memory []MemorySample

	// Submission response times (microseconds)
	ResponseTime *SafeHistogram
}

func NewStats() *Stats {
	return &Stats{
		byKind:       make(map[Kind]*KindCounts),
		ResponseTime: NewSafeHistogram(),
	}
}

// Snapshot is a consistent copy of the aggregate counters.
type Snapshot struct {
	Total           uint64
	Success         uint64
	Fail            uint64
	ResponseTimeSum time.Duration
	ErrorCount      int
	StartTime       time.Time
	EndTime         time.Time
}

// AverageResponseTime is the sum of submission response times divided by
// Total, or 0 when no submission completed.
func (s Snapshot) AverageResponseTime() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.ResponseTimeSum / time.Duration(s.Total)
}

// Elapsed is the run time between Start and Finish, or 0 before Finish.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// ErrorRate is the submission failure percentage, or 0 when nothing was
// submitted.
func (s Snapshot) ErrorRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Fail) / float64(s.Total) * 100
}

// OperationsPerSecond is Total over the elapsed run time, or 0 when no time
// has elapsed.
func (s Snapshot) OperationsPerSecond() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Total) / secs
}

func (s *Stats) Start(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = t
	s.endTime = time.Time{}
}

func (s *Stats) Finish(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTime = t
}

// AddSubmission records a booking submission. A nil failure means success.
func (s *Stats) AddSubmission(responseTime time.Duration, failure *ErrorRecord) {
	s.mu.Lock()
	s.total++
	s.responseTimeSum += responseTime
	if failure == nil {
		s.success++
	} else {
		s.fail++
		s.errors = append(s.errors, *failure)
	}
	s.addKindLocked(KindSubmission, responseTime, failure == nil)
	s.mu.Unlock()

	s.ResponseTime.RecordDuration(responseTime)
}

// AddOperation records an approval or dashboard probe in the per-kind
// breakdown only. Submissions go through AddSubmission.
func (s *Stats) AddOperation(kind Kind, responseTime time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addKindLocked(kind, responseTime, ok)
}

func (s *Stats) addKindLocked(kind Kind, responseTime time.Duration, ok bool) {
	k, found := s.byKind[kind]
	if !found {
		k = &KindCounts{}
		s.byKind[kind] = k
	}
	k.Total++
	k.ResponseTimeSum += responseTime
	if ok {
		k.Success++
	} else {
		k.Fail++
	}
}

// SampleMemory appends a heap sample from src. It returns nil, appending
// nothing, when src has no introspection.
func (s *Stats) SampleMemory(src MemorySource) *MemorySample {
	sample := SampleHeap(src, time.Now())
	if sample == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = append(s.memory, *sample)
	return sample
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Total:           s.total,
		Success:         s.success,
		Fail:            s.fail,
		ResponseTimeSum: s.responseTimeSum,
		ErrorCount:      len(s.errors),
		StartTime:       s.startTime,
		EndTime:         s.endTime,
	}
}

func (s *Stats) Errors() []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ErrorRecord, len(s.errors))
	copy(out, s.errors)
	return out
}

func (s *Stats) MemorySamples() []MemorySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MemorySample, len(s.memory))
	copy(out, s.memory)
	return out
}

func (s *Stats) ByKind() map[Kind]KindCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Kind]KindCounts, len(s.byKind))
	for k, v := range s.byKind {
		out[k] = *v
	}
	return out
}
