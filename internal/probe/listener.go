// Package probe measures real-time update activity of the system under test.
package probe

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"bookload/internal/capability"
	"bookload/internal/stats"
)

// DefaultWindow is the observation window used when none is given.
const DefaultWindow = 10 * time.Second

var ErrProbeUsed = errors.New("listener probe already used")

// Result is the outcome of one probe window.
type Result struct {
	ListenerType     string        `json:"listener_type" yaml:"listener_type"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
	UpdatesReceived  int64         `json:"updates_received" yaml:"updates_received"`
	UpdatesPerSecond float64       `json:"updates_per_second" yaml:"updates_per_second"`
	MemoryBeforeMB   float64       `json:"memory_before_mb" yaml:"memory_before_mb"`
	MemoryAfterMB    float64       `json:"memory_after_mb" yaml:"memory_after_mb"`
	MemoryDeltaMB    float64       `json:"memory_delta_mb" yaml:"memory_delta_mb"`
	Error            string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// ListenerProbe counts activity events for a fixed window. A probe runs once.
type ListenerProbe struct {
	source       capability.ActivitySource
	memory       stats.MemorySource
	listenerType string
	filter       func(capability.Event) bool
	logger       *zap.Logger
	used         atomic.Bool
}

type Option func(*ListenerProbe)

// WithFilter selects which events count as listener updates.
func WithFilter(f func(capability.Event) bool) Option {
	return func(p *ListenerProbe) { p.filter = f }
}

func WithMemory(src stats.MemorySource) Option {
	return func(p *ListenerProbe) { p.memory = src }
}

func WithListenerType(name string) Option {
	return func(p *ListenerProbe) { p.listenerType = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *ListenerProbe) { p.logger = l }
}

// IsListenerEvent matches events whose source names a listener.
func IsListenerEvent(e capability.Event) bool {
	return strings.Contains(e.Source, "Listener")
}

// NewListener builds a probe over source. A nil source yields zero updates.
func NewListener(source capability.ActivitySource, opts ...Option) *ListenerProbe {
	p := &ListenerProbe{
		source:       source,
		memory:       stats.RuntimeMemory{},
		listenerType: "all",
		filter:       IsListenerEvent,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run observes activity for window and reports what it saw. If ctx ends
// early the partial result is returned together with ctx.Err().
func (p *ListenerProbe) Run(ctx context.Context, window time.Duration) (Result, error) {
	if !p.used.CompareAndSwap(false, true) {
		return Result{}, ErrProbeUsed
	}
	if window <= 0 {
		window = DefaultWindow
	}

	res := Result{ListenerType: p.listenerType}
	memBefore := stats.UsedBytes(p.memory)
	start := time.Now()

	var count atomic.Int64
	if p.source != nil {
		cancel, err := p.source.Subscribe(ctx, func(e capability.Event) {
			if p.filter == nil || p.filter(e) {
				count.Add(1)
			}
		})
		if err != nil {
			p.logger.Warn("listener probe could not subscribe", zap.Error(err))
			res.Error = err.Error()
		} else {
			defer cancel()
		}
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	var runErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		runErr = ctx.Err()
	}

	elapsed := time.Since(start)
	memAfter := stats.UsedBytes(p.memory)

	res.Duration = elapsed
	res.UpdatesReceived = count.Load()
	if secs := elapsed.Seconds(); secs > 0 && res.UpdatesReceived > 0 {
		res.UpdatesPerSecond = float64(res.UpdatesReceived) / secs
	}
	res.MemoryBeforeMB = stats.BytesToMB(memBefore)
	res.MemoryAfterMB = stats.BytesToMB(memAfter)
	res.MemoryDeltaMB = res.MemoryAfterMB - res.MemoryBeforeMB

	return res, runErr
}
