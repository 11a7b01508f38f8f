package stats

import (
	"math"
	"runtime"
	"runtime/debug"
	"time"
)

// HeapStats is a raw heap reading in bytes. Limit is 0 when the runtime has no
// configured memory limit.
type HeapStats struct {
	Used  uint64
	Total uint64
	Limit uint64
}

// MemorySource reports heap usage. ok is false when the runtime exposes no
// heap introspection.
type MemorySource interface {
	ReadHeap() (stats HeapStats, ok bool)
}

// RuntimeMemory reads the Go runtime's heap statistics.
type RuntimeMemory struct{}

func (RuntimeMemory) ReadHeap() (HeapStats, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var limit uint64
	if l := debug.SetMemoryLimit(-1); l > 0 && l != math.MaxInt64 {
		limit = uint64(l)
	}
	return HeapStats{Used: ms.HeapAlloc, Total: ms.HeapSys, Limit: limit}, true
}

// NoMemory is a MemorySource without introspection.
type NoMemory struct{}

func (NoMemory) ReadHeap() (HeapStats, bool) { return HeapStats{}, false }

// MemorySample is a point-in-time heap snapshot in megabytes.
type MemorySample struct {
	UsedMB    float64   `json:"used_mb" yaml:"used_mb"`
	TotalMB   float64   `json:"total_mb" yaml:"total_mb"`
	LimitMB   float64   `json:"limit_mb" yaml:"limit_mb"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func BytesToMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

// SampleHeap reads src once. It returns nil when src has no introspection.
func SampleHeap(src MemorySource, now time.Time) *MemorySample {
	if src == nil {
		return nil
	}
	h, ok := src.ReadHeap()
	if !ok {
		return nil
	}
	return &MemorySample{
		UsedMB:    BytesToMB(h.Used),
		TotalMB:   BytesToMB(h.Total),
		LimitMB:   BytesToMB(h.Limit),
		Timestamp: now,
	}
}

// UsedBytes returns the current heap usage of src, or 0 without introspection.
func UsedBytes(src MemorySource) uint64 {
	if src == nil {
		return 0
	}
	h, ok := src.ReadHeap()
	if !ok {
		return 0
	}
	return h.Used
}
