package discord

import (
	"math"
	"sort"
	"sync"
	"time"
)

// CaptureStats collects clip-export latency samples and counter values
// for dashboard display. It maintains a bounded ring buffer of recent
// latency observations from which percentiles are computed on demand.
//
// Thread-safe for concurrent use.
type CaptureStats struct {
	mu sync.Mutex

	export latencyBuffer

	clips  int64
	errors int64
}

// NewCaptureStats creates a CaptureStats with the given window size
// (maximum number of latency samples retained).
func NewCaptureStats(windowSize int) *CaptureStats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &CaptureStats{
		export: newLatencyBuffer(windowSize),
	}
}

// RecordExport records one successful clip export and its latency.
func (cs *CaptureStats) RecordExport(d time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.export.add(d)
	cs.clips++
}

// IncrErrors increments the error counter.
func (cs *CaptureStats) IncrErrors() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.errors++
}

// LatencyPercentiles holds p50 and p95 values for a latency series.
type LatencyPercentiles struct {
	P50 time.Duration
	P95 time.Duration
}

// CaptureSnapshot captures a point-in-time view of all capture statistics.
type CaptureSnapshot struct {
	Export LatencyPercentiles
	Clips  int64
	Errors int64
}

// Snapshot returns a point-in-time view of all capture statistics.
func (cs *CaptureStats) Snapshot() CaptureSnapshot {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return CaptureSnapshot{
		Export: cs.export.percentiles(),
		Clips:  cs.clips,
		Errors: cs.errors,
	}
}

// latencyBuffer is a bounded ring buffer of duration samples.
type latencyBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = d
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() LatencyPercentiles {
	n := lb.pos
	if lb.full {
		n = lb.size
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	// Copy and sort the valid samples.
	sorted := make([]time.Duration, n)
	if lb.full {
		copy(sorted, lb.data)
	} else {
		copy(sorted, lb.data[:n])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
