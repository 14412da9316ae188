// Package metrics records timing and counter statistics for the graph pipeline.
//
// Collection is on by default and can be switched off with G3D_METRICS=0.
// Everything is lock-free so playback frames can record without contention.
//
//	func relayout() {
//	    defer metrics.Timer(metrics.Layout)()
//	    // ...
//	}
package metrics

import (
	"os"
	"sort"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("G3D_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric tracks count, total, min and max for one named operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means unset
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a consistent-enough snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records the elapsed time when called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	if Enabled() {
		c.n.Add(1)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Pipeline timings.
var (
	GraphLoad    = newTimingMetric("graph_load")
	Valuation    = newTimingMetric("valuation")
	Layout       = newTimingMetric("layout")
	BalanceApply = newTimingMetric("balance_apply")
	Analysis     = newTimingMetric("analysis")
	UIRender     = newTimingMetric("ui_render")
	Export       = newTimingMetric("export")
)

// Playback counters.
var (
	Frames      = &Counter{name: "frames"}
	DayAdvances = &Counter{name: "day_advances"}
)

// allTimingMetrics returns all registered timing metrics.
func allTimingMetrics() []*TimingMetric {
	return []*TimingMetric{GraphLoad, Valuation, Layout, BalanceApply, Analysis, UIRender, Export}
}

// ResetAll resets every metric and counter.
func ResetAll() {
	for _, m := range allTimingMetrics() {
		m.Reset()
	}
	Frames.n.Store(0)
	DayAdvances.n.Store(0)
}

// AllTimingStats returns stats for metrics that have data, sorted by name.
func AllTimingStats() []TimingStats {
	var stats []TimingStats
	for _, m := range allTimingMetrics() {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
