// Package xmetrics is a minimal in-tree counters/meters registry, in the
// same spirit as the teacher repository's in-tree "metrics" package
// (core/parallel/metrics.go: metrics.NewRegisteredMeter(name, nil) then
// .Mark(n)). It intentionally has no external backend: the accumulation
// engine only needs cheap process-local counters for batch/host-call
// statistics, not a telemetry pipeline.
package xmetrics

import "sync/atomic"

// Meter is a monotonically-increasing named counter.
type Meter struct {
	name  string
	count int64
}

// NewRegisteredMeter creates a Meter and records it in the default registry
// under name. The parent argument mirrors the teacher's API shape (a parent
// meter used for aggregation) but is unused here: the engine has no nested
// meter hierarchy.
func NewRegisteredMeter(name string, _ *Meter) *Meter {
	m := &Meter{name: name}
	registry.Store(name, m)
	return m
}

// Mark increments the meter by n.
func (m *Meter) Mark(n int64) { atomic.AddInt64(&m.count, n) }

// Count returns the meter's current value.
func (m *Meter) Count() int64 { return atomic.LoadInt64(&m.count) }

var registry = &syncMap{}

// Snapshot returns a copy of every registered meter's current count, keyed
// by name. Intended for tests.
func Snapshot() map[string]int64 {
	out := make(map[string]int64)
	registry.Range(func(name string, m *Meter) {
		out[name] = m.Count()
	})
	return out
}
