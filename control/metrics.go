// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring.
// Exposes counters in a thread-safe map with dynamic registration.
// RecordSchedulerSnapshot is the one typed write path: it unpacks a
// scheduler.Snapshot into this registry's counters by name, so the
// scheduler's own counter names stay authoritative.

package control

import (
	"sync"
	"time"

	"github.com/momentics/asyncrt/scheduler"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// RecordSchedulerSnapshot writes s's counters into the registry under
// a "scheduler." prefix, so a metrics dump surfaces spawned/completed/
// registration-conflict/detached-reclaimed counts by name.
func (mr *MetricsRegistry) RecordSchedulerSnapshot(s scheduler.Snapshot) {
	mr.Set("scheduler.spawned", s.Spawned)
	mr.Set("scheduler.completed", s.Completed)
	mr.Set("scheduler.registration_conflicts", s.RegistrationConflicts)
	mr.Set("scheduler.detached_reclaimed", s.DetachedReclaimed)
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// LastUpdated returns the time of the most recent Set call, or the
// zero Time if none has happened yet.
func (mr *MetricsRegistry) LastUpdated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
