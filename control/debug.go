// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug handler and probe reflector for internal inspection.
// RegisterSchedulerProbe names the scheduler.Snapshot shape directly
// so a probe dump reads as scheduler counters, not an opaque "any".

package control

import (
	"sync"

	"github.com/momentics/asyncrt/scheduler"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// RegisterSchedulerProbe inserts a probe backed by a scheduler's
// Stats method, so DumpState's output carries a scheduler.Snapshot
// under name instead of a hand-assembled map.
func (dp *DebugProbes) RegisterSchedulerProbe(name string, stats func() scheduler.Snapshot) {
	dp.RegisterProbe(name, func() any { return stats() })
}

// Unregister removes a previously registered probe, if present.
func (dp *DebugProbes) Unregister(name string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	delete(dp.probes, name)
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
