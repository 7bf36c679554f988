//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Debug probes over the affinity package's view of the host: the CPU
// count scheduler worker pinning targets, and whether pinning is in
// effect for this run's config.

package control

import (
	"github.com/momentics/asyncrt/affinity"
)

// RegisterPlatformProbes exposes affinity-related debug data: the
// number of logical CPUs PinWorker can target, and the pinning mode
// the current RuntimeConfig requests.
func RegisterPlatformProbes(dp *DebugProbes, cs *ConfigStore) {
	dp.RegisterProbe("affinity.available_cpus", func() any {
		return affinity.AvailableCPUs()
	})
	dp.RegisterProbe("affinity.pinning_enabled", func() any {
		return cs.Get().PinWorkers
	})
}
