// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. The only platform implementation is
// affinity_linux.go (build tag linux); the package does not build on other platforms.

package affinity

import "runtime"

// SetAffinity pins current OS thread to a given logical CPU/core. It returns
// the error reported by the platform call, if any.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// AvailableCPUs reports the number of logical CPUs worker pinning can
// target: PinWorker computes its target core as workerID % AvailableCPUs().
func AvailableCPUs() int {
	return runtime.NumCPU()
}
