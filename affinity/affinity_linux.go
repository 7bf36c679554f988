//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation of CPU affinity via sched_setaffinity(2),
// through golang.org/x/sys/unix rather than cgo — keeps the runtime
// buildable without a C toolchain, and matches the dependency this
// module already carries for the reactor and netio packages.

package affinity

import "golang.org/x/sys/unix"

// setAffinityPlatform pins the calling OS thread to cpuID.
//
// runtime.LockOSThread is the caller's responsibility: affinity only
// sticks for as long as the calling goroutine stays on the same OS
// thread, and PinWorker locks the thread before calling SetAffinity.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}
