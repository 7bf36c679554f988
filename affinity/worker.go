// File: affinity/worker.go
// Author: momentics <momentics@gmail.com>
//
// PinWorker is the scheduler-facing entry point: best-effort, never
// fatal. A scheduler worker that fails to pin keeps running
// unaffected — affinity is strictly an ambient placement hint, never
// required for any Task/Scheduler/Reactor invariant.

package affinity

import (
	"log"
	"runtime"
)

// PinWorker locks the calling goroutine to its OS thread and attempts
// to pin that thread to workerID modulo the number of logical CPUs.
// Failure is logged and otherwise ignored.
func PinWorker(workerID int) {
	runtime.LockOSThread()
	n := AvailableCPUs()
	if n == 0 {
		return
	}
	cpu := workerID % n
	if err := SetAffinity(cpu); err != nil {
		log.Printf("affinity: pin worker %d to cpu %d: %v", workerID, cpu, err)
	}
}
