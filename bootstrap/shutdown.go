// Package bootstrap implements the single graceful-shutdown primitive
// spec.md §6 requires: stop the scheduler, stop the reactor, and join
// its goroutine. It is the one place outside task/scheduler/reactor
// that is allowed to know about all three at once.
package bootstrap

import (
	"sync"

	"github.com/momentics/asyncrt/reactor"
	"github.com/momentics/asyncrt/scheduler"
)

// Shutdown stops s, then stops r and waits for its event loop
// goroutine to return. Safe to call more than once and safe to call
// from multiple goroutines concurrently (e.g. once from a signal
// handler and once from the top-level task's own completion) — only
// the first call does any work.
type Shutdown struct {
	once sync.Once
	s    *scheduler.Scheduler
	r    *reactor.Reactor
}

// New returns a Shutdown primitive bound to s and r.
func New(s *scheduler.Scheduler, r *reactor.Reactor) *Shutdown {
	return &Shutdown{s: s, r: r}
}

// Run performs the shutdown sequence exactly once.
func (sd *Shutdown) Run() {
	sd.once.Do(func() {
		sd.s.Stop()
		sd.r.Stop()
		sd.r.Wait()
	})
}
