// Package scheduler implements the multi-worker executor that runs
// ready Tasks, arbitrates parent/child resumption on completion, and
// hands blocked Tasks to the I/O reactor.
//
// Grounded on the teacher's internal/concurrency.Executor: N workers,
// each with a bounded local queue, overflowing into a shared global
// queue; no work-stealing across local queues.
package scheduler

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/asyncrt/affinity"
	"github.com/momentics/asyncrt/queue"
	"github.com/momentics/asyncrt/reactor"
	"github.com/momentics/asyncrt/task"
)

// DefaultMaxLocalTasks is the recommended per-worker local queue cap.
const DefaultMaxLocalTasks = 256

// Reactor is the scheduler's contract with the I/O reactor: install a
// one-shot callback for readiness in one direction on fd. The
// scheduler never touches the reactor's poller or maps directly.
type Reactor interface {
	RegisterReadCallback(fd int, cb reactor.Callback) error
	RegisterWriteCallback(fd int, cb reactor.Callback) error
}

// Config configures a Scheduler.
type Config struct {
	// NumWorkers is the number of worker goroutines. Zero or negative
	// selects runtime.NumCPU().
	NumWorkers int
	// MaxLocalTasks bounds each worker's local queue before overflow
	// to the global queue. Zero or negative selects
	// DefaultMaxLocalTasks.
	MaxLocalTasks int
	// PinWorkers, when true, attempts to pin each worker goroutine to
	// a distinct CPU core via affinity.PinWorker. Best-effort; never
	// required for correctness.
	PinWorkers bool
}

func (c Config) normalized() Config {
	if c.NumWorkers <= 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	if c.MaxLocalTasks <= 0 {
		c.MaxLocalTasks = DefaultMaxLocalTasks
	}
	return c
}

// Counters exposes live scheduler statistics, read by the control
// package's debug probes.
type Counters struct {
	Spawned               atomic.Int64
	Completed             atomic.Int64
	RegistrationConflicts atomic.Int64
	DetachedReclaimed     atomic.Int64
}

// Snapshot is a point-in-time copy of Counters, safe to pass around.
type Snapshot struct {
	Spawned, Completed, RegistrationConflicts, DetachedReclaimed int64
}

func (c *Counters) snapshot() Snapshot {
	return Snapshot{
		Spawned:               c.Spawned.Load(),
		Completed:             c.Completed.Load(),
		RegistrationConflicts: c.RegistrationConflicts.Load(),
		DetachedReclaimed:     c.DetachedReclaimed.Load(),
	}
}

type worker struct {
	id    int
	local *queue.Ring[*task.Task]
}

// Scheduler owns N worker goroutines and the global overflow queue. It
// must be started with Start and stopped with Stop.
type Scheduler struct {
	cfg     Config
	workers []*worker
	global  *queue.Queue[*task.Task]
	reactor Reactor

	nextWorker atomic.Uint64
	stopping   atomic.Bool
	wg         sync.WaitGroup

	Counters Counters
}

// New constructs a Scheduler. r may be nil; Tasks that suspend on I/O
// will then stall forever (matching spec.md §7's "registration failure
// leaves the caller to suspend forever" posture) — callers that spawn
// I/O-bound tasks must supply a Reactor.
func New(cfg Config, r Reactor) *Scheduler {
	cfg = cfg.normalized()
	s := &Scheduler{cfg: cfg, global: queue.New[*task.Task](), reactor: r}
	s.workers = make([]*worker, cfg.NumWorkers)
	for i := range s.workers {
		s.workers[i] = &worker{id: i, local: queue.NewRing[*task.Task](cfg.MaxLocalTasks)}
	}
	return s
}

// Spawn marks t enqueued and places it for execution, returning t so
// the caller may later await its completion. The caller must
// eventually await the result or call FireAndForget instead.
func (s *Scheduler) Spawn(t *task.Task) *task.Task {
	s.Counters.Spawned.Add(1)
	s.push(t)
	return t
}

// FireAndForget marks t detached, then spawns it. The caller retains
// no obligation to observe its completion; the scheduler reclaims it
// when it reaches Complete.
func (s *Scheduler) FireAndForget(t *task.Task) {
	t.SetDetached()
	s.Spawn(t)
}

// Start spins up the configured number of workers and blocks until
// Stop is called and every worker has exited.
func (s *Scheduler) Start() {
	s.wg.Add(len(s.workers))
	for _, w := range s.workers {
		go s.runWorker(w)
	}
	s.wg.Wait()
}

// Stop requests termination. Workers drain their current iteration
// and exit at the next empty-queue check; tasks left in queues are
// leaked by design (spec.md §4.3's documented shutdown contract).
func (s *Scheduler) Stop() {
	s.stopping.Store(true)
}

func (s *Scheduler) runWorker(w *worker) {
	defer s.wg.Done()

	if s.cfg.PinWorkers {
		affinity.PinWorker(w.id)
	}

	const minBackoff = time.Microsecond
	const maxBackoff = 200 * time.Microsecond
	backoff := minBackoff

	for {
		t, ok := w.local.TryGet()
		if !ok {
			t, ok = s.global.TryGet()
		}
		if !ok {
			if s.stopping.Load() {
				return
			}
			time.Sleep(backoff)
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = minBackoff

		t.SetEnqueued(false)

		state := t.State()
		if state != task.Complete {
			state = t.Resume()
		}
		s.dispatch(t, state)
	}
}

func (s *Scheduler) dispatch(t *task.Task, state task.State) {
	switch state {
	case task.Awaiting:
		if child := t.Child(); child != nil {
			child.SetParent(t)
			if !child.SetEnqueued(true) {
				s.place(child)
			}
		}
	case task.BlockedOnIO:
		s.submitIO(t)
	case task.Complete:
		s.Counters.Completed.Add(1)
		switch parent := t.Parent(); {
		case parent != nil:
			if !parent.SetEnqueued(true) {
				s.place(parent)
			}
		case t.Detached():
			s.Counters.DetachedReclaimed.Add(1)
			// Nothing further to do: t is referenced from nowhere
			// else, so it is collected once this frame returns.
		default:
			// Parked: no parent has been assigned yet and t is not
			// detached. Left un-enqueued; a task that later awaits t
			// re-enqueues it, and this case then takes the parent
			// branch above (t is not resumed again because it is
			// already Complete). See DESIGN.md Open Question 1 — spec.md's
			// literal re-push here is a documented busy-loop bug.
		}
	}
}

func (s *Scheduler) submitIO(t *task.Task) {
	io := t.IOWaiter()
	if io == nil || s.reactor == nil {
		return
	}
	t.SetEnqueued(true)
	cb := func() {
		t.MarkAwaiting()
		s.push(t)
	}

	var err error
	switch io.Dir {
	case task.Read:
		err = s.reactor.RegisterReadCallback(io.FD, cb)
	case task.Write:
		err = s.reactor.RegisterWriteCallback(io.FD, cb)
	}
	if err != nil {
		s.Counters.RegistrationConflicts.Add(1)
	}
}

// push marks t enqueued and places it, for use any time a task
// transitions into queue ownership from outside (Spawn, the reactor's
// resumption callback).
func (s *Scheduler) push(t *task.Task) {
	t.SetEnqueued(true)
	s.place(t)
}

// Stats returns a point-in-time snapshot of the scheduler's counters.
func (s *Scheduler) Stats() Snapshot {
	return s.Counters.snapshot()
}

// place performs queue placement only, without touching the enqueued
// flag — for call sites that have already done a test-and-set.
func (s *Scheduler) place(t *task.Task) {
	idx := int(s.nextWorker.Add(1)) % len(s.workers)
	if !s.workers[idx].local.Push(t) {
		s.global.Push(t)
	}
}
