//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor: owns the epoll descriptor, the set of
// registered fds, and the two one-shot callback maps (one per
// direction) the scheduler installs waiters into.

package reactor

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// MaxEvents bounds how many ready descriptors a single Wait call
// drains.
const MaxEvents = 64

// PollTimeout is how long a single Wait blocks before returning to
// check the running flag for liveness.
const PollTimeout = 50 * time.Millisecond

// ErrAlreadyWaiting is returned by RegisterReadCallback /
// RegisterWriteCallback when a waiter already exists for the same
// (fd, direction) pair. spec.md §7 treats this as a programming
// error: the documented limitation is one waiter per direction at a
// time, not a queue of waiters.
var ErrAlreadyWaiting = errors.New("reactor: a callback is already pending for this fd/direction")

// Callback is invoked exactly once when its fd becomes ready in the
// registered direction, then discarded. Callbacks run on the reactor
// goroutine and must not block or perform I/O themselves — they are
// expected to do nothing more than push a task back onto a scheduler
// queue.
type Callback func()

// Reactor is the epoll-backed readiness dispatcher. The zero value is
// not usable; construct with New.
type Reactor struct {
	epfd int

	mu            sync.Mutex
	registered    map[int]struct{}
	readCallbacks map[int]Callback
	writeCallbacks map[int]Callback

	running atomic.Bool
	doneCh  chan struct{}
}

// New creates the epoll instance (close-on-exec, per spec.md §4.4).
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Reactor{
		epfd:           epfd,
		registered:     make(map[int]struct{}),
		readCallbacks:  make(map[int]Callback),
		writeCallbacks: make(map[int]Callback),
		doneCh:         make(chan struct{}),
	}, nil
}

// RegisterFD arms fd for both readable and writable notifications,
// level-triggered. Idempotent: a second call for an already
// registered fd is a no-op.
func (r *Reactor) RegisterFD(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[fd]; ok {
		return nil
	}
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		// Registration failure (EADD): logged, fd is not added to
		// registered, so any waiter on it later suspends forever.
		// spec.md §7 accepts this as the documented posture.
		log.Printf("reactor: epoll_ctl add fd=%d: %v", fd, err)
		return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", fd, err)
	}
	r.registered[fd] = struct{}{}
	return nil
}

// UnregisterFD removes fd from the poller and from the registered
// set. Any pending callbacks for fd are dropped, never invoked.
func (r *Reactor) UnregisterFD(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[fd]; !ok {
		return nil
	}
	delete(r.registered, fd)
	delete(r.readCallbacks, fd)
	delete(r.writeCallbacks, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// RegisterReadCallback installs a one-shot callback fired the next
// time fd is readable. It is rejected with ErrAlreadyWaiting if a
// read callback is already pending for fd.
func (r *Reactor) RegisterReadCallback(fd int, cb Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.readCallbacks[fd]; ok {
		return ErrAlreadyWaiting
	}
	r.readCallbacks[fd] = cb
	return nil
}

// RegisterWriteCallback installs a one-shot callback fired the next
// time fd is writable. It is rejected with ErrAlreadyWaiting if a
// write callback is already pending for fd.
func (r *Reactor) RegisterWriteCallback(fd int, cb Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.writeCallbacks[fd]; ok {
		return ErrAlreadyWaiting
	}
	r.writeCallbacks[fd] = cb
	return nil
}

// PollReady performs a non-blocking readiness check of fd in the
// given direction, letting a task skip the reactor round-trip
// entirely when data is already buffered (spec.md §4.4's "readiness
// pre-check").
func (r *Reactor) PollReady(fd int, dir Direction) bool {
	var pfd [1]unix.PollFd
	pfd[0].Fd = int32(fd)
	if dir == DirRead {
		pfd[0].Events = unix.POLLIN
	} else {
		pfd[0].Events = unix.POLLOUT
	}
	n, err := unix.Poll(pfd[:], 0)
	if err != nil || n <= 0 {
		return false
	}
	want := int16(unix.POLLIN)
	if dir == DirWrite {
		want = unix.POLLOUT
	}
	return pfd[0].Revents&want != 0
}

// Direction mirrors task.Direction without importing the task
// package, so reactor stays a leaf dependency.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// Run is the event loop. It blocks the calling goroutine until Stop
// is called.
func (r *Reactor) Run() {
	if !r.running.CompareAndSwap(false, true) {
		return
	}
	defer close(r.doneCh)

	events := make([]unix.EpollEvent, MaxEvents)
	timeoutMs := int(PollTimeout / time.Millisecond)

	for r.running.Load() {
		n, err := unix.EpollWait(r.epfd, events, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			// Kernel poll failure: log and terminate the loop. The
			// scheduler is not notified and will stall on subsequent
			// I/O — spec.md §7's accepted crash-equivalent posture.
			log.Printf("reactor: epoll_wait: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		r.dispatch(events[:n])
	}
}

func (r *Reactor) dispatch(events []unix.EpollEvent) {
	type fired struct {
		fd int
		cb Callback
	}
	var readyRead, readyWrite []fired

	r.mu.Lock()
	for _, ev := range events {
		fd := int(ev.Fd)
		if ev.Events&unix.EPOLLIN != 0 {
			if cb, ok := r.readCallbacks[fd]; ok {
				delete(r.readCallbacks, fd)
				readyRead = append(readyRead, fired{fd, cb})
			}
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			if cb, ok := r.writeCallbacks[fd]; ok {
				delete(r.writeCallbacks, fd)
				readyWrite = append(readyWrite, fired{fd, cb})
			}
		}
	}
	r.mu.Unlock()

	// Reads then writes, serialized on this goroutine — any
	// consistent order satisfies spec.md §4.4.
	for _, f := range readyRead {
		invoke(f.cb)
	}
	for _, f := range readyWrite {
		invoke(f.cb)
	}
}

func invoke(cb Callback) {
	defer func() { _ = recover() }()
	cb()
}

// Stop requests termination of Run's loop.
func (r *Reactor) Stop() {
	r.running.Store(false)
}

// Wait blocks until Run has returned.
func (r *Reactor) Wait() {
	<-r.doneCh
}

// Close releases the epoll file descriptor. Call only after Run has
// returned.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}
