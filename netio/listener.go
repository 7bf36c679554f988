//go:build linux
// +build linux

// Package netio is the concrete realization of the external I/O
// façade spec.md §4.5 describes only as a contract: a non-blocking
// TCP listener/connection pair whose Accept/Read/Write are
// suspendable operations driven through the reactor.
//
// Grounded on the teacher's internal/transport/transport_linux.go
// (non-blocking socket construction via golang.org/x/sys/unix) and
// internal/websocket/connection.go (the read/write suspension shape).
package netio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/asyncrt/reactor"
	"github.com/momentics/asyncrt/task"
)

// Listener wraps a non-blocking listening socket, registered with the
// reactor on construction and unregistered before the underlying fd is
// closed.
type Listener struct {
	fd int
	r  *reactor.Reactor
}

// ListenTCP4 binds and listens on ip:port (ip as 4 bytes, network
// order not required — use [4]byte{0,0,0,0} for INADDR_ANY).
func ListenTCP4(r *reactor.Reactor, ip [4]byte, port int, backlog int) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("netio: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netio: setsockopt SO_REUSEADDR: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netio: bind: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netio: listen: %w", err)
	}
	if err := r.RegisterFD(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Listener{fd: fd, r: r}, nil
}

// FD returns the underlying listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Close unregisters then closes the listening descriptor, per
// spec.md §4.5's façade teardown contract.
func (l *Listener) Close() error {
	_ = l.r.UnregisterFD(l.fd)
	return unix.Close(l.fd)
}

// AcceptResult is the outcome of a successful Accept.
type AcceptResult struct {
	Conn *Conn
}

// Accept returns a Body implementing the suspendable accept
// operation: pre-check readiness, else await a READ IoAwaiter, then
// perform the non-blocking accept4 syscall. next receives the
// accepted Conn (already registered with the reactor) or an error.
func (l *Listener) Accept(next func(*Conn, error) task.Step) task.Body {
	var attempt func(t *task.Task) task.Step
	attempt = func(t *task.Task) task.Step {
		if l.r.PollReady(l.fd, reactor.DirRead) {
			return l.doAccept(next)
		}
		return task.AwaitIO(task.IoAwaiter{FD: l.fd, Dir: task.Read}, func(t *task.Task) task.Step {
			return l.doAccept(next)
		})
	}
	return attempt
}

func (l *Listener) doAccept(next func(*Conn, error) task.Step) task.Step {
	fd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			// Spurious wakeup (level-triggered re-signal, or another
			// waiter won the race) — re-arm and wait again.
			return task.AwaitIO(task.IoAwaiter{FD: l.fd, Dir: task.Read}, func(t *task.Task) task.Step {
				return l.doAccept(next)
			})
		}
		return next(nil, fmt.Errorf("netio: accept4: %w", err))
	}
	if err := l.r.RegisterFD(fd); err != nil {
		unix.Close(fd)
		return next(nil, err)
	}
	return next(&Conn{fd: fd, r: l.r}, nil)
}
