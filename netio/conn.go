//go:build linux
// +build linux

package netio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/asyncrt/reactor"
	"github.com/momentics/asyncrt/task"
)

// Conn wraps a non-blocking connection descriptor, registered with
// the reactor on construction (via Accept or WrapFD) and unregistered
// before the underlying fd is closed.
type Conn struct {
	fd int
	r  *reactor.Reactor
}

// FD returns the underlying connection descriptor.
func (c *Conn) FD() int { return c.fd }

// Close unregisters then closes the descriptor.
func (c *Conn) Close() error {
	_ = c.r.UnregisterFD(c.fd)
	return unix.Close(c.fd)
}

// Read returns a Body implementing the suspendable read operation:
// pre-check readiness, else await a READ IoAwaiter, then perform the
// non-blocking read syscall into buf. next receives the raw byte
// count — short reads are reported as-is, per spec.md §4.5; the
// façade never loops on the caller's behalf.
func (c *Conn) Read(buf []byte, next func(n int, err error) task.Step) task.Body {
	return func(t *task.Task) task.Step {
		if c.r.PollReady(c.fd, reactor.DirRead) {
			return c.doRead(buf, next)
		}
		return task.AwaitIO(task.IoAwaiter{FD: c.fd, Dir: task.Read}, func(t *task.Task) task.Step {
			return c.doRead(buf, next)
		})
	}
}

func (c *Conn) doRead(buf []byte, next func(int, error) task.Step) task.Step {
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return task.AwaitIO(task.IoAwaiter{FD: c.fd, Dir: task.Read}, func(t *task.Task) task.Step {
				return c.doRead(buf, next)
			})
		}
		return next(0, fmt.Errorf("netio: read: %w", err))
	}
	return next(n, nil)
}

// Write returns a Body implementing the suspendable write operation,
// with the same short-write and pre-check contract as Read.
func (c *Conn) Write(buf []byte, next func(n int, err error) task.Step) task.Body {
	return func(t *task.Task) task.Step {
		if c.r.PollReady(c.fd, reactor.DirWrite) {
			return c.doWrite(buf, next)
		}
		return task.AwaitIO(task.IoAwaiter{FD: c.fd, Dir: task.Write}, func(t *task.Task) task.Step {
			return c.doWrite(buf, next)
		})
	}
}

func (c *Conn) doWrite(buf []byte, next func(int, error) task.Step) task.Step {
	n, err := unix.Write(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return task.AwaitIO(task.IoAwaiter{FD: c.fd, Dir: task.Write}, func(t *task.Task) task.Step {
				return c.doWrite(buf, next)
			})
		}
		return next(0, fmt.Errorf("netio: write: %w", err))
	}
	return next(n, nil)
}

// WrapFD adopts an already non-blocking fd (e.g. one half of a
// socketpair in tests) as a Conn, registering it with the reactor.
func WrapFD(r *reactor.Reactor, fd int) (*Conn, error) {
	if err := r.RegisterFD(fd); err != nil {
		return nil, err
	}
	return &Conn{fd: fd, r: r}, nil
}
