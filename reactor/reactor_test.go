//go:build linux
// +build linux

package reactor

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func mustSocketpair(t *testing.T) (a, b int) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("set nonblock: %v", err)
		}
	}
	return fds[0], fds[1]
}

// TestIORoundTrip is spec.md §8 scenario 2.
func TestIORoundTrip(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fdR, fdW := mustSocketpair(t)
	defer unix.Close(fdR)
	defer unix.Close(fdW)

	if err := r.RegisterFD(fdR); err != nil {
		t.Fatalf("RegisterFD(fdR): %v", err)
	}
	if err := r.RegisterFD(fdW); err != nil {
		t.Fatalf("RegisterFD(fdW): %v", err)
	}

	go r.Run()
	defer func() {
		r.Stop()
		r.Wait()
	}()

	writeDone := make(chan struct{})
	if err := r.RegisterWriteCallback(fdW, func() {
		n, werr := unix.Write(fdW, []byte("AB"))
		if werr != nil || n != 2 {
			t.Errorf("write: n=%d err=%v", n, werr)
		}
		close(writeDone)
	}); err != nil {
		t.Fatalf("RegisterWriteCallback: %v", err)
	}

	readDone := make(chan []byte, 1)
	if err := r.RegisterReadCallback(fdR, func() {
		buf := make([]byte, 2)
		n, rerr := unix.Read(fdR, buf)
		if rerr != nil {
			t.Errorf("read: %v", rerr)
			return
		}
		readDone <- buf[:n]
	}); err != nil {
		t.Fatalf("RegisterReadCallback: %v", err)
	}

	select {
	case <-writeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("write callback never fired")
	}

	select {
	case got := <-readDone:
		if string(got) != "AB" {
			t.Fatalf("read = %q, want %q", got, "AB")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read callback never fired")
	}
}

// TestRegistrationConflictIsRejected is spec.md §8 scenario 5.
func TestRegistrationConflictIsRejected(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fdR, fdW := mustSocketpair(t)
	defer unix.Close(fdR)
	defer unix.Close(fdW)
	if err := r.RegisterFD(fdR); err != nil {
		t.Fatalf("RegisterFD: %v", err)
	}

	go r.Run()
	defer func() {
		r.Stop()
		r.Wait()
	}()

	first := make(chan struct{})
	if err := r.RegisterReadCallback(fdR, func() { close(first) }); err != nil {
		t.Fatalf("first RegisterReadCallback: %v", err)
	}

	err = r.RegisterReadCallback(fdR, func() {})
	if err != ErrAlreadyWaiting {
		t.Fatalf("second RegisterReadCallback err = %v, want ErrAlreadyWaiting", err)
	}

	if _, werr := unix.Write(fdW, []byte("x")); werr != nil {
		t.Fatalf("write: %v", werr)
	}

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first waiter never completed despite the conflicting second registration")
	}
}

// TestIdempotentRegistration verifies spec.md §8's idempotent
// registration property.
func TestIdempotentRegistration(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fdR, fdW := mustSocketpair(t)
	defer unix.Close(fdR)
	defer unix.Close(fdW)

	if err := r.RegisterFD(fdR); err != nil {
		t.Fatalf("first RegisterFD: %v", err)
	}
	if err := r.RegisterFD(fdR); err != nil {
		t.Fatalf("second RegisterFD should be a no-op, got: %v", err)
	}
}

// TestUnregisterDropsPendingCallback ensures a pending callback for an
// unregistered fd is dropped, never invoked.
func TestUnregisterDropsPendingCallback(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fdR, fdW := mustSocketpair(t)
	defer unix.Close(fdW)

	if err := r.RegisterFD(fdR); err != nil {
		t.Fatalf("RegisterFD: %v", err)
	}

	fired := make(chan struct{})
	if err := r.RegisterReadCallback(fdR, func() { close(fired) }); err != nil {
		t.Fatalf("RegisterReadCallback: %v", err)
	}
	if err := r.UnregisterFD(fdR); err != nil {
		t.Fatalf("UnregisterFD: %v", err)
	}
	unix.Close(fdR)

	go r.Run()
	defer func() {
		r.Stop()
		r.Wait()
	}()

	if _, werr := unix.Write(fdW, []byte("x")); werr != nil {
		// fdR already closed on our side; a write may fail with
		// EPIPE, which is fine — the point is no callback fires.
		_ = werr
	}

	select {
	case <-fired:
		t.Fatal("callback fired for an unregistered fd")
	case <-time.After(100 * time.Millisecond):
	}
}
