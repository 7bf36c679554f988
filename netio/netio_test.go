//go:build linux
// +build linux

package netio

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/asyncrt/reactor"
	"github.com/momentics/asyncrt/scheduler"
	"github.com/momentics/asyncrt/task"
)

func mustNonblockingSocketpair(t *testing.T) (a, b int) {
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

func waitFor(t *testing.T, d time.Duration, fn func() bool) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestReadWriteRoundTrip exercises the netio façade end to end,
// extending spec.md §8 scenario 2 through the scheduler/task layer
// rather than the reactor alone.
func TestReadWriteRoundTrip(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	defer r.Close()
	go r.Run()
	defer func() { r.Stop(); r.Wait() }()

	s := scheduler.New(scheduler.Config{NumWorkers: 2}, r)
	go s.Start()
	defer s.Stop()

	fdR, fdW := mustNonblockingSocketpair(t)
	connR, err := WrapFD(r, fdR)
	if err != nil {
		t.Fatalf("WrapFD(r): %v", err)
	}
	defer connR.Close()
	connW, err := WrapFD(r, fdW)
	if err != nil {
		t.Fatalf("WrapFD(w): %v", err)
	}
	defer connW.Close()

	readBuf := make([]byte, 2)
	var gotN int
	var gotErr error
	readDone := false

	writer := task.New(connW.Write([]byte("AB"), func(n int, err error) task.Step {
		return task.Done(n)
	}))
	reader := task.New(connR.Read(readBuf, func(n int, err error) task.Step {
		gotN, gotErr = n, err
		readDone = true
		return task.Done(n)
	}))

	s.FireAndForget(writer)
	s.FireAndForget(reader)

	waitFor(t, 2*time.Second, func() bool { return readDone })
	if gotErr != nil {
		t.Fatalf("read error: %v", gotErr)
	}
	if gotN != 2 || string(readBuf[:gotN]) != "AB" {
		t.Fatalf("read = %q (n=%d), want %q", readBuf[:gotN], gotN, "AB")
	}
}
