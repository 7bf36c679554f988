package scheduler

import (
	"testing"
	"time"

	"github.com/momentics/asyncrt/task"
)

// waitFor polls fn until it returns true or the deadline passes.
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

// TestTrivialAwaitChain is spec.md §8 scenario 1.
func TestTrivialAwaitChain(t *testing.T) {
	s := New(Config{NumWorkers: 2}, nil)
	go s.Start()
	defer s.Stop()

	a := task.New(func(tk *task.Task) task.Step { return task.Done(7) })

	var b *task.Task
	b = task.New(func(tk *task.Task) task.Step {
		s.Spawn(a)
		return task.AwaitChild(a, func(tk *task.Task) task.Step {
			v, _ := a.Result()
			return task.Done(v.(int) + 1)
		})
	})

	s.Spawn(b)

	waitFor(t, time.Second, func() bool {
		_, ok := b.Result()
		return ok
	})
	v, _ := b.Result()
	if v != 8 {
		t.Fatalf("b result = %v, want 8", v)
	}
}

// TestFanIn is spec.md §8 scenario 4.
func TestFanIn(t *testing.T) {
	s := New(Config{NumWorkers: 4}, nil)
	go s.Start()
	defer s.Stop()

	const n = 10
	children := make([]*task.Task, n)
	for i := 0; i < n; i++ {
		idx := i
		children[i] = task.New(func(tk *task.Task) task.Step { return task.Done(idx) })
	}

	var awaitNext func(i, sum int) task.Step
	awaitNext = func(i, sum int) task.Step {
		if i == n {
			return task.Done(sum)
		}
		child := children[i]
		s.Spawn(child)
		return task.AwaitChild(child, func(tk *task.Task) task.Step {
			v, _ := child.Result()
			return awaitNext(i+1, sum+v.(int))
		})
	}

	p := task.New(func(tk *task.Task) task.Step { return awaitNext(0, 0) })
	s.Spawn(p)

	waitFor(t, 2*time.Second, func() bool {
		_, ok := p.Result()
		return ok
	})
	v, _ := p.Result()
	if v != 45 {
		t.Fatalf("fan-in sum = %v, want 45", v)
	}
}

// TestFireAndForgetReclaimedExactlyOnce is the detached-reclamation
// property of spec.md §8.
func TestFireAndForgetReclaimedExactlyOnce(t *testing.T) {
	s := New(Config{NumWorkers: 2}, nil)
	go s.Start()
	defer s.Stop()

	done := make(chan struct{})
	tk := task.New(func(tk *task.Task) task.Step {
		close(done)
		return task.Done(nil)
	})
	s.FireAndForget(tk)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fire-and-forget task never ran")
	}

	waitFor(t, time.Second, func() bool {
		return s.Stats().DetachedReclaimed == 1
	})
}

// TestGracefulShutdownReturnsPromptly is spec.md §8 scenario 6.
func TestGracefulShutdownReturnsPromptly(t *testing.T) {
	s := New(Config{NumWorkers: 4}, nil)
	started := make(chan struct{})
	go func() {
		close(started)
		s.Start()
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return within bound")
	}
}

// TestCompletedWithNoParentIsParkedNotBusyLooped exercises the Open
// Question 1 resolution: a completed, non-detached, parentless task is
// never re-enqueued, and a parent that awaits it later still receives
// its result.
func TestCompletedWithNoParentIsParkedNotBusyLooped(t *testing.T) {
	s := New(Config{NumWorkers: 1}, nil)
	go s.Start()
	defer s.Stop()

	orphan := task.New(func(tk *task.Task) task.Step { return task.Done(42) })
	s.Spawn(orphan)

	waitFor(t, time.Second, func() bool {
		_, ok := orphan.Result()
		return ok
	})
	if orphan.Enqueued() {
		t.Fatal("completed parentless task should not remain enqueued")
	}

	var p *task.Task
	p = task.New(func(tk *task.Task) task.Step {
		return task.AwaitChild(orphan, func(tk *task.Task) task.Step {
			v, _ := orphan.Result()
			return task.Done(v)
		})
	})
	s.Spawn(p)

	waitFor(t, time.Second, func() bool {
		_, ok := p.Result()
		return ok
	})
	v, _ := p.Result()
	if v != 42 {
		t.Fatalf("late-adopting parent result = %v, want 42", v)
	}
}
