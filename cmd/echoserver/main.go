// Command echoserver is the demonstration bootstrap spec.md §6
// describes: it launches the reactor goroutine, fire-and-forgets a
// top-level accept-loop task, starts the scheduler, and performs the
// graceful-shutdown sequence either when the top-level task completes
// or when the process receives SIGINT/SIGTERM.
//
// Out of core scope per spec.md §1 (signal handling, the demo's own
// echo business logic, logging policy) lives here rather than in
// task/scheduler/reactor.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/asyncrt/bootstrap"
	"github.com/momentics/asyncrt/control"
	"github.com/momentics/asyncrt/netio"
	"github.com/momentics/asyncrt/reactor"
	"github.com/momentics/asyncrt/scheduler"
	"github.com/momentics/asyncrt/task"
)

func main() {
	port := flag.Int("port", 9090, "TCP port to listen on")
	numWorkers := flag.Int("workers", 0, "scheduler worker count (0 = NumCPU)")
	pin := flag.Bool("pin-workers", false, "pin each scheduler worker to a CPU core")
	flag.Parse()

	cfgStore := control.NewConfigStore()
	metrics := control.NewMetricsRegistry()
	cfgStore.Set(control.RuntimeConfig{
		Port:       *port,
		NumWorkers: *numWorkers,
		PinWorkers: *pin,
	})

	r, err := reactor.New()
	if err != nil {
		log.Fatalf("echoserver: reactor.New: %v", err)
	}

	sched := scheduler.New(scheduler.Config{
		NumWorkers: cfgStore.Get().NumWorkers,
		PinWorkers: cfgStore.Get().PinWorkers,
	}, r)

	control.RegisterReloadHook(func(cfg control.RuntimeConfig) {
		metrics.RecordSchedulerSnapshot(sched.Stats())
		log.Printf("echoserver: config reloaded: %+v", cfg)
	})

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes, cfgStore)
	probes.RegisterSchedulerProbe("scheduler.stats", sched.Stats)
	probes.RegisterProbe("metrics", func() any { return metrics.GetSnapshot() })

	listener, err := netio.ListenTCP4(r, [4]byte{0, 0, 0, 0}, *port, 128)
	if err != nil {
		log.Fatalf("echoserver: listen :%d: %v", *port, err)
	}

	shutdown := bootstrap.New(sched, r)

	top := task.New(acceptLoop(listener, sched, shutdown))

	go r.Run()
	sched.FireAndForget(top)

	control.RegisterReloadHook(func(control.RuntimeConfig) {
		log.Printf("echoserver: probe dump after reload: %+v", probes.DumpState())
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				control.TriggerHotReloadSync(cfgStore.Get())
				continue
			}
			log.Printf("echoserver: received %v, shutting down", sig)
			_ = listener.Close()
			shutdown.Run()
			return
		}
	}()

	log.Printf("echoserver: listening on :%d", *port)
	sched.Start()
	log.Printf("echoserver: stopped, final stats: %+v", sched.Stats())
}

// acceptLoop is the top-level task's body: accept connections and
// spawn a handler per connection (spec.md §8 scenario 3), forever,
// until Accept returns a hard error (the listener was closed), at
// which point it runs the graceful-shutdown sequence and completes.
func acceptLoop(l *netio.Listener, s *scheduler.Scheduler, shutdown *bootstrap.Shutdown) task.Body {
	var step task.Body
	onAccept := func(conn *netio.Conn, err error) task.Step {
		if err != nil {
			log.Printf("echoserver: accept loop ending: %v", err)
			shutdown.Run()
			return task.Done(err)
		}
		s.FireAndForget(task.New(handleConn(conn)))
		return step(nil)
	}
	step = func(t *task.Task) task.Step {
		return l.Accept(onAccept)(t)
	}
	return step
}

// handleConn is spec.md §8 scenario 3's handler H: read N bytes,
// write them back, repeat until read returns 0, then complete.
func handleConn(conn *netio.Conn) task.Body {
	buf := make([]byte, 4096)
	var loop task.Body
	loop = func(t *task.Task) task.Step {
		return conn.Read(buf, func(n int, err error) task.Step {
			if err != nil {
				log.Printf("echoserver: read fd=%d: %v", conn.FD(), err)
				conn.Close()
				return task.Done(nil)
			}
			if n == 0 {
				conn.Close()
				return task.Done(nil)
			}
			return conn.Write(buf[:n], func(_ int, werr error) task.Step {
				if werr != nil {
					log.Printf("echoserver: write fd=%d: %v", conn.FD(), werr)
					conn.Close()
					return task.Done(nil)
				}
				return loop(t)
			})(t)
		})(t)
	}
	return loop
}
