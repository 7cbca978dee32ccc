package monitor

import (
	"context"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/digineo/go-logwrap"
	ping "github.com/digineo/go-multiping"
)

var (
	log = &logwrap.Instance{}

	// SetLogger allows updating the Logger. For details, see
	// "github.com/digineo/go-logwrap".Instance.SetLogger.
	SetLogger = log.SetLogger
)

// Prober sends echo requests. It must be safe for concurrent use;
// *ping.Pinger is the production implementation.
type Prober interface {
	Send(remote *net.IPAddr, payload []byte) (ping.Pending, error)
}

// Monitor manages the goroutines responsible for collecting Ping RTT data:
// one supervised worker per target of the Registry.
type Monitor struct {
	prober   Prober
	registry *Registry
	cfg      Config
	clock    Clock

	started atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// New creates a Monitor probing all targets of reg through prober.
func New(prober Prober, reg *Registry, opts ...Option) *Monitor {
	m := &Monitor{
		prober:   prober,
		registry: reg,
		cfg:      reg.Config(),
		clock:    RealClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the monitored targets.
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// Start launches one worker per target. Workers stop once ctx is
// cancelled; use Wait to wait for them.
func (m *Monitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		panic("already started")
	}

	start := m.clock.Now()
	n := len(m.registry.entries)

	for i, e := range m.registry.entries {
		first := start.Add(e.target.Interval)
		if m.cfg.Spread {
			first = first.Add(e.target.Interval * time.Duration(i) / time.Duration(n))
		}

		m.wg.Add(1)
		go m.supervise(ctx, e, first)
	}

	log.Infof("monitoring %d targets, interval=%v timeout=%v", n, m.cfg.Interval, m.cfg.Timeout)
}

// Wait blocks until all workers have stopped. Only then the prober may be
// closed.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Run starts the workers, and brings the monitoring gracefully to a halt
// once ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.Start(ctx)
	<-ctx.Done()
	m.Wait()
}

// Export calculates the statistics for each monitored target, in
// registry order.
func (m *Monitor) Export() []Snapshot {
	return m.registry.Snapshot(m.clock.Now())
}

// supervise runs the worker for e, restarting it after a panic.
func (m *Monitor) supervise(ctx context.Context, e *entry, next time.Time) {
	defer m.wg.Done()
	defer e.state.Store(int32(Stopped))

	for {
		if m.runWorker(ctx, e, next) || ctx.Err() != nil {
			return
		}

		// the history survives, the sequence continues where it stopped
		next = m.clock.Now().Add(m.cfg.RestartDelay)
		e.state.Store(int32(Idle))
		e.restarts.Add(1)

		timer := m.clock.NewTimer(next.Sub(m.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
		log.Infof("%s: worker restarted", e.target)
	}
}

// runWorker reports false if the worker panicked.
func (m *Monitor) runWorker(ctx context.Context, e *entry, next time.Time) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s: worker crashed: %v\n%s", e.target, r, debug.Stack())
		}
	}()

	newWorker(e, m.prober, m.clock, m.cfg.RandomizePayload).run(ctx, next)
	return true
}
