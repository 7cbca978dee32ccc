package monitor

import (
	"net"
	"sync"
	"time"

	ping "github.com/digineo/go-multiping"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mtx    sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{clock: c, c: make(chan time.Time, 1)}
	c.mtx.Lock()
	c.timers = append(c.timers, t)
	c.mtx.Unlock()
	t.Reset(d)
	return t
}

// Advance moves the clock forward and fires all expired timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.now = c.now.Add(d)
	c.fire()
}

func (c *fakeClock) fire() {
	for _, t := range c.timers {
		if t.active && !t.when.After(c.now) {
			t.active = false
			select {
			case t.c <- c.now:
			default:
			}
		}
	}
}

type fakeTimer struct {
	clock  *fakeClock
	c      chan time.Time
	when   time.Time
	active bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Reset(d time.Duration) {
	t.clock.mtx.Lock()
	defer t.clock.mtx.Unlock()
	t.drain()
	t.when = t.clock.now.Add(d)
	t.active = true
	t.clock.fire()
}

func (t *fakeTimer) Stop() {
	t.clock.mtx.Lock()
	defer t.clock.mtx.Unlock()
	t.drain()
	t.active = false
}

func (t *fakeTimer) drain() {
	select {
	case <-t.c:
	default:
	}
}

// reply describes how the fakeProber answers a probe.
type reply struct {
	rtt     time.Duration
	err     error // ICMP error, reported through the Pending
	sendErr error // returned by Send
	never   bool  // no reply at all
	manual  bool  // finished by the test via fakeProber.finish
}

// fakeProber answers echo requests according to per-address behaviours.
type fakeProber struct {
	mtx     sync.Mutex
	behave  map[string]func(n int) reply
	sent    map[string]int
	open    map[*fakePending]struct{}
	manual  []*fakePending
	maxOpen int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		behave: make(map[string]func(int) reply),
		sent:   make(map[string]int),
		open:   make(map[*fakePending]struct{}),
	}
}

func (p *fakeProber) on(ip string, f func(n int) reply) {
	p.mtx.Lock()
	p.behave[ip] = f
	p.mtx.Unlock()
}

func (p *fakeProber) Send(remote *net.IPAddr, _ []byte) (ping.Pending, error) {
	key := remote.IP.String()

	p.mtx.Lock()
	n := p.sent[key]
	p.sent[key]++
	f := p.behave[key]
	p.mtx.Unlock()

	r := reply{rtt: 10 * time.Millisecond}
	if f != nil {
		r = f(n) // may panic
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if r.sendErr != nil {
		return nil, r.sendErr
	}

	fp := &fakePending{prober: p, done: make(chan struct{}), rtt: r.rtt, err: r.err}
	switch {
	case r.manual:
		p.manual = append(p.manual, fp)
		fallthrough
	case r.never:
		p.open[fp] = struct{}{}
		if len(p.open) > p.maxOpen {
			p.maxOpen = len(p.open)
		}
	default:
		close(fp.done)
	}
	return fp, nil
}

// finish answers the i-th manual probe.
func (p *fakeProber) finish(i int) {
	p.mtx.Lock()
	fp := p.manual[i]
	delete(p.open, fp)
	p.mtx.Unlock()
	close(fp.done)
}

func (p *fakeProber) openCount() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.open)
}

func (p *fakeProber) maxOpenCount() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.maxOpen
}

type fakePending struct {
	prober *fakeProber
	done   chan struct{}
	rtt    time.Duration
	err    error
}

func (fp *fakePending) Done() <-chan struct{} { return fp.done }

func (fp *fakePending) Result() (time.Duration, error) {
	if fp.err != nil {
		return 0, fp.err
	}
	return fp.rtt, nil
}

func (fp *fakePending) Cancel() {
	fp.prober.mtx.Lock()
	delete(fp.prober.open, fp)
	fp.prober.mtx.Unlock()
}

// fakeSink collects rendered snapshots.
type fakeSink struct {
	mtx    sync.Mutex
	frames [][]Snapshot
}

func (s *fakeSink) Render(snaps []Snapshot) {
	s.mtx.Lock()
	s.frames = append(s.frames, snaps)
	s.mtx.Unlock()
}

func (s *fakeSink) count() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.frames)
}
