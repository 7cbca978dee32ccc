package monitor

import (
	"context"
	"errors"
	"time"

	ping "github.com/digineo/go-multiping"
)

// errWorkerCrashed is the failure of probes abandoned by a crashed worker.
var errWorkerCrashed = errors.New("worker crashed")

// State is the state of a target's worker.
type State int32

const (
	Idle       State = iota // waiting for the next probe
	Sending                 // writing an echo request
	Awaiting                // at least one probe waiting for its reply
	Cancelling              // shutdown requested, releasing probes
	Stopped                 // worker exited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Awaiting:
		return "awaiting"
	case Cancelling:
		return "cancelling"
	case Stopped:
		return "stopped"
	}
	return "invalid"
}

// probe is an echo request in flight.
type probe struct {
	seq      uint64
	at       time.Time
	deadline time.Time
	pending  ping.Pending // nil if sending failed
	err      error        // send error
}

// worker probes a single target until its context is cancelled.
type worker struct {
	*entry
	prober Prober
	clock  Clock

	randomize bool
	payload   ping.Payload
	inflight  []*probe // ordered by seq
	failures  int      // consecutive
}

func newWorker(e *entry, prober Prober, clock Clock, randomize bool) *worker {
	w := &worker{
		entry:     e,
		prober:    prober,
		clock:     clock,
		randomize: randomize,
	}
	w.payload.Resize(e.target.PayloadSize)
	return w
}

// run sends the first probe at next, and every target interval after it.
// It returns after ctx is cancelled. No outcome is recorded after run
// returned.
func (w *worker) run(ctx context.Context, next time.Time) {
	defer w.release(ctx)

	timer := w.clock.NewTimer(w.wake(next).Sub(w.clock.Now()))
	defer timer.Stop()

	for {
		if len(w.inflight) > 0 {
			w.setState(Awaiting)
		} else {
			w.setState(Idle)
		}

		var done <-chan struct{}
		if head := w.head(); head != nil && head.pending != nil {
			done = head.pending.Done()
		}

		select {
		case <-ctx.Done():
			return
		case <-done:
			if ctx.Err() != nil {
				return
			}
			w.settle(w.clock.Now())
		case now := <-timer.C():
			if ctx.Err() != nil {
				return
			}
			w.settle(now)
			if !now.Before(next) {
				w.send(now)
				next = w.schedule(next, now)
			}
		}

		timer.Reset(w.wake(next).Sub(w.clock.Now()))
	}
}

func (w *worker) setState(s State) {
	w.state.Store(int32(s))
}

func (w *worker) head() *probe {
	if len(w.inflight) == 0 {
		return nil
	}
	return w.inflight[0]
}

// wake returns the next instant the worker has to act on its own: either
// sending the next probe, or expiring the oldest probe in flight.
func (w *worker) wake(next time.Time) time.Time {
	if head := w.head(); head != nil && head.pending != nil && head.deadline.Before(next) {
		return head.deadline
	}
	return next
}

// schedule returns the send time following next. Sending is anchored to
// the schedule, not to the completion of probes. If the worker fell
// behind by a whole interval, the missed probes are skipped.
func (w *worker) schedule(next, now time.Time) time.Time {
	interval := w.target.Interval
	next = next.Add(interval)
	if !next.After(now) {
		next = next.Add((now.Sub(next)/interval + 1) * interval)
	}
	return next
}

// send writes the next echo request. Send errors are recorded as Failure
// and never stop the worker.
func (w *worker) send(now time.Time) {
	w.setState(Sending)

	if w.randomize {
		w.payload.Randomize()
	}

	pending, err := w.prober.Send(&w.target.Addr, w.payload)
	p := &probe{
		seq:      w.history.MarkSent(),
		at:       now,
		deadline: now.Add(w.target.Timeout),
		pending:  pending,
		err:      err,
	}
	w.inflight = append(w.inflight, p)

	// send errors at the head are recorded right away
	w.settle(now)
}

// settle records all finished probes at the head of the queue, keeping
// the outcomes in sequence order.
func (w *worker) settle(now time.Time) {
	for len(w.inflight) > 0 {
		p := w.inflight[0]
		o := Outcome{Seq: p.seq, At: p.at}

		switch {
		case p.pending == nil:
			o.Kind = Failure
			o.Err = p.err
		case isDone(p.pending):
			rtt, err := p.pending.Result()
			switch {
			case err != nil:
				o.Kind = Failure
				o.Err = err
			case rtt > w.target.Timeout:
				o.Kind = Timeout
			default:
				o.Kind = Success
				o.RTT = rtt
			}
		case !now.Before(p.deadline):
			p.pending.Cancel()
			o.Kind = Timeout
		default:
			return
		}

		w.inflight[0] = nil
		w.inflight = w.inflight[1:]
		w.record(o)
	}
}

func (w *worker) record(o Outcome) {
	w.history.Record(o)

	if o.Kind == Success {
		if w.failures > 0 {
			log.Infof("debug: %s: reply after %d failed probes", w.target, w.failures)
		}
		w.failures = 0
		return
	}

	w.failures++
	if w.failures == 1 || w.failures%10 == 0 {
		log.Infof("debug: %s: %d consecutive failed probes, latest seq=%d: %s", w.target, w.failures, o.Seq, o.describe())
	}
}

// release frees the sequence numbers of all probes in flight. It also
// runs when the worker panics, then the abandoned probes are recorded as
// failures.
func (w *worker) release(ctx context.Context) {
	w.setState(Cancelling)
	crashed := ctx.Err() == nil
	for _, p := range w.inflight {
		if p.pending != nil {
			p.pending.Cancel()
		}
		if crashed {
			w.history.Record(Outcome{Seq: p.seq, At: p.at, Kind: Failure, Err: errWorkerCrashed})
		}
	}
	w.inflight = nil
}

func isDone(p ping.Pending) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}
