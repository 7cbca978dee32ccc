package monitor

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// ErrInvalidAddress is returned when no usable target is available.
var ErrInvalidAddress = errors.New("invalid address")

// Target represents a ping target. Zero values for Interval, Timeout and
// PayloadSize inherit the global Config.
type Target struct {
	Label       string
	Addr        net.IPAddr
	Interval    time.Duration
	Timeout     time.Duration
	PayloadSize uint16
}

func (t Target) String() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Addr.String()
}

// resolve returns t with all inherited settings filled in from cfg.
func (t Target) resolve(cfg Config) Target {
	if t.Interval == 0 {
		t.Interval = cfg.Interval
	}
	if t.Timeout == 0 {
		t.Timeout = cfg.Timeout
	}
	if t.PayloadSize == 0 {
		t.PayloadSize = cfg.PayloadSize
	}
	return t
}

// entry holds the state of a single target. The history is written by
// the target's worker only.
type entry struct {
	target   Target
	history  *History
	state    atomic.Int32
	restarts atomic.Uint32
}

// Registry is the immutable list of targets, each with its own isolated
// history.
type Registry struct {
	cfg     Config
	entries []*entry
}

// NewRegistry creates the registry. It fails with ErrInvalidAddress if
// targets is empty or contains a target without address.
func NewRegistry(targets []Target, cfg Config) (*Registry, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", ErrInvalidAddress)
	}

	r := &Registry{
		cfg:     cfg,
		entries: make([]*entry, len(targets)),
	}
	for i, t := range targets {
		if t.Addr.IP == nil {
			return nil, fmt.Errorf("%w: target %q has no IP", ErrInvalidAddress, t.Label)
		}
		r.entries[i] = &entry{
			target:  t.resolve(cfg),
			history: NewHistory(cfg.HistorySize, cfg.DownAfter),
		}
	}
	return r, nil
}

// Config returns the global configuration, with defaults applied.
func (r *Registry) Config() Config {
	return r.cfg
}

// Len returns the number of targets.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Targets returns the targets in registry order.
func (r *Registry) Targets() []Target {
	targets := make([]Target, len(r.entries))
	for i, e := range r.entries {
		targets[i] = e.target
	}
	return targets
}

// History returns the history of the i-th target.
func (r *Registry) History(i int) *History {
	return r.entries[i].history
}
