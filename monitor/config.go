package monitor

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultInterval     = time.Second
	defaultTimeout      = 2 * time.Second
	defaultPayloadSize  = 32
	defaultHistorySize  = 3600
	defaultDownAfter    = 3
	defaultRestartDelay = time.Second
)

// Config holds the global probe settings. It is read-only once the
// Registry has been created.
type Config struct {
	Interval         time.Duration // time between two probes of a target
	Timeout          time.Duration // maximum wait for a reply
	PayloadSize      uint16        // ICMP payload in bytes
	HistorySize      int           // number of outcomes per target to keep
	DownAfter        int           // consecutive failures until a target is down
	Spread           bool          // distribute first probes over one interval
	RandomizePayload bool          // new random payload head for every probe
	RestartDelay     time.Duration // pause before restarting a crashed worker
}

// DefaultConfig returns the configuration used for all zero fields.
func DefaultConfig() Config {
	return Config{
		Interval:     defaultInterval,
		Timeout:      defaultTimeout,
		PayloadSize:  defaultPayloadSize,
		HistorySize:  defaultHistorySize,
		DownAfter:    defaultDownAfter,
		RestartDelay: defaultRestartDelay,
	}
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PayloadSize == 0 {
		c.PayloadSize = def.PayloadSize
	}
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.HistorySize == 0 {
		c.HistorySize = def.HistorySize
	}
	if c.DownAfter == 0 {
		c.DownAfter = def.DownAfter
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = def.RestartDelay
	}
	return c
}

// Validate checks c after defaults have been applied.
func (c Config) Validate() error {
	var errs []error
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %v", c.Interval))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("history size must be positive, got %d", c.HistorySize))
	}
	if c.DownAfter < 0 {
		errs = append(errs, fmt.Errorf("down-after must be positive, got %d", c.DownAfter))
	}
	return errors.Join(errs...)
}
