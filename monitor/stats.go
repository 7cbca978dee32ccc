package monitor

import "time"

// Status is the reachability of a target derived from its latest outcomes.
type Status uint8

const (
	Unknown Status = iota // no data, or too few consecutive failures
	Up                    // latest probe succeeded
	Down                  // latest DownAfter probes failed
)

func (s Status) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "unknown"
}

// Stats is a dumb data point computed from a History. The RTT fields are
// only meaningful if Samples > 0.
type Stats struct {
	Sent     uint64 // number of packets sent
	Received uint64 // number of replies received in time
	Lost     uint64 // number of timeouts and failures
	InFlight uint64 // sent, but not yet finished

	Window  int // outcomes in the history window
	Samples int // successful outcomes in the history window

	Last   time.Duration // last rtt
	Best   time.Duration // best rtt
	Worst  time.Duration // worst rtt
	Median time.Duration // median rtt
	Mean   time.Duration // mean rtt
	StdDev time.Duration // std deviation

	Status    Status
	LastError string // description of the latest failed probe
}

// HasRTT reports whether the RTT fields carry data.
func (s Stats) HasRTT() bool {
	return s.Samples > 0
}

// Loss returns the ratio of lost packets over all finished probes, in
// the range [0, 1].
func (s Stats) Loss() float64 {
	finished := s.Received + s.Lost
	if finished == 0 {
		return 0
	}
	return float64(s.Lost) / float64(finished)
}
