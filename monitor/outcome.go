package monitor

import "time"

// Kind classifies an Outcome.
type Kind uint8

const (
	Success Kind = iota // reply received in time
	Timeout             // no reply within the timeout
	Failure             // send error or ICMP error message
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case Failure:
		return "failure"
	}
	return "invalid"
}

// Outcome is the result of a single probe.
type Outcome struct {
	Seq  uint64        // per target, starting at 0
	Kind Kind
	RTT  time.Duration // for Success
	Err  error         // for Failure
	At   time.Time     // time of sending
}

// describe returns a short text for failed outcomes.
func (o Outcome) describe() string {
	switch o.Kind {
	case Timeout:
		return "timeout"
	case Failure:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "failure"
	}
	return ""
}
