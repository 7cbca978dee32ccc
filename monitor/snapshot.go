package monitor

import "time"

// Snapshot is a point-in-time copy of a target and its statistics. It
// shares nothing with the live state and may be handed to any goroutine.
type Snapshot struct {
	Index  int
	Target Target
	Stats

	State    State
	Restarts uint32
	Taken    time.Time
}

// Snapshot computes the statistics of all targets in registry order.
// Every history is locked for reading on its own; probing continues
// while the snapshot is taken.
func (r *Registry) Snapshot(now time.Time) []Snapshot {
	result := make([]Snapshot, len(r.entries))
	for i, e := range r.entries {
		result[i] = Snapshot{
			Index:    i,
			Target:   e.target,
			Stats:    e.history.Snapshot(),
			State:    State(e.state.Load()),
			Restarts: e.restarts.Load(),
			Taken:    now,
		}
	}
	return result
}
