package monitor

import (
	"math"
	"sort"
	"sync"
	"time"
)

// History represents the probe history for a single target: a ring
// buffer of the latest outcomes plus lifetime counters. It has a single
// writer (the target's worker) and any number of readers.
type History struct {
	results   []Outcome
	count     int
	position  int
	downAfter int

	sent, received, lost uint64
	lastErr              string

	mtx sync.RWMutex
}

// NewHistory creates a new History object with a specific capacity.
// Targets are reported down after downAfter consecutive failures.
func NewHistory(capacity, downAfter int) *History {
	if capacity < 1 {
		capacity = 1
	}
	if downAfter < 1 {
		downAfter = 1
	}
	return &History{
		results:   make([]Outcome, capacity),
		downAfter: downAfter,
	}
}

// MarkSent counts a sent probe and returns its sequence number.
func (h *History) MarkSent() uint64 {
	h.mtx.Lock()
	seq := h.sent
	h.sent++
	h.mtx.Unlock()

	return seq
}

// Record saves an outcome into the internal history, evicting the oldest
// one if the history is full.
func (h *History) Record(o Outcome) {
	h.mtx.Lock()

	h.results[h.position] = o
	h.position = (h.position + 1) % len(h.results)

	if h.count < len(h.results) {
		h.count++
	}

	if o.Kind == Success {
		h.received++
	} else {
		h.lost++
		h.lastErr = o.describe()
	}

	h.mtx.Unlock()
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.results)
}

// Len returns the number of retained outcomes.
func (h *History) Len() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return h.count
}

// Outcomes returns a copy of the retained outcomes, oldest first.
func (h *History) Outcomes() []Outcome {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	result := make([]Outcome, h.count)
	for i := range result {
		result[i] = *h.at(i)
	}
	return result
}

// at returns the i-th retained outcome, oldest first.
func (h *History) at(i int) *Outcome {
	start := (h.position - h.count + len(h.results)) % len(h.results)
	return &h.results[(start+i)%len(h.results)]
}

// Snapshot aggregates the history into a single data point.
func (h *History) Snapshot() Stats {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	return h.compute()
}

func (h *History) compute() Stats {
	stats := Stats{
		Sent:      h.sent,
		Received:  h.received,
		Lost:      h.lost,
		Window:    h.count,
		Status:    h.status(),
		LastError: h.lastErr,
	}
	if done := h.received + h.lost; h.sent > done {
		stats.InFlight = h.sent - done
	}

	data := make([]float64, 0, h.count)
	var total, sumSquares, mean float64

	for i := 0; i < h.count; i++ {
		curr := h.at(i)
		if curr.Kind != Success {
			continue
		}

		if len(data) == 0 || curr.RTT < stats.Best {
			stats.Best = curr.RTT
		}
		if len(data) == 0 || curr.RTT > stats.Worst {
			stats.Worst = curr.RTT
		}
		stats.Last = curr.RTT

		data = append(data, float64(curr.RTT))
		total += float64(curr.RTT)
	}

	size := len(data)
	stats.Samples = size
	if size == 0 {
		return stats
	}

	mean = total / float64(size)
	for _, rtt := range data {
		sumSquares += math.Pow(rtt-mean, 2)
	}
	stats.Mean = time.Duration(mean)
	stats.StdDev = time.Duration(math.Sqrt(sumSquares / float64(size)))

	sort.Float64Slice(data).Sort()
	if size%2 == 0 {
		stats.Median = time.Duration((data[size/2-1] + data[size/2]) / 2)
	} else {
		stats.Median = time.Duration(data[size/2])
	}

	return stats
}

// status derives the reachability from the latest outcomes.
func (h *History) status() Status {
	if h.count == 0 {
		return Unknown
	}
	if h.at(h.count-1).Kind == Success {
		return Up
	}

	failures := 0
	for i := h.count - 1; i >= 0 && h.at(i).Kind != Success; i-- {
		failures++
		if failures >= h.downAfter {
			return Down
		}
	}
	return Unknown
}
