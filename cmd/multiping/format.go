package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/digineo/go-multiping/monitor"
)

const noData = "-"

const tsDividend = float64(time.Millisecond) / float64(time.Nanosecond)

func ts(dur time.Duration) string {
	if 10*time.Microsecond < dur && dur < time.Second {
		return fmt.Sprintf("%0.2fms", float64(dur.Nanoseconds())/tsDividend)
	}
	return dur.String()
}

// row holds the display strings of a snapshot.
type row struct {
	host, address    string
	sent, recv, loss string
	last, best       string
	worst, mean      string
	stddev           string
	status, lastErr  string
}

func (r row) values() []string {
	return []string{
		r.host, r.address, r.sent, r.recv, r.loss,
		r.last, r.best, r.worst, r.mean, r.stddev,
		r.status, r.lastErr,
	}
}

var columns = []string{
	"host", "address", "sent", "recv", "loss",
	"last", "best", "worst", "mean", "stddev",
	"status", "last err",
}

func format(s monitor.Snapshot) row {
	r := row{
		host:    s.Target.String(),
		address: s.Target.Addr.String(),
		sent:    humanize.Comma(int64(s.Sent)),
		recv:    humanize.Comma(int64(s.Received)),
		loss:    noData,
		last:    noData,
		best:    noData,
		worst:   noData,
		mean:    noData,
		stddev:  noData,
		status:  s.Status.String(),
		lastErr: s.LastError,
	}

	if s.Received+s.Lost > 0 {
		r.loss = fmt.Sprintf("%0.1f%%", 100*s.Loss())
	}
	if s.HasRTT() {
		r.last = ts(s.Last)
		r.best = ts(s.Best)
		r.worst = ts(s.Worst)
		r.mean = ts(s.Mean)
		r.stddev = ts(s.StdDev)
	}
	if s.Restarts > 0 {
		r.status = fmt.Sprintf("%s (%d restarts)", r.status, s.Restarts)
	}
	return r
}
