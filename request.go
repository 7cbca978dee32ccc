package ping

import (
	"net"
	"time"
)

// Pending is an echo request waiting for its reply.
type Pending interface {
	// Done is closed once a reply (or an ICMP error) was received.
	Done() <-chan struct{}

	// Result returns the round trip time, or the reason of failure. It
	// must only be called after Done is closed.
	Result() (time.Duration, error)

	// Cancel gives up waiting and frees the sequence number. Replies
	// arriving afterwards are discarded.
	Cancel()
}

// A request is a currently running ICMP echo request waiting for an answer.
type request struct {
	pinger  *Pinger
	remote  net.IPAddr
	payload []byte
	seq     uint16

	wait   chan struct{}
	result error
	tStart time.Time // start of measurement
	tRecv  time.Time // set by the receiver
}

// respond is responsible for finishing this request. It takes an error
// as failure reason. The caller must have removed the request from the
// requests map, which guarantees a single call per request.
func (req *request) respond(err error, tRecv time.Time) {
	req.result = err
	req.tRecv = tRecv
	close(req.wait)
}

func (req *request) Done() <-chan struct{} {
	return req.wait
}

func (req *request) Result() (time.Duration, error) {
	if req.result != nil {
		return 0, req.result
	}
	return req.tRecv.Sub(req.tStart), nil
}

func (req *request) Cancel() {
	req.pinger.dequeue(req)
}
