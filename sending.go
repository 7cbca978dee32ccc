package ping

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Send transmits a single echo request to remote and returns without
// waiting for the reply. The payload may be modified once Send returns.
func (pinger *Pinger) Send(remote *net.IPAddr, payload []byte) (Pending, error) {
	if pinger.closed.Load() {
		return nil, ErrClosed
	}
	if !pinger.conn.Supports(remote.IP) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, remote.IP)
	}

	req := &request{
		pinger:  pinger,
		remote:  *remote,
		payload: append([]byte(nil), payload...),
		wait:    make(chan struct{}),
	}

	// enqueue in currently running requests
	seq, err := pinger.enqueue(req)
	if err != nil {
		return nil, err
	}

	// start measurement (tRecv is set in the receiving end)
	req.tStart = time.Now()

	// send request
	if err := pinger.conn.WriteTo(remote, int(seq), payload); err != nil {
		pinger.dequeue(req)
		return nil, err
	}

	return req, nil
}

// Ping sends a single echo request and waits up to timeout for the reply.
// It returns the round trip time if a reply is received in time.
func (pinger *Pinger) Ping(ctx context.Context, remote *net.IPAddr, payload []byte, timeout time.Duration) (time.Duration, error) {
	req, err := pinger.Send(remote, payload)
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// wait for answer
	select {
	case <-req.Done():
		return req.Result()
	case <-timer.C:
		req.Cancel()
		return 0, &timeoutError{}
	case <-ctx.Done():
		req.Cancel()
		return 0, ctx.Err()
	}
}
