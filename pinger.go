package ping

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/digineo/go-multiping/internal"
)

// ErrTransportUnavailable wraps every error preventing the sockets from
// being opened (missing privileges, unsupported protocol, bad bind address).
var ErrTransportUnavailable = errors.New("ICMP transport unavailable")

// sequence number for this process
var sequence uint32

// Options configures the sockets of a Pinger.
type Options struct {
	Bind4      string // IPv4 bind address, empty disables IPv4
	Bind6      string // IPv6 bind address, empty disables IPv6
	Privileged bool   // raw sockets (CAP_NET_RAW) instead of datagram ICMP sockets
	Mark       int    // SO_MARK for outgoing packets (Linux only), 0 disables
}

// packetConn is the part of internal.Conn used after opening.
type packetConn interface {
	WriteTo(addr *net.IPAddr, seq int, data []byte) error
	Supports(ip net.IP) bool
	Close()
}

// Pinger is a instance for ICMP echo requests. A single Pinger is shared
// by many goroutines; requests are correlated with replies by their wire
// sequence number.
type Pinger struct {
	requests map[uint16]*request // currently running requests
	mtx      sync.Mutex          // lock for the requests map
	conn     packetConn
	closed   atomic.Bool
}

// New creates a new Pinger. This will open the sockets and start the
// receiving logic. You'll need to call Close() to cleanup.
func New(opts Options) (*Pinger, error) {
	pinger := &Pinger{
		requests: make(map[uint16]*request),
	}

	conn := &internal.Conn{
		Privileged: opts.Privileged,
		Mark:       opts.Mark,
		Receiver:   pinger.process,
	}
	if err := conn.Open(opts.Bind4, opts.Bind6); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	pinger.conn = conn

	log.Infof("debug: opened ICMP sockets (v4=%q v6=%q privileged=%v)", opts.Bind4, opts.Bind6, opts.Privileged)
	return pinger, nil
}

// Close closes the ICMP sockets and waits for the receivers to exit.
// Requests still waiting for a reply fail with ErrClosed.
func (pinger *Pinger) Close() {
	if !pinger.closed.CompareAndSwap(false, true) {
		return
	}
	pinger.conn.Close()

	pinger.mtx.Lock()
	pending := pinger.requests
	pinger.requests = make(map[uint16]*request)
	pinger.mtx.Unlock()

	for _, req := range pending {
		req.respond(ErrClosed, time.Time{})
	}
}

// InFlight returns the number of requests waiting for a reply.
func (pinger *Pinger) InFlight() int {
	pinger.mtx.Lock()
	defer pinger.mtx.Unlock()
	return len(pinger.requests)
}

// enqueue registers req under a free wire sequence number.
func (pinger *Pinger) enqueue(req *request) (uint16, error) {
	pinger.mtx.Lock()
	defer pinger.mtx.Unlock()

	if len(pinger.requests) >= 1<<16 {
		return 0, ErrTooManyRequests
	}
	for {
		seq := uint16(atomic.AddUint32(&sequence, 1))
		if _, taken := pinger.requests[seq]; !taken {
			pinger.requests[seq] = req
			req.seq = seq
			return seq, nil
		}
	}
}

// dequeue removes req, unless it has been answered in the meantime. It
// reports whether req was still registered.
func (pinger *Pinger) dequeue(req *request) bool {
	pinger.mtx.Lock()
	defer pinger.mtx.Unlock()

	if pinger.requests[req.seq] != req {
		return false
	}
	delete(pinger.requests, req.seq)
	return true
}
