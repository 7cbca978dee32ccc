package ping

import (
	"bytes"
	"net"
	"time"

	"golang.org/x/net/icmp"
)

// process will finish a currently running Echo Request, if the body is
// an ICMP Echo reply to a request from us.
func (pinger *Pinger) process(body *icmp.Echo, icmpError error, addr net.IPAddr, tRecv time.Time) {
	seq := uint16(body.Seq)

	// search for existing running echo request
	pinger.mtx.Lock()
	req := pinger.requests[seq]
	if req != nil && icmpError == nil && !req.matches(body, addr) {
		req = nil
	}
	if req != nil {
		delete(pinger.requests, seq)
	}
	pinger.mtx.Unlock()

	if req == nil {
		log.Infof("debug: discarding unexpected reply seq=%d from %v", seq, addr.IP)
		return
	}
	req.respond(icmpError, tRecv)
}

// matches reports whether an echo reply answers req. ICMP errors are sent
// by intermediate routers and quote a possibly truncated payload, so they
// are correlated by sequence number only.
func (req *request) matches(body *icmp.Echo, addr net.IPAddr) bool {
	return req.remote.IP.Equal(addr.IP) && bytes.Equal(body.Data, req.payload)
}
