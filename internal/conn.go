package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// ProtocolICMP is the number of the Internet Control Message Protocol
	// (see golang.org/x/net/internal/iana.ProtocolICMP)
	ProtocolICMP = 1

	// ProtocolICMPv6 is the IPv6 Next Header value for ICMPv6
	// see golang.org/x/net/internal/iana.ProtocolIPv6ICMP
	ProtocolICMPv6 = 58

	// maxPacketSize is the largest IP datagram, so replies to probes with
	// the maximum payload are read in full.
	maxPacketSize = 65535
)

var (
	ErrNotBound      = errors.New("need at least one bind address")
	ErrSocketMissing = errors.New("socket missing")
	errMarkDatagram  = errors.New("SO_MARK requires privileged (raw) sockets")

	id = os.Getpid() & 0xffff
)

// Receiver is called from the receiving goroutines for every ICMP echo reply
// (icmpError == nil) and every error message quoting one of our echo
// requests.
type Receiver func(body *icmp.Echo, icmpError error, addr net.IPAddr, tRecv time.Time)

// Conn holds the IPv4 and IPv6 ICMP sockets. Both sockets are safe for
// concurrent writers; every socket has exactly one reading goroutine.
type Conn struct {
	Receiver   Receiver
	Privileged bool
	Mark       int // SO_MARK, 0 disables

	conn4 net.PacketConn
	conn6 net.PacketConn
	wg    sync.WaitGroup
}

// Open binds the sockets and starts the receiving logic. An empty bind
// address skips that address family. You'll need to call Close() to
// cleanup.
func (c *Conn) Open(bind4, bind6 string) error {
	var err error
	var network4, network6 string

	if c.Privileged {
		network4 = "ip4:icmp"
		network6 = "ip6:ipv6-icmp"
	} else {
		if c.Mark != 0 {
			return errMarkDatagram
		}
		network4 = "udp4"
		network6 = "udp6"
	}

	// open sockets
	c.conn4, err = c.listen(network4, bind4)
	if err != nil {
		return fmt.Errorf("listen %s: %w", network4, err)
	}

	c.conn6, err = c.listen(network6, bind6)
	if err != nil {
		if c.conn4 != nil {
			c.conn4.Close()
		}
		return fmt.Errorf("listen %s: %w", network6, err)
	}

	if c.conn4 == nil && c.conn6 == nil {
		return ErrNotBound
	}

	if c.conn4 != nil {
		c.wg.Add(1)
		go c.receiver(ProtocolICMP, c.conn4)
	}
	if c.conn6 != nil {
		c.wg.Add(1)
		go c.receiver(ProtocolICMPv6, c.conn6)
	}

	return nil
}

// Close closes the sockets and waits for the receiving goroutines to exit.
func (c *Conn) Close() {
	if c.conn4 != nil {
		c.conn4.Close()
	}
	if c.conn6 != nil {
		c.conn6.Close()
	}
	c.wg.Wait()
}

// Supports reports whether a socket for the address family of ip is open.
func (c *Conn) Supports(ip net.IP) bool {
	if ip.To4() != nil {
		return c.conn4 != nil
	}
	return c.conn6 != nil
}

// listen opens a new ICMP connection, if network and address are not empty.
func (c *Conn) listen(network, address string) (net.PacketConn, error) {
	if network == "" || address == "" {
		return nil, nil
	}

	if !c.Privileged {
		// datagram ICMP sockets are only available through x/net/icmp
		return icmp.ListenPacket(network, address)
	}

	var lc net.ListenConfig
	if c.Mark != 0 {
		lc.Control = markControl(c.Mark)
	}
	return lc.ListenPacket(context.Background(), network, address)
}

// receiver listens on the socket and hands ICMP messages to receive().
func (c *Conn) receiver(proto int, conn net.PacketConn) {
	defer c.wg.Done()
	rb := make([]byte, maxPacketSize)

	// read incoming packets
	for {
		n, source, err := conn.ReadFrom(rb)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return // socket gone
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			Logger.Errorf("reading from ICMP socket failed: %v", err)
			return
		}

		var ipAddr net.IPAddr

		switch addr := source.(type) {
		case *net.UDPAddr:
			ipAddr.IP = addr.IP
			ipAddr.Zone = addr.Zone
		case *net.IPAddr:
			ipAddr = *addr
		}

		c.receive(proto, rb[:n], ipAddr, time.Now())
	}
}

// receive takes the raw message and tries to evaluate an ICMP response.
// If that succeeds, the body is given to the Receiver.
func (c *Conn) receive(proto int, bytes []byte, addr net.IPAddr, t time.Time) {
	// parse message
	m, err := icmp.ParseMessage(proto, bytes)
	if err != nil {
		return
	}

	// evaluate message
	switch m.Type {
	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
		echo, ok := m.Body.(*icmp.Echo)
		if !ok || !c.ours(echo) {
			return
		}
		c.Receiver(echo, nil, addr, t)

	case ipv4.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeDestinationUnreachable,
		ipv4.ICMPTypeTimeExceeded, ipv6.ICMPTypeTimeExceeded:

		var data []byte
		switch body := m.Body.(type) {
		case *icmp.DstUnreach:
			data = body.Data
		case *icmp.TimeExceeded:
			data = body.Data
		default:
			return
		}

		var bodyData []byte
		switch proto {
		case ProtocolICMP:
			// parse header of original IPv4 packet
			hdr, err := ipv4.ParseHeader(data)
			if err != nil {
				return
			}
			bodyData = data[hdr.Len:]
		case ProtocolICMPv6:
			// parse header of original IPv6 packet (we don't need the actual
			// header, but want to detect parsing errors)
			_, err := ipv6.ParseHeader(data)
			if err != nil {
				return
			}
			bodyData = data[ipv6.HeaderLen:]
		default:
			return
		}

		// parse ICMP message after the IP header
		msg, err := icmp.ParseMessage(proto, bodyData)
		if err != nil {
			return
		}

		echo, ok := msg.Body.(*icmp.Echo)
		if !ok || echo == nil {
			Logger.Infof("debug: expected *icmp.Echo, got %#v", msg)
			return
		}
		if !c.ours(echo) {
			return
		}

		c.Receiver(echo, &ICMPError{Type: m.Type, Code: m.Code, From: addr.IP}, addr, t)
	}
}

// ours filters foreign echo traffic seen on raw sockets. Datagram sockets
// rewrite the identifier to the local port and filter in the kernel.
func (c *Conn) ours(echo *icmp.Echo) bool {
	return !c.Privileged || echo.ID == id
}

// WriteTo marshals the echo request and sends the packet.
func (c *Conn) WriteTo(addr *net.IPAddr, seq int, data []byte) error {
	echo := icmp.Echo{
		Seq:  seq,
		Data: data,
	}
	msg := icmp.Message{
		Code: 0,
		Body: &echo,
	}

	var conn net.PacketConn
	if addr.IP.To4() != nil {
		msg.Type = ipv4.ICMPTypeEcho
		conn = c.conn4
	} else {
		msg.Type = ipv6.ICMPTypeEchoRequest
		conn = c.conn6
	}

	if c.Privileged {
		echo.ID = id
	}

	if conn == nil {
		return ErrSocketMissing
	}

	// serialize packet
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	// send request
	if c.Privileged {
		_, err = conn.WriteTo(wb, addr)
	} else {
		_, err = conn.WriteTo(wb, &net.UDPAddr{
			IP:   addr.IP,
			Zone: addr.Zone,
		})
	}

	return err
}
