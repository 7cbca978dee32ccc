package internal

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

type received struct {
	echo *icmp.Echo
	err  error
	addr net.IPAddr
}

func capture(c *Conn) *[]received {
	var got []received
	c.Receiver = func(body *icmp.Echo, icmpError error, addr net.IPAddr, _ time.Time) {
		got = append(got, received{body, icmpError, addr})
	}
	return &got
}

func marshal(t *testing.T, typ icmp.Type, body icmp.MessageBody) []byte {
	t.Helper()
	b, err := (&icmp.Message{Type: typ, Body: body}).Marshal(nil)
	require.NoError(t, err)
	return b
}

func TestReceiveEchoReply(t *testing.T) {
	assert := assert.New(t)

	c := &Conn{Privileged: true}
	got := capture(c)
	from := net.IPAddr{IP: net.ParseIP("192.0.2.1")}

	c.receive(ProtocolICMP, marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: id, Seq: 7, Data: []byte("abc")}), from, time.Now())
	if assert.Len(*got, 1) {
		assert.Equal(7, (*got)[0].echo.Seq)
		assert.NoError((*got)[0].err)
		assert.True(from.IP.Equal((*got)[0].addr.IP))
	}

	// echo replies for other processes are ignored on raw sockets
	c.receive(ProtocolICMP, marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: id ^ 0x1, Seq: 8}), from, time.Now())
	assert.Len(*got, 1)

	// echo requests are not replies
	c.receive(ProtocolICMP, marshal(t, ipv4.ICMPTypeEcho, &icmp.Echo{ID: id, Seq: 9}), from, time.Now())
	assert.Len(*got, 1)

	// garbage
	c.receive(ProtocolICMP, []byte{0x00}, from, time.Now())
	assert.Len(*got, 1)
}

func TestReceiveUnprivilegedIgnoresID(t *testing.T) {
	c := &Conn{}
	got := capture(c)

	c.receive(ProtocolICMPv6, marshal(t, ipv6.ICMPTypeEchoReply, &icmp.Echo{ID: 4711, Seq: 3}), net.IPAddr{IP: net.IPv6loopback}, time.Now())
	require.Len(t, *got, 1)
	assert.Equal(t, 3, (*got)[0].echo.Seq)
}

func TestReceiveDestinationUnreachable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := &Conn{Privileged: true}
	got := capture(c)

	quoted := marshal(t, ipv4.ICMPTypeEcho, &icmp.Echo{ID: id, Seq: 42, Data: make([]byte, 8)})
	hdr := ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(quoted),
		TTL:      1,
		Protocol: ProtocolICMP,
		Src:      net.ParseIP("192.0.2.10").To4(),
		Dst:      net.ParseIP("198.51.100.1").To4(),
	}
	hb, err := hdr.Marshal()
	require.NoError(err)

	router := net.IPAddr{IP: net.ParseIP("192.0.2.254")}
	msg := marshal(t, ipv4.ICMPTypeDestinationUnreachable, &icmp.DstUnreach{Data: append(hb, quoted...)})
	c.receive(ProtocolICMP, msg, router, time.Now())

	require.Len(*got, 1)
	assert.Equal(42, (*got)[0].echo.Seq)

	var icmpErr *ICMPError
	require.ErrorAs((*got)[0].err, &icmpErr)
	assert.Equal(ipv4.ICMPTypeDestinationUnreachable, icmpErr.Type)
	assert.True(router.IP.Equal(icmpErr.From))
	assert.Contains(icmpErr.Error(), "192.0.2.254")
}

func TestWriteToMissingSocket(t *testing.T) {
	c := &Conn{Privileged: true}
	err := c.WriteTo(&net.IPAddr{IP: net.ParseIP("2001:db8::1")}, 1, nil)
	assert.ErrorIs(t, err, ErrSocketMissing)
	assert.False(t, c.Supports(net.ParseIP("192.0.2.1")))
}

func TestOpenWithoutBindAddresses(t *testing.T) {
	c := &Conn{Privileged: true}
	assert.ErrorIs(t, c.Open("", ""), ErrNotBound)

	c = &Conn{Mark: 1}
	assert.ErrorIs(t, c.Open("0.0.0.0", ""), errMarkDatagram)
}

// packetSource hands out queued packets, then reports a closed socket.
type packetSource struct {
	net.PacketConn // unused methods panic
	packets [][]byte
	from    net.Addr
}

func (p *packetSource) ReadFrom(b []byte) (int, net.Addr, error) {
	if len(p.packets) == 0 {
		return 0, nil, net.ErrClosed
	}
	n := copy(b, p.packets[0])
	p.packets = p.packets[1:]
	return n, p.from, nil
}

func TestReceiveLargeReply(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 8000)

	c := &Conn{Privileged: true}
	got := capture(c)
	src := &packetSource{
		packets: [][]byte{marshal(t, ipv6.ICMPTypeEchoReply, &icmp.Echo{ID: id, Seq: 3, Data: payload})},
		from:    &net.IPAddr{IP: net.ParseIP("2001:db8::1")},
	}

	c.wg.Add(1)
	c.receiver(ProtocolICMPv6, src)

	require.Len(t, *got, 1)
	assert.Equal(t, payload, (*got)[0].echo.Data)
}
