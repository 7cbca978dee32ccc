package ping

import (
	"errors"

	"github.com/digineo/go-multiping/internal"
)

var (
	// ErrClosed is returned for requests on a closed Pinger.
	ErrClosed = errors.New("pinger closed")

	// ErrTooManyRequests is returned when every wire sequence number is
	// taken by a request waiting for its reply.
	ErrTooManyRequests = errors.New("too many requests in flight")

	// ErrUnsupportedFamily is returned by Send when no socket for the
	// address family of the remote is open.
	ErrUnsupportedFamily = errors.New("address family not bound")
)

// ICMPError is returned by Pending.Result when a router answered with an
// ICMP error (e.g. destination unreachable) instead of an echo reply.
type ICMPError = internal.ICMPError

// timeoutError implements the net.Error interface. Originally taken from
// https://github.com/golang/go/blob/release-branch.go1.8/src/net/net.go#L505-L509
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
