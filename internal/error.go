package internal

import (
	"fmt"
	"net"

	"golang.org/x/net/icmp"
)

// ICMPError is an ICMP error message (destination unreachable, time
// exceeded) received in response to one of our echo requests.
type ICMPError struct {
	Type icmp.Type
	Code int
	From net.IP
}

func (e *ICMPError) Error() string {
	return fmt.Sprintf("%v (code %d) from %v", e.Type, e.Code, e.From)
}
