package internal

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// markControl returns a net.ListenConfig control function setting SO_MARK
// on the socket before it is bound.
func markControl(mark int) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, mark)
		})
		if err != nil {
			return err
		}
		return os.NewSyscallError("setsockopt", serr)
	}
}
