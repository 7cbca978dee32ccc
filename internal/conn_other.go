//go:build !linux

package internal

import (
	"errors"
	"syscall"
)

func markControl(int) func(network, address string, c syscall.RawConn) error {
	return func(string, string, syscall.RawConn) error {
		return errors.New("setting SO_MARK socket option is not supported on this platform")
	}
}
