//go:build !(linux || freebsd || openbsd || darwin)

package proxy

import (
	"errors"
	"syscall"
)

func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return errors.New("SO_REUSEPORT is not supported on this platform")
}
