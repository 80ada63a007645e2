//go:build linux

package main

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/looxidlabs/link-band-core/internal/errs"
)

// ensurePortAvailable surfaces a port conflict rather than silently
// failing inside http.Server.ListenAndServe, folded back from the
// Python original's ensure_port_available but deliberately NOT killing
// whatever process holds the port (spec.md §4.K redesign).
func ensurePortAvailable(host string, port int) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		// Socket probing itself failing is not fatal: fall through and
		// let ListenAndServe report the real error.
		return nil
	}
	defer unix.Close(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil
	}

	addr := unix.SockaddrInet4{Port: port}
	copy(addr.Addr[:], []byte{0, 0, 0, 0})
	if err := unix.Bind(fd, &addr); err != nil {
		return fmt.Errorf("%w: port %d on %s", errs.ErrPortInUse, port, host)
	}
	return nil
}
