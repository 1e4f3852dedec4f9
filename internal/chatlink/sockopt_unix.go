//go:build unix

package chatlink

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const pollSupported = true

func reuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// readable polls the socket with a zero timeout.
func readable(c syscall.RawConn) (bool, error) {
	var ready bool
	var pollErr error
	if err := c.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, err := unix.Poll(fds, 0)
			if err == unix.EINTR {
				continue
			}
			pollErr = err
			ready = n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
			return
		}
	}); err != nil {
		return false, err
	}
	return ready, pollErr
}
