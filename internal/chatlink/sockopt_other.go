//go:build !unix

package chatlink

import "syscall"

const pollSupported = false

func reuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}

// readable cannot inspect the socket without poll(2); report ready and let
// the caller's short read deadline bound the read.
func readable(_ syscall.RawConn) (bool, error) {
	return true, nil
}
