package chatlink

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/containerd/errdefs"
)

var (
	// ErrUnreachable means the chat service could not be dialed or closed
	// the connection before sending its greeting.
	ErrUnreachable = fmt.Errorf("chat server unreachable: %w", errdefs.ErrUnavailable)

	// ErrProtocolMismatch means the greeting did not ask for a name.
	ErrProtocolMismatch = fmt.Errorf("chat server did not ask for a name: %w", errdefs.ErrFailedPrecondition)
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe or connection reset.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
