package bridge

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// Precondition failures. Handlers log these and stay silent toward the
// polling client.
var (
	ErrNotConnected     = fmt.Errorf("not connected to the chat server: %w", errdefs.ErrFailedPrecondition)
	ErrAlreadyConnected = fmt.Errorf("already connected to the chat server: %w", errdefs.ErrFailedPrecondition)
	ErrNotInRoom        = fmt.Errorf("no room joined: %w", errdefs.ErrFailedPrecondition)
	ErrBadArguments     = fmt.Errorf("wrong number of arguments: %w", errdefs.ErrInvalidArgument)
)

// UnknownCommandError is returned by Dispatch for a command name with no
// registered handler.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// Unwrap classifies the error as not found.
func (e *UnknownCommandError) Unwrap() error {
	return errdefs.ErrNotFound
}
