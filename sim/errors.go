package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder is wrapped by every InvalidOrderError.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrEpisodeExhausted is returned when a command needs turns that the
	// episode no longer has.
	ErrEpisodeExhausted = errors.New("episode exhausted")

	// ErrNoSuchLevel is returned when removing a price level that is not
	// there.
	ErrNoSuchLevel = errors.New("no such level")
)

// InvalidOrderError rejects a command without changing the session.
type InvalidOrderError struct {
	Op     string
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *InvalidOrderError) Unwrap() error { return ErrInvalidOrder }

func invalidOrder(op, format string, args ...any) error {
	return &InvalidOrderError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
