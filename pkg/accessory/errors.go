package accessory

import (
	"errors"
	"fmt"
)

// ErrNotStreaming indicates a media command was refused because no
// audio stream is established. Nothing is sent over the wire.
var ErrNotStreaming = errors.New("no audio stream")

// StateError reports an operation invoked from a state that does not
// permit it.
type StateError struct {
	Op    string
	State string
}

// Error implements error.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: invalid transition from %s", e.Op, e.State)
}

// NotFoundError reports a device address absent from the current scan
// results.
type NotFoundError struct {
	Address Address
}

// Error implements error.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("device %s not found", e.Address)
}
