package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates a read expired before a full line arrived.
	// It is a normal outcome of ReadLine, not a port failure.
	ErrTimeout = errors.New("read timeout")
	// ErrCommandTimeout indicates a command received no terminal
	// response within its retry budget.
	ErrCommandTimeout = errors.New("command timeout")
	// ErrNotFound indicates no candidate port answered the probe.
	ErrNotFound = errors.New("no accessory found")
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")
)

// PortError wraps a failure to open or use a serial port.
type PortError struct {
	Port string
	Err  error
}

// Error implements error.
func (e *PortError) Error() string {
	return fmt.Sprintf("port %s: %v", e.Port, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PortError) Unwrap() error {
	return e.Err
}

// CommandError wraps the message of a terminal error response.
type CommandError struct {
	Message string
}

// Error implements error.
func (e *CommandError) Error() string {
	if e.Message == "" {
		return "command rejected"
	}
	return fmt.Sprintf("command rejected: %s", e.Message)
}
