package comm

import (
	"bytes"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultBaudRate is the rate used by ATS-BT firmware.
const DefaultBaudRate = 115200

// Transport moves raw protocol lines over one serial connection.
type Transport interface {
	// WriteLine frames and sends one command line.
	WriteLine(line string) error
	// ReadLine returns the next received line, blocking up to timeout.
	// Expiry returns ErrTimeout and keeps any partial line buffered for
	// the next call.
	ReadLine(timeout time.Duration) (string, error)
	// Close releases the connection. It is idempotent.
	Close() error
}

// SerialPort is the Transport over a real serial port.
type SerialPort struct {
	name string
	port serial.Port

	mu      sync.Mutex
	pending []byte
	closed  bool
}

// Open opens a serial port at the given baud rate (8N1, as the
// accessory's USB CDC endpoint expects).
func Open(name string, baud int) (*SerialPort, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &PortError{Port: name, Err: err}
	}
	glog.V(2).Infof("opened %s at %d baud", name, baud)
	return &SerialPort{name: name, port: port}, nil
}

// Name returns the port identifier.
func (s *SerialPort) Name() string {
	return s.name
}

// WriteLine implements Transport.
func (s *SerialPort) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.port.Write(EncodeCommand(line)); err != nil {
		return &PortError{Port: s.name, Err: err}
	}
	return nil
}

// ReadLine implements Transport. Bytes are accumulated across calls so
// a line split by a timeout is not lost.
func (s *SerialPort) ReadLine(timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexAny(s.pending, "\r\n"); i >= 0 {
			line := string(s.pending[:i])
			s.pending = s.pending[i+1:]
			if line == "" {
				continue
			}
			return line, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrTimeout
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return "", &PortError{Port: s.name, Err: err}
		}
		n, err := s.port.Read(buf)
		if err != nil {
			return "", &PortError{Port: s.name, Err: err}
		}
		if n == 0 {
			// go.bug.st/serial signals timeout as a zero-length read.
			return "", ErrTimeout
		}
		s.pending = append(s.pending, buf[:n]...)
	}
}

// Close implements Transport.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	return s.port.Close()
}

// ListPorts enumerates candidate serial ports on this host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
