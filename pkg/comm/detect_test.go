package comm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type probeFake struct {
	answers bool
	writes  []string
	closed  bool
}

func (f *probeFake) WriteLine(line string) error {
	f.writes = append(f.writes, line)
	return nil
}

func (f *probeFake) ReadLine(timeout time.Duration) (string, error) {
	if !f.answers {
		return "", ErrTimeout
	}
	return "OK STATUS READY", nil
}

func (f *probeFake) Close() error {
	f.closed = true
	return nil
}

func TestDetect(t *testing.T) {
	silent := &probeFake{}
	accessory := &probeFake{answers: true}
	ports := map[string]*probeFake{
		"/dev/ttyUSB0": silent,
		"/dev/ttyACM0": accessory,
	}

	d := Detector{
		List: func() ([]string, error) {
			return []string{"/dev/ttyUSB0", "/dev/ttyACM0"}, nil
		},
		Open: func(name string, baud int) (Transport, error) {
			return ports[name], nil
		},
		Probe:   "GET STATUS",
		Timeout: 10 * time.Millisecond,
	}

	tr, name, err := d.Detect()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", name)
	require.Same(t, accessory, tr.(*probeFake))
	require.Equal(t, []string{"GET STATUS"}, silent.writes)
	require.True(t, silent.closed, "non-responding candidate left open")
	require.False(t, accessory.closed)
}

func TestDetectNotFound(t *testing.T) {
	d := Detector{
		List: func() ([]string, error) {
			return []string{"/dev/ttyUSB0"}, nil
		},
		Open: func(name string, baud int) (Transport, error) {
			return &probeFake{}, nil
		},
		Probe:   "GET STATUS",
		Timeout: 10 * time.Millisecond,
	}
	_, _, err := d.Detect()
	require.Equal(t, ErrNotFound, err)
}

func TestDetectSkipsUnopenablePorts(t *testing.T) {
	accessory := &probeFake{answers: true}
	d := Detector{
		List: func() ([]string, error) {
			return []string{"/dev/ttyS0", "/dev/ttyACM0"}, nil
		},
		Open: func(name string, baud int) (Transport, error) {
			if name == "/dev/ttyS0" {
				return nil, &PortError{Port: name, Err: errors.New("busy")}
			}
			return accessory, nil
		},
		Probe:   "GET STATUS",
		Timeout: 10 * time.Millisecond,
	}
	_, name, err := d.Detect()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", name)
}
