package comm

import (
	"time"

	"github.com/golang/glog"
)

// DefaultProbeTimeout bounds how long each candidate port gets to
// answer the probe during autodetection.
const DefaultProbeTimeout = 500 * time.Millisecond

// Detector finds the accessory by probing candidate ports. The lister
// and opener are injectable so detection logic is testable without
// hardware.
type Detector struct {
	// List enumerates candidate ports. Defaults to ListPorts.
	List func() ([]string, error)
	// Open opens one candidate. Defaults to Open.
	Open func(name string, baud int) (Transport, error)
	// Probe is the identification command sent to each candidate.
	Probe string
	// Baud is the rate used for probing. Defaults to DefaultBaudRate.
	Baud int
	// Timeout bounds each probe. Defaults to DefaultProbeTimeout.
	Timeout time.Duration
}

// Detect probes each candidate port in order and returns the first
// transport whose peer answers with any non-empty line. It fails with
// ErrNotFound when no candidate responds.
func (d Detector) Detect() (Transport, string, error) {
	list := d.List
	if list == nil {
		list = ListPorts
	}
	open := d.Open
	if open == nil {
		open = func(name string, baud int) (Transport, error) {
			return Open(name, baud)
		}
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = DefaultProbeTimeout
	}

	names, err := list()
	if err != nil {
		return nil, "", err
	}
	for _, name := range names {
		tr, err := open(name, d.Baud)
		if err != nil {
			glog.V(2).Infof("skip %s: %v", name, err)
			continue
		}
		if probe(tr, d.Probe, timeout) {
			glog.V(1).Infof("accessory detected on %s", name)
			return tr, name, nil
		}
		tr.Close()
	}
	return nil, "", ErrNotFound
}

func probe(tr Transport, cmd string, timeout time.Duration) bool {
	if err := tr.WriteLine(cmd); err != nil {
		return false
	}
	line, err := tr.ReadLine(timeout)
	return err == nil && line != ""
}
