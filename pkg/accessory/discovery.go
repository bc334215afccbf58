package accessory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/atsaudio/atsbt/pkg/comm"
)

// PairingState is the state of the discovery and pairing engine.
type PairingState int

const (
	// PairingIdle means no scan or pairing attempt is in progress.
	PairingIdle PairingState = iota
	// Scanning means an inquiry is running and sightings accumulate.
	Scanning
	// Pairing means a pairing handshake is in flight.
	Pairing
	// Paired means the handshake completed for the target address.
	Paired
	// PairingFailed means the last attempt failed; the reason is kept.
	PairingFailed
)

// String returns the state name.
func (s PairingState) String() string {
	switch s {
	case PairingIdle:
		return "idle"
	case Scanning:
		return "scanning"
	case Pairing:
		return "pairing"
	case Paired:
		return "paired"
	case PairingFailed:
		return "failed"
	}
	return "unknown"
}

// Device is one remote Bluetooth device sighted during a scan.
type Device struct {
	Address Address
	Name    string
	RSSI    int
	Paired  bool
}

// Discovery manages Bluetooth scan and pairing against the accessory.
// The device set is scan-scoped: a fresh StartDiscovery clears it.
type Discovery struct {
	s *Session

	mu      sync.Mutex
	state   PairingState
	target  Address
	reason  string
	devices map[Address]*Device
	order   []Address
}

func newDiscovery(s *Session) *Discovery {
	return &Discovery{s: s, devices: make(map[Address]*Device)}
}

// State returns the pairing state and, for Pairing and Paired, the
// target address.
func (d *Discovery) State() (PairingState, Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.target
}

// FailureReason returns the recorded reason of the last failed pairing
// attempt.
func (d *Discovery) FailureReason() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}

// Devices returns a snapshot of the current scan's sightings in order
// of first appearance.
func (d *Discovery) Devices() []Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Device, 0, len(d.order))
	for _, addr := range d.order {
		out = append(out, *d.devices[addr])
	}
	return out
}

// StartDiscovery begins an inquiry. It requires a connected session
// and an idle engine; a second start without an intervening stop is an
// invalid transition. Sightings arrive asynchronously via Poll.
func (d *Discovery) StartDiscovery() error {
	d.mu.Lock()
	if d.state != PairingIdle {
		st := d.state
		d.mu.Unlock()
		return &StateError{Op: "start discovery", State: st.String()}
	}
	d.state = Scanning
	d.devices = make(map[Address]*Device)
	d.order = nil
	d.mu.Unlock()

	cmd := fmt.Sprintf("INQUIRY %d", d.s.cfg.ScanSeconds)
	if _, err := d.s.Do(comm.Command{Text: cmd}); err != nil {
		d.mu.Lock()
		if d.state == Scanning {
			d.state = PairingIdle
		}
		d.mu.Unlock()
		return err
	}
	glog.V(1).Infof("inquiry started for %ds", d.s.cfg.ScanSeconds)
	return nil
}

// Poll performs one cooperative discovery step: while scanning it
// issues a status poll and folds any sightings carried in the data
// lines into the device set. It acquires the command channel like any
// other caller and is a no-op outside Scanning.
func (d *Discovery) Poll() error {
	d.mu.Lock()
	scanning := d.state == Scanning
	d.mu.Unlock()
	if !scanning {
		return nil
	}

	res, err := d.s.Do(comm.Command{Text: "STATUS"})
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Scanning {
		return nil
	}
	for _, line := range res.Data {
		dev, ok := parseSighting(line)
		if !ok {
			continue
		}
		if known, seen := d.devices[dev.Address]; seen {
			known.Name, known.RSSI = dev.Name, dev.RSSI
			continue
		}
		glog.V(1).Infof("sighted %s %q %ddBm", dev.Address, dev.Name, dev.RSSI)
		d.devices[dev.Address] = &dev
		d.order = append(d.order, dev.Address)
	}
	return nil
}

// StopDiscovery cancels a running inquiry and returns the engine to
// idle. It is a no-op when no scan is running.
func (d *Discovery) StopDiscovery() error {
	d.mu.Lock()
	if d.state != Scanning {
		d.mu.Unlock()
		return nil
	}
	d.state = PairingIdle
	d.mu.Unlock()

	_, err := d.s.Do(comm.Command{Text: "INQUIRY OFF"})
	return err
}

// Pair runs the pairing handshake with the given address. It is valid
// from idle, after a failed attempt, or during a scan that has sighted
// the address. Success moves to Paired; a terminal failure moves to
// PairingFailed with the reason recorded.
func (d *Discovery) Pair(addr Address) error {
	d.mu.Lock()
	switch d.state {
	case PairingIdle, PairingFailed:
	case Scanning:
		if _, seen := d.devices[addr]; !seen {
			d.mu.Unlock()
			return &NotFoundError{Address: addr}
		}
	default:
		st := d.state
		d.mu.Unlock()
		return &StateError{Op: "pair", State: st.String()}
	}
	d.state, d.target, d.reason = Pairing, addr, ""
	d.mu.Unlock()

	_, err := d.s.Do(comm.Command{
		Text:    "PAIR " + addr.String(),
		Timeout: time.Duration(d.s.cfg.PairTimeout),
	})

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Pairing || d.target != addr {
		// Forced idle underneath us; don't resurrect state.
		return err
	}
	if err != nil {
		d.state, d.target, d.reason = PairingFailed, Address{}, err.Error()
		return err
	}
	d.state = Paired
	if dev, seen := d.devices[addr]; seen {
		dev.Paired = true
	}
	glog.V(1).Infof("paired with %s", addr)
	return nil
}

// Unpair removes the pairing with the given address. It is only valid
// while Paired with exactly that address.
func (d *Discovery) Unpair(addr Address) error {
	d.mu.Lock()
	if d.state != Paired || d.target != addr {
		st := d.state
		d.mu.Unlock()
		return &StateError{Op: "unpair", State: st.String()}
	}
	d.mu.Unlock()

	if _, err := d.s.Do(comm.Command{Text: "UNPAIR " + addr.String()}); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Paired && d.target == addr {
		d.state, d.target = PairingIdle, Address{}
		if dev, seen := d.devices[addr]; seen {
			dev.Paired = false
		}
	}
	return nil
}

// PairedDevices asks the firmware for its stored pairing list.
func (d *Discovery) PairedDevices() ([]Device, error) {
	res, err := d.s.Do(comm.Command{Text: "LIST"})
	if err != nil {
		return nil, err
	}
	var out []Device
	for _, line := range res.Data {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		addr, err := ParseAddress(fields[0])
		if err != nil {
			continue
		}
		dev := Device{Address: addr, Paired: true}
		if len(fields) > 1 {
			dev.Name = strings.Trim(strings.Join(fields[1:], " "), `"`)
		}
		out = append(out, dev)
	}
	return out, nil
}

func (d *Discovery) forceIdle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state, d.target = PairingIdle, Address{}
}

// Sightings look like:
//
//	INQUIRY F84E1776FDB1 "LinkBuds S" 240404 -61 dBm
//
// with the quoted name optional, and occasionally a PENDING glued in
// front by the firmware's line buffering.
var sightingRE = regexp.MustCompile(`^INQUIRY\s+([0-9A-Fa-f]{12})(?:\s+"([^"]*)")?(?:\s+[0-9A-Fa-f]+\s+(-?\d+))?`)

func parseSighting(line string) (Device, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "PENDING"))
	if !strings.HasPrefix(line, "INQUIRY ") {
		return Device{}, false
	}
	m := sightingRE.FindStringSubmatch(line)
	if m == nil {
		return Device{}, false
	}
	addr, err := ParseAddress(m[1])
	if err != nil {
		return Device{}, false
	}
	dev := Device{Address: addr, Name: m[2]}
	if m[3] != "" {
		dev.RSSI, _ = strconv.Atoi(m[3])
	}
	return dev, true
}
