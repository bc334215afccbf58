package accessory

import (
	"strings"

	"github.com/atsaudio/atsbt/pkg/comm"
)

// DeviceInfo is a read-only snapshot of the accessory itself,
// assembled from several command round-trips.
type DeviceInfo struct {
	Address  Address
	Name     string
	Firmware string
	Status   string
}

// IsPairedHost reports whether the status line shows an active link to
// a Bluetooth host.
func (i DeviceInfo) IsPairedHost() bool {
	status := strings.ToUpper(i.Status)
	return strings.Contains(status, "CONNECTION") || strings.Contains(status, "PAIRED")
}

// IsDiscoverable reports whether the accessory is in discoverable mode.
func (i DeviceInfo) IsDiscoverable() bool {
	return strings.Contains(strings.ToUpper(i.Status), "DISCOVERABLE")
}

// Info assembles the accessory snapshot. The local address is cached
// for the life of the session; the rest is read fresh.
func (s *Session) Info() (DeviceInfo, error) {
	var info DeviceInfo

	addr, err := s.LocalAddress()
	if err != nil {
		return info, err
	}
	info.Address = addr

	res, err := s.Do(comm.Command{Text: "GET NAME"})
	if err != nil {
		return info, err
	}
	info.Name = fieldValue(res, "NAME")

	if res, err = s.Do(comm.Command{Text: "VERSION"}); err != nil {
		return info, err
	}
	info.Firmware = flatten(res)

	if res, err = s.Do(comm.Command{Text: "STATUS"}); err != nil {
		return info, err
	}
	info.Status = flatten(res)
	return info, nil
}

// LocalAddress returns the accessory's own Bluetooth address.
func (s *Session) LocalAddress() (Address, error) {
	s.mu.Lock()
	cached := s.localAddr
	s.mu.Unlock()
	if !cached.IsZero() {
		return cached, nil
	}

	res, err := s.Do(comm.Command{Text: "GET LOCAL_ADDR"})
	if err != nil {
		return Address{}, err
	}
	addr, err := ParseAddress(fieldValue(res, "LOCAL_ADDR"))
	if err != nil {
		return Address{}, err
	}
	s.mu.Lock()
	s.localAddr = addr
	s.mu.Unlock()
	return addr, nil
}

// fieldValue extracts the value of a KEY=value (or "KEY value")
// response, searching the terminal payload and the data lines. Some
// firmware revisions glue a trailing OK onto the value without a line
// ending; that is stripped here.
func fieldValue(res comm.Result, key string) string {
	lines := append([]string{res.Payload}, res.Data...)
	for _, line := range lines {
		if !strings.Contains(line, key) {
			continue
		}
		var value string
		if _, after, found := strings.Cut(line, "="); found {
			value = after
		} else if fields := strings.Fields(line); len(fields) >= 2 {
			value = fields[len(fields)-1]
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "OK"))
		if value != "" {
			return value
		}
	}
	return ""
}

// flatten joins data lines and the terminal payload into one display
// string.
func flatten(res comm.Result) string {
	parts := make([]string, 0, len(res.Data)+1)
	parts = append(parts, res.Data...)
	if res.Payload != "" {
		parts = append(parts, res.Payload)
	}
	return strings.Join(parts, "\n")
}
