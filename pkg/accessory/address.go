package accessory

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a canonical 6-byte Bluetooth device address.
type Address [6]byte

// ParseAddress accepts both the colon-hex display form
// (00:11:22:33:44:55) and the bare 12-digit form the firmware emits in
// scan sightings (F84E1776FDB1).
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	if len(s) != 12 {
		return a, fmt.Errorf("invalid address %q", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q", s)
	}
	copy(a[:], b)
	return a, nil
}

// String returns the colon-hex display form.
func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// MarshalJSON encodes the address in colon-hex form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// IsZero indicates an unset address.
func (a Address) IsZero() bool {
	return a == Address{}
}
