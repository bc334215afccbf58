// Package accessory drives the ATS-BT Bluetooth audio test accessory.
package accessory

// A Session owns the serial link to the accessory and the command
// channel on top of it. Discovery (scan and pairing), Audio (A2DP
// stream lifecycle) and Media (AVRCP playback control) are sub-state
// machines scoped to one Session; they are only meaningful while the
// session is connected, and a disconnect forces them back to idle.
