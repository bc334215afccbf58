package comm

import "strings"

// EventKind classifies a response line.
type EventKind int

const (
	// EventData is a non-terminal payload line.
	EventData EventKind = iota
	// EventOK is a terminal success line.
	EventOK
	// EventError is a terminal error line.
	EventError
)

// Event is one classified response line.
type Event struct {
	Kind EventKind
	Text string
}

// Tokens holds the terminal token strings recognized on response lines.
// The exact strings are firmware-specific and therefore configurable.
type Tokens struct {
	OK    string `yaml:"ok"`
	Error string `yaml:"error"`
}

// DefaultTokens returns the tokens used by stock ATS-BT firmware.
func DefaultTokens() Tokens {
	return Tokens{OK: "OK", Error: "ERROR"}
}

// EncodeCommand frames a command for the wire. The firmware expects a
// bare CR terminator.
func EncodeCommand(cmd string) []byte {
	return []byte(cmd + "\r")
}

// Classify maps a raw response line to an Event. Empty lines are
// discarded and reported with ok=false. The leading token decides the
// kind: the success or error token, including firmware variants like
// OPEN_OK and PAIR_OK, terminates an exchange; everything else is data.
func (t Tokens) Classify(line string) (ev Event, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}
	head, rest, _ := strings.Cut(line, " ")
	switch {
	case head == t.OK || strings.HasSuffix(head, "_"+t.OK):
		return Event{Kind: EventOK, Text: strings.TrimSpace(rest)}, true
	case head == t.Error || strings.HasSuffix(head, "_"+t.Error):
		return Event{Kind: EventError, Text: strings.TrimSpace(rest)}, true
	}
	return Event{Kind: EventData, Text: line}, true
}
