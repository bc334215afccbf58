package accessory

import (
	"fmt"

	"github.com/atsaudio/atsbt/pkg/comm"
)

// Media is the stateless playback control facade. Every call checks
// that an audio stream is established and fails fast with
// ErrNotStreaming before anything reaches the wire.
type Media struct {
	s *Session
	a *Audio
}

func newMedia(s *Session) *Media {
	return &Media{s: s, a: s.audio}
}

// Play starts or resumes playback.
func (m *Media) Play() error {
	return m.transport("PLAY")
}

// Pause pauses playback.
func (m *Media) Pause() error {
	return m.transport("PAUSE")
}

// Stop stops playback.
func (m *Media) Stop() error {
	return m.transport("STOP")
}

// Next skips to the next track.
func (m *Media) Next() error {
	return m.avrcp("FORWARD")
}

// Previous returns to the previous track.
func (m *Media) Previous() error {
	return m.avrcp("BACKWARD")
}

// VolumeUp raises the remote volume one step.
func (m *Media) VolumeUp() error {
	return m.avrcp("VOL_UP")
}

// VolumeDown lowers the remote volume one step.
func (m *Media) VolumeDown() error {
	return m.avrcp("VOL_DOWN")
}

// SetVolume sets the absolute remote volume. Levels outside the
// firmware's 0..127 range are clamped.
func (m *Media) SetVolume(level int) error {
	avrcp, streaming := m.a.streamingLinks()
	if !streaming {
		return ErrNotStreaming
	}
	if level < 0 {
		level = 0
	} else if level > 127 {
		level = 127
	}
	if avrcp == "" {
		avrcp = defaultAVRCPLink
	}
	_, err := m.s.Do(comm.Command{Text: fmt.Sprintf("VOLUME %s %d", avrcp, level)})
	return err
}

// transport sends a playback transport action, preferring the
// link-addressed MUSIC form when an AVRCP channel is open.
func (m *Media) transport(action string) error {
	avrcp, streaming := m.a.streamingLinks()
	if !streaming {
		return ErrNotStreaming
	}
	text := "AVRCP " + action
	if avrcp != "" {
		text = fmt.Sprintf("MUSIC %s %s", avrcp, action)
	}
	_, err := m.s.Do(comm.Command{Text: text})
	return err
}

// avrcp sends a link-less AVRCP pass-through action.
func (m *Media) avrcp(action string) error {
	if _, streaming := m.a.streamingLinks(); !streaming {
		return ErrNotStreaming
	}
	_, err := m.s.Do(comm.Command{Text: "AVRCP " + action})
	return err
}
