package accessory

import (
	"regexp"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/atsaudio/atsbt/pkg/comm"
	fx "github.com/atsaudio/atsbt/pkg/framework"
)

// AudioState is the state of the A2DP stream lifecycle.
type AudioState int

const (
	// AudioIdle means no stream exists.
	AudioIdle AudioState = iota
	// AudioConnecting means stream establishment is in flight.
	AudioConnecting
	// Streaming means the A2DP stream is up.
	Streaming
	// Disconnecting means stream teardown is in flight.
	Disconnecting
)

// String returns the state name.
func (s AudioState) String() string {
	switch s {
	case AudioIdle:
		return "idle"
	case AudioConnecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Disconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Link IDs reported by stock firmware when OPEN_OK omits one.
const (
	defaultA2DPLink  = "10"
	defaultAVRCPLink = "11"
)

// Audio manages the A2DP stream to a paired device, plus the AVRCP
// control channel that rides along with it.
type Audio struct {
	s *Session

	mu        sync.Mutex
	state     AudioState
	addr      Address
	a2dpLink  string
	avrcpLink string
}

func newAudio(s *Session) *Audio {
	return &Audio{s: s}
}

// State returns the audio state and the stream's target address.
func (a *Audio) State() (AudioState, Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.addr
}

// Connect establishes the A2DP stream to addr. The device must be
// currently paired under exactly that address; streaming to an
// unpaired device is refused without touching the wire. The AVRCP
// control channel is opened best-effort afterwards: media control
// falls back to link-less commands if it fails.
func (a *Audio) Connect(addr Address) error {
	if ps, target := a.s.disc.State(); ps != Paired || target != addr {
		return &StateError{Op: "audio connect", State: ps.String()}
	}
	a.mu.Lock()
	if a.state != AudioIdle {
		st := a.state
		a.mu.Unlock()
		return &StateError{Op: "audio connect", State: st.String()}
	}
	a.state, a.addr = AudioConnecting, addr
	a.mu.Unlock()

	timeout := time.Duration(a.s.cfg.AudioOpenTimeout)
	res, err := a.s.Do(comm.Command{Text: "OPEN " + addr.String() + " A2DP", Timeout: timeout})
	if err != nil {
		a.mu.Lock()
		if a.state == AudioConnecting {
			a.state, a.addr = AudioIdle, Address{}
		}
		a.mu.Unlock()
		return err
	}
	a2dp := linkID(res, defaultA2DPLink)

	var avrcp string
	if res, err := a.s.Do(comm.Command{Text: "OPEN " + addr.String() + " AVRCP", Timeout: timeout}); err != nil {
		glog.Warningf("AVRCP channel unavailable: %v", err)
	} else {
		avrcp = linkID(res, defaultAVRCPLink)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AudioConnecting {
		return &StateError{Op: "audio connect", State: a.state.String()}
	}
	a.state, a.a2dpLink, a.avrcpLink = Streaming, a2dp, avrcp
	glog.V(1).Infof("streaming to %s (a2dp link %s)", addr, a2dp)
	return nil
}

// Disconnect tears the stream down. It is a no-op from idle.
func (a *Audio) Disconnect() error {
	a.mu.Lock()
	if a.state == AudioIdle {
		a.mu.Unlock()
		return nil
	}
	if a.state != Streaming {
		st := a.state
		a.mu.Unlock()
		return &StateError{Op: "audio disconnect", State: st.String()}
	}
	a.state = Disconnecting
	links := []string{a.a2dpLink, a.avrcpLink}
	a.mu.Unlock()

	var errs fx.AggregatedError
	for _, link := range links {
		if link == "" {
			continue
		}
		if _, err := a.s.Do(comm.Command{Text: "CLOSE " + link}); err != nil {
			errs.Add(err)
		}
	}

	a.mu.Lock()
	a.state, a.addr = AudioIdle, Address{}
	a.a2dpLink, a.avrcpLink = "", ""
	a.mu.Unlock()
	return errs.Aggregate()
}

func (a *Audio) forceIdle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state, a.addr = AudioIdle, Address{}
	a.a2dpLink, a.avrcpLink = "", ""
}

// streamingLinks returns the AVRCP link when a stream is up.
func (a *Audio) streamingLinks() (avrcp string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.avrcpLink, a.state == Streaming
}

var linkIDRE = regexp.MustCompile(`\d+`)

// linkID extracts the numeric link ID from an OPEN_OK payload,
// falling back to the firmware default when absent.
func linkID(res comm.Result, fallback string) string {
	if m := linkIDRE.FindString(res.Payload); m != "" {
		return m
	}
	return fallback
}
