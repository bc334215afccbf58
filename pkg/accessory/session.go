package accessory

import (
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/atsaudio/atsbt/pkg/comm"
)

// SessionState is the lifecycle state of the accessory link itself,
// not of any paired audio device.
type SessionState int

const (
	// Disconnected means no serial link is held.
	Disconnected SessionState = iota
	// Connecting means the link is being opened and probed.
	Connecting
	// Connected means the accessory answered the probe and commands
	// may be issued.
	Connected
	// Faulted means repeated command failures broke the link. The
	// state is terminal until an explicit Disconnect/Connect cycle.
	Faulted
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// DialFunc opens a transport to the accessory.
type DialFunc func() (comm.Transport, error)

// Session owns the serial connection lifecycle and the command channel
// every other component funnels through.
type Session struct {
	cfg  *Config
	dial DialFunc

	disc  *Discovery
	audio *Audio
	media *Media

	mu        sync.Mutex
	state     SessionState
	transport comm.Transport
	channel   *comm.Channel
	failures  int
	localAddr Address
}

// NewSession creates a session for the configured port. An empty port
// autodetects the accessory by probing every enumerated candidate.
func NewSession(cfg *Config) *Session {
	s := &Session{cfg: cfg}
	s.dial = s.dialSerial
	s.disc = newDiscovery(s)
	s.audio = newAudio(s)
	s.media = newMedia(s)
	return s
}

// NewSessionWith creates a session using a custom dialer. Tests and
// embedders supply their own transport this way.
func NewSessionWith(cfg *Config, dial DialFunc) *Session {
	s := NewSession(cfg)
	s.dial = dial
	return s
}

func (s *Session) dialSerial() (comm.Transport, error) {
	if s.cfg.Port != "" {
		return comm.Open(s.cfg.Port, s.cfg.Baud)
	}
	tr, name, err := comm.Detector{
		Probe:   s.cfg.ProbeCommand,
		Baud:    s.cfg.Baud,
		Timeout: time.Duration(s.cfg.ProbeTimeout),
	}.Detect()
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("using autodetected port %s", name)
	return tr, nil
}

// Config returns the session configuration.
func (s *Session) Config() *Config {
	return s.cfg
}

// Discovery returns the scan and pairing engine.
func (s *Session) Discovery() *Discovery {
	return s.disc
}

// Audio returns the A2DP connection manager.
func (s *Session) Audio() *Audio {
	return s.audio
}

// Media returns the playback control facade.
func (s *Session) Media() *Media {
	return s.media
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens the transport and probes the accessory. The session
// only becomes Connected once the probe gets a terminal success; any
// failure rolls back to Disconnected and propagates.
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.state != Disconnected {
		st := s.state
		s.mu.Unlock()
		return &StateError{Op: "connect", State: st.String()}
	}
	s.state = Connecting
	s.mu.Unlock()

	tr, err := s.dial()
	if err != nil {
		s.setState(Disconnected)
		return err
	}
	ch := comm.NewChannel(tr, s.cfg.Tokens)
	ch.Timeout = time.Duration(s.cfg.CommandTimeout)
	ch.Retries = s.cfg.Retries
	ch.Settle = time.Duration(s.cfg.SettleDelay)

	if _, err := ch.Do(comm.Command{Text: s.cfg.ProbeCommand}); err != nil {
		tr.Close()
		s.setState(Disconnected)
		return err
	}

	s.mu.Lock()
	s.transport, s.channel = tr, ch
	s.state = Connected
	s.failures = 0
	s.mu.Unlock()
	glog.V(1).Info("session connected")
	return nil
}

// Disconnect tears down the transport and forces the discovery and
// audio machines back to idle. Calling it while already Disconnected
// is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return nil
	}
	tr := s.transport
	s.transport, s.channel = nil, nil
	s.state = Disconnected
	s.localAddr = Address{}
	s.mu.Unlock()

	if tr != nil {
		tr.Close()
	}
	s.disc.forceIdle()
	s.audio.forceIdle()
	glog.V(1).Info("session disconnected")
	return nil
}

// Do issues one command through the channel. It requires a Connected
// session, and trips the session to Faulted after FaultThreshold
// consecutive timeouts or port errors.
func (s *Session) Do(cmd comm.Command) (comm.Result, error) {
	s.mu.Lock()
	if s.state != Connected {
		st := s.state
		s.mu.Unlock()
		return comm.Result{}, &StateError{Op: "command", State: st.String()}
	}
	ch := s.channel
	s.mu.Unlock()

	res, err := ch.Do(cmd)
	s.noteResult(err)
	return res, err
}

// noteResult tracks consecutive link failures. A rejection still
// proves the link is alive and resets the counter.
func (s *Session) noteResult(err error) {
	s.mu.Lock()
	var rejected *comm.CommandError
	if err == nil || errors.As(err, &rejected) {
		s.failures = 0
		s.mu.Unlock()
		return
	}
	s.failures++
	faulted := s.failures >= s.cfg.FaultThreshold && s.state == Connected
	if faulted {
		s.state = Faulted
	}
	s.mu.Unlock()

	if faulted {
		glog.Errorf("session faulted after %d consecutive command failures", s.cfg.FaultThreshold)
		s.disc.forceIdle()
		s.audio.forceIdle()
	}
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Reset restarts the accessory firmware and reestablishes the session.
func (s *Session) Reset() error {
	if _, err := s.Do(comm.Command{Text: "RESET", Retries: comm.NoRetry}); err != nil {
		// The firmware reboots before acknowledging, so a timeout here
		// is expected.
		if !errors.Is(err, comm.ErrCommandTimeout) {
			return err
		}
	}
	s.Disconnect()
	time.Sleep(time.Duration(s.cfg.ResetDelay))
	return s.Connect()
}
