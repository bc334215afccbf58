package comm

import (
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Command timing defaults, per the IDC777 firmware requirements.
const (
	// DefaultCommandTimeout bounds one wait for a terminal response.
	DefaultCommandTimeout = 2 * time.Second
	// DefaultRetries is how many times a timed-out command is resent.
	DefaultRetries = 2
	// DefaultSettleDelay is the mandatory gap between commands.
	DefaultSettleDelay = 150 * time.Millisecond
)

// NoRetry disables the retry budget for a single command.
const NoRetry = -1

// Command is one outbound exchange. Zero Timeout and Retries take the
// channel defaults. A Command is consumed once and not mutated.
type Command struct {
	Text    string
	Timeout time.Duration
	Retries int
}

// Result carries the terminal payload and accumulated data lines of a
// completed exchange.
type Result struct {
	Payload string
	Data    []string
}

// Channel serializes command exchanges over a Transport. At most one
// command is in flight at any time; callers queue on the channel lock
// in submission order. This is the single serialization point for the
// wire, every component above issues commands through it.
type Channel struct {
	transport Transport
	tokens    Tokens

	// Timeout, Retries and Settle override the package defaults when
	// non-zero. They apply to commands that don't carry their own.
	Timeout time.Duration
	Retries int
	Settle  time.Duration

	mu sync.Mutex
}

// NewChannel wraps a transport with the given terminal tokens.
func NewChannel(tr Transport, tokens Tokens) *Channel {
	return &Channel{transport: tr, tokens: tokens}
}

// Do sends the command and blocks until a terminal response, an error,
// or exhaustion of the retry budget. Only timeouts are retried, by
// resending the same command; rejections and port errors surface
// immediately.
func (c *Channel) Do(cmd Command) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := cmd.Timeout
	if timeout == 0 {
		if timeout = c.Timeout; timeout == 0 {
			timeout = DefaultCommandTimeout
		}
	}
	retries := cmd.Retries
	if retries == 0 {
		if retries = c.Retries; retries == 0 {
			retries = DefaultRetries
		}
	}
	if retries < 0 {
		retries = 0
	}

	var res Result
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			glog.V(2).Infof("retry %d/%d: %s", attempt, retries, cmd.Text)
		}
		res, err = c.exchange(cmd.Text, timeout)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		c.settle()
		return res, err
	}
	c.settle()
	return Result{}, ErrCommandTimeout
}

func (c *Channel) exchange(text string, timeout time.Duration) (Result, error) {
	c.drain()
	if err := c.transport.WriteLine(text); err != nil {
		return Result{}, err
	}
	deadline := time.Now().Add(timeout)
	var res Result
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{}, ErrTimeout
		}
		line, err := c.transport.ReadLine(remaining)
		if err != nil {
			return Result{}, err
		}
		ev, ok := c.tokens.Classify(line)
		if !ok {
			continue
		}
		switch ev.Kind {
		case EventData:
			res.Data = append(res.Data, ev.Text)
		case EventOK:
			res.Payload = ev.Text
			return res, nil
		case EventError:
			return res, &CommandError{Message: ev.Text}
		}
	}
}

// drain discards stale buffered lines so a response can't be matched
// against the wrong command.
func (c *Channel) drain() {
	for {
		line, err := c.transport.ReadLine(0)
		if err != nil {
			return
		}
		glog.V(3).Infof("discard stale line: %q", line)
	}
}

func (c *Channel) settle() {
	delay := c.Settle
	if delay == 0 {
		delay = DefaultSettleDelay
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}
