package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// PollFunc is one cooperative poll step.
type PollFunc func() error

// Poller invokes a poll step at a fixed interval until its context is
// cancelled. Step errors are logged, not fatal: a poll competes for a
// shared resource and may lose a round.
type Poller struct {
	Interval time.Duration
	Poll     PollFunc

	wakeCh chan struct{}
}

// NewPoller creates a poller with the given interval and step.
func NewPoller(interval time.Duration, poll PollFunc) *Poller {
	return &Poller{
		Interval: interval,
		Poll:     poll,
		wakeCh:   make(chan struct{}, 1),
	}
}

// TriggerNext schedules an immediate extra poll step.
func (p *Poller) TriggerNext() {
	if p.wakeCh == nil {
		return
	}
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (p *Poller) Run(ctx context.Context) error {
	if p.wakeCh == nil {
		p.wakeCh = make(chan struct{}, 1)
	}
	interval := p.Interval
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-p.wakeCh:
		}
		if err := p.Poll(); err != nil {
			glog.Errorf("poll error: %v", err)
		}
	}
}
