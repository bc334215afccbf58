package framework

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollerRuns(t *testing.T) {
	var polls int32
	p := NewPoller(time.Millisecond, func() error {
		atomic.AddInt32(&polls, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Greater(t, atomic.LoadInt32(&polls), int32(1))
}

func TestPollerTriggerNext(t *testing.T) {
	polled := make(chan struct{}, 1)
	p := NewPoller(time.Hour, func() error {
		select {
		case polled <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.TriggerNext()
	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("trigger did not run a poll step")
	}
}

func TestRunnerAggregatesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRunnerWith(ctx).Go(RunFunc(func(ctx context.Context) error {
		return ctx.Err()
	})).Wait()
	require.NoError(t, err, "cancellation must not count as failure")
}
