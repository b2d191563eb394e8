package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunInvokesSweepUntilCancelled(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan time.Time, 1)

	go func() {
		_ = s.Run(ctx, func(ctx context.Context, sweep time.Time) error {
			select {
			case fired <- sweep:
			default:
			}
			return nil
		})
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("sweep function was never invoked")
	}
	cancel()
}

func TestNewRejectsZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("zero interval must panic at construction")
		}
	}()
	New(Options{}, zerolog.Nop())
}
