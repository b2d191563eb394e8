// Package ratelimit provides the token bucket that paces outbound
// marketplace requests. Tokens refill continuously from elapsed
// wall-clock time up to a burst cap. Callers either poll with Allow or
// queue with Wait; queued callers are served strictly in arrival order
// by a single drain goroutine, so only one check-consume-handoff step
// is ever in flight and two waiters can never spend the same token.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Wait after the limiter has been shut down.
var ErrClosed = errors.New("ratelimit: limiter closed")

const defaultQueueDepth = 256

// Options tune the limiter.
type Options struct {
	// RatePerSec is the continuous refill rate.
	RatePerSec float64
	// Burst caps accumulated tokens. Values below 1 are raised to 1.
	Burst int
	// QueueDepth bounds the FIFO waiter queue. Enqueueing beyond it
	// blocks the caller, preserving arrival order.
	QueueDepth int
}

type waiter struct {
	ctx   context.Context
	ready chan struct{}
}

// Limiter is a token bucket with a FIFO waiter queue.
type Limiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time

	queue chan *waiter
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	logger zerolog.Logger
}

// New constructs a Limiter and starts its drain goroutine. Callers
// must Close it when finished.
func New(opts Options, logger zerolog.Logger) *Limiter {
	if opts.RatePerSec <= 0 {
		panic("ratelimit: rate must be positive")
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}

	l := &Limiter{
		rate:   opts.RatePerSec,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
		queue:  make(chan *waiter, depth),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
	go l.drain()
	return l
}

// Allow reports whether a token is immediately available, consuming
// one when it is. It never blocks.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(time.Now())
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is granted in FIFO arrival order, the
// context ends, or the limiter closes. A waiter whose context ends
// while queued gives up its place without consuming a token.
func (l *Limiter) Wait(ctx context.Context) error {
	w := &waiter{ctx: ctx, ready: make(chan struct{})}

	select {
	case l.queue <- w:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrClosed
	}

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrClosed
	}
}

// Close stops the drain goroutine and releases queued waiters with
// ErrClosed.
func (l *Limiter) Close() {
	l.once.Do(func() {
		close(l.stop)
		<-l.done
	})
}

// drain is the single owner of the grant step. It serves waiters one
// at a time: skip the cancelled, sleep until the bucket holds a full
// token, consume it, hand off, move to the next.
func (l *Limiter) drain() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case w := <-l.queue:
			l.serve(w)
		}
	}
}

func (l *Limiter) serve(w *waiter) {
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-l.stop:
			return
		default:
		}

		delay, granted := l.takeToken()
		if granted {
			close(w.ready)
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-w.ctx.Done():
			timer.Stop()
			return
		case <-l.stop:
			timer.Stop()
			return
		}
	}
}

// takeToken consumes a token when one is available, otherwise returns
// how long until the bucket holds a full token.
func (l *Limiter) takeToken() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(time.Now())
	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}
	missing := 1 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second)), false
}

func (l *Limiter) refillLocked(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
}
