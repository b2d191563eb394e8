package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLimiter(rate float64, burst int) *Limiter {
	return New(Options{RatePerSec: rate, Burst: burst}, zerolog.Nop())
}

func TestAllowHonorsBurst(t *testing.T) {
	l := newTestLimiter(1, 3)
	defer l.Close()

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("call %d should be inside the burst", i+1)
		}
	}
	if l.Allow() {
		t.Fatal("burst exhausted; Allow should reject")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := newTestLimiter(100, 1)
	defer l.Close()

	if !l.Allow() {
		t.Fatal("first token should be available")
	}
	if l.Allow() {
		t.Fatal("bucket should be empty immediately after")
	}

	time.Sleep(30 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("bucket should refill from elapsed time")
	}
}

func TestWaitGrantsImmediatelyWithinBurst(t *testing.T) {
	l := newTestLimiter(1, 1)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait should grant the burst token: %v", err)
	}
}

func TestWaitServesArrivalOrder(t *testing.T) {
	l := newTestLimiter(100, 1)
	defer l.Close()

	// Exhaust the burst so every waiter queues.
	if !l.Allow() {
		t.Fatal("expected burst token")
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := l.Wait(context.Background()); err != nil {
				t.Errorf("waiter %d failed: %v", id, err)
				return
			}
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}(i)
		// Stagger enqueues well past scheduler jitter so arrival
		// order is unambiguous.
		time.Sleep(25 * time.Millisecond)
	}
	wg.Wait()

	if len(order) != 3 {
		t.Fatalf("expected 3 grants, got %d", len(order))
	}
	for i, id := range order {
		if id != i+1 {
			t.Fatalf("grants must follow arrival order, got %v", order)
		}
	}
}

func TestWaitNoTokenDoubleSpend(t *testing.T) {
	l := newTestLimiter(100, 1)
	defer l.Close()

	const waiters = 5
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Wait(context.Background()); err != nil {
				t.Errorf("Wait failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// One burst token plus four refills at 10ms apiece. If two
	// waiters ever shared a token this finishes early.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("five grants finished in %v; tokens were double-spent", elapsed)
	}
}

func TestWaitContextCancellation(t *testing.T) {
	l := newTestLimiter(0.5, 1)
	defer l.Close()

	if !l.Allow() {
		t.Fatal("expected burst token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if err == nil {
		t.Fatal("Wait should fail when the context ends first")
	}
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestWaitAfterClose(t *testing.T) {
	l := newTestLimiter(1, 1)
	l.Close()

	if err := l.Wait(context.Background()); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCancelledWaiterDoesNotConsumeToken(t *testing.T) {
	l := newTestLimiter(0.5, 1)
	defer l.Close()

	if !l.Allow() {
		t.Fatal("expected burst token")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("cancelled waiter should not be granted")
	}

	// The cancelled waiter must have left the queue without spending
	// anything: the next refill goes to a live caller.
	time.Sleep(2100 * time.Millisecond)
	if !l.Allow() {
		t.Fatal("refilled token should be available to a live caller")
	}
}
