// Package politeness provides the fixed delays placed between requests to the same service.
package politeness

import (
	"context"
	"sync"
	"time"
)

// Pauser waits between operations.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Timer sleeps for the full delay unless ctx is canceled first.
type Timer struct{}

// Pause blocks for delay or until ctx is done.
func (Timer) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Recorder returns immediately and remembers the requested delays.
type Recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Pause records delay.
func (r *Recorder) Pause(_ context.Context, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, delay)
}

// Delays returns the recorded delays in call order.
func (r *Recorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}
