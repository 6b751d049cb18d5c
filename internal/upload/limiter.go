package upload

// limiter.go bounds how many document uploads run in parallel for one
// submission. The cap is a deliberate addition over the original unbounded
// fan-out; the default lives in config (UPLOAD_CONCURRENCY).

import (
	"context"
)

// Limiter restricts parallel uploads using a semaphore channel.
type Limiter struct {
	semaphore chan struct{}
}

// NewLimiter creates a limiter allowing at most maxConcurrent simultaneous
// holders.
func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Limiter{semaphore: make(chan struct{}, maxConcurrent)}
}

// Acquire blocks until a slot is free or ctx is done.
// The caller MUST call Release() when done (use defer).
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (l *Limiter) Release() {
	select {
	case <-l.semaphore:
	default:
	}
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}
