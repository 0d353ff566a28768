package fchat

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Mutex is a single-holder mutual exclusion primitive with context-aware
// acquisition. It serializes bracketed sends so the start/payload/stop
// marker triplet of one bracket is never interleaved with another's.
//
// Built on a weight-1 semaphore rather than sync.Mutex so a caller blocked
// in Acquire can be cancelled.
type Mutex struct {
	sem *semaphore.Weighted
}

// NewMutex creates an unlocked mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the mutex is held or ctx is cancelled. On
// cancellation the mutex is not held and Release must not be called.
func (m *Mutex) Acquire(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// TryAcquire acquires the mutex without blocking.
func (m *Mutex) TryAcquire() bool {
	return m.sem.TryAcquire(1)
}

// Release releases the mutex. Calling Release without holding the mutex is
// a programming error and panics.
func (m *Mutex) Release() {
	m.sem.Release(1)
}
