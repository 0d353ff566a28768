package fchat

import (
	"context"
	"sync"
)

// AsyncBuffer is an unbounded single-producer/single-consumer FIFO queue
// with context-cancellable dequeue. Enqueue never blocks; Dequeue blocks
// until an item arrives or the context is cancelled.
//
// Ordering is FIFO by construction. The buffer itself is safe for
// concurrent use, but the intended shape is one producer goroutine (the
// transport read pump) and one consumer goroutine (the dispatch loop).
type AsyncBuffer[T any] struct {
	mu    sync.Mutex
	items []T
	avail chan struct{} // capacity 1, signals a non-empty buffer
}

// NewAsyncBuffer creates an empty buffer.
func NewAsyncBuffer[T any]() *AsyncBuffer[T] {
	return &AsyncBuffer[T]{
		avail: make(chan struct{}, 1),
	}
}

// Enqueue appends an item. Never blocks.
func (b *AsyncBuffer[T]) Enqueue(item T) {
	b.mu.Lock()
	b.items = append(b.items, item)
	b.mu.Unlock()

	select {
	case b.avail <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest item, blocking until one is
// available or ctx is cancelled.
func (b *AsyncBuffer[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		b.mu.Lock()
		if len(b.items) > 0 {
			item := b.items[0]
			b.items = b.items[1:]
			if len(b.items) > 0 {
				// Keep the signal armed for the remaining items.
				select {
				case b.avail <- struct{}{}:
				default:
				}
			}
			b.mu.Unlock()
			return item, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-b.avail:
		}
	}
}

// TryDequeue removes and returns the oldest item without blocking.
func (b *AsyncBuffer[T]) TryDequeue() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}
	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

// Len returns the number of buffered items.
func (b *AsyncBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
