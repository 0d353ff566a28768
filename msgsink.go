package fchat

import (
	"context"
	"sync"
)

// sinkEntry pairs a delivered message with its completion signal. A nil
// message is the disposal sentinel; the sentinel carries no signal and
// re-queues itself so late readers also observe termination.
type sinkEntry struct {
	msg  *Handleable
	done chan struct{}
}

// IncomingMessageSink is a disposable per-bracket relay between the dispatch
// loop and one bracket operation. The dispatch loop delivers messages in
// wire order and blocks until the bracket has finished with each one, which
// is what keeps sink callbacks strictly ordered even while a bracket is
// draining responses.
//
// Once disposed, ReadMessage fails with ErrConnectionEnded and pending
// deliveries unblock without being consumed.
type IncomingMessageSink struct {
	buf    *AsyncBuffer[sinkEntry]
	closed chan struct{}

	mu       sync.Mutex
	disposed bool
	pending  chan struct{} // completion of the last message handed to the reader
}

// NewIncomingMessageSink creates an open sink.
func NewIncomingMessageSink() *IncomingMessageSink {
	return &IncomingMessageSink{
		buf:    NewAsyncBuffer[sinkEntry](),
		closed: make(chan struct{}),
	}
}

// Deliver offers a message to the sink's reader and blocks until the reader
// has finished processing it (signalled by its next ReadMessage call), the
// sink is disposed, or ctx is cancelled. Delivery to a disposed sink is a
// no-op.
func (s *IncomingMessageSink) Deliver(ctx context.Context, m *Handleable) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	entry := sinkEntry{msg: m, done: make(chan struct{})}
	s.buf.Enqueue(entry)
	s.mu.Unlock()

	select {
	case <-entry.done:
	case <-s.closed:
	case <-ctx.Done():
	}
}

// ReadMessage returns the next delivered message, blocking until one
// arrives, the sink is disposed, or ctx is cancelled. Calling ReadMessage
// also signals completion of the previously returned message, releasing the
// dispatch loop to process the next wire frame.
func (s *IncomingMessageSink) ReadMessage(ctx context.Context) (*Handleable, error) {
	s.mu.Lock()
	s.releasePendingLocked()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrConnectionEnded
	}
	s.mu.Unlock()

	entry, err := s.buf.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if entry.msg == nil {
		// Disposal sentinel. Re-queue it so any other reader also
		// observes termination.
		s.buf.Enqueue(entry)
		return nil, ErrConnectionEnded
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrConnectionEnded
	}
	s.pending = entry.done
	s.mu.Unlock()
	return entry.msg, nil
}

// Dispose terminates the sink. Idempotent: repeated calls have the effect
// of exactly one. Pending deliveries unblock and subsequent reads fail with
// ErrConnectionEnded.
func (s *IncomingMessageSink) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.releasePendingLocked()
	close(s.closed)
	s.buf.Enqueue(sinkEntry{})
	s.mu.Unlock()
}

// Disposed reports whether the sink has been disposed.
func (s *IncomingMessageSink) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// releasePendingLocked completes the previously read message, if any.
// Caller must hold s.mu.
func (s *IncomingMessageSink) releasePendingLocked() {
	if s.pending != nil {
		close(s.pending)
		s.pending = nil
	}
}
