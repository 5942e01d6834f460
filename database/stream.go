package database

import (
	"context"
	"sync/atomic"

	"github.com/cheggaaa/mb/v3"
)

// ErrStreamClosed is returned by Stream.WaitOne once the stream completed.
// Completion is not a failure: deleted observed objects and closed handles
// end their streams this way.
var ErrStreamClosed = mb.ErrClosed

// Stream is an asynchronous sequence of notification items with a bounded
// buffer. Producers block up to the configured publish timeout when the
// consumer lags; items are never reordered or silently dropped.
type Stream[T any] struct {
	q       *mb.MB[T]
	closed  atomic.Bool
	onClose func()
}

func newStream[T any](size int) *Stream[T] {
	return &Stream[T]{q: mb.New[T](size)}
}

// WaitOne blocks until the next item, ctx cancellation or completion
// (ErrStreamClosed).
func (s *Stream[T]) WaitOne(ctx context.Context) (T, error) {
	return s.q.WaitOne(ctx)
}

// Close completes the stream and releases whatever the producer registered
// for it (engine callbacks, subscriber slots). Idempotent.
func (s *Stream[T]) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	_ = s.q.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// add publishes one item; mb.ErrClosed when the consumer already closed.
func (s *Stream[T]) add(ctx context.Context, v T) error {
	return s.q.Add(ctx, v)
}
