package batching

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Future is the handle for one submitted request.
type Future[Out any] struct {
	id   uuid.UUID
	done chan struct{}
	once sync.Once
	val  Out
	err  error
}

func newFuture[Out any]() *Future[Out] {
	return &Future[Out]{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
}

// ID returns the request identifier.
func (f *Future[Out]) ID() uuid.UUID {
	return f.id
}

// Done returns a channel closed when the result is available.
func (f *Future[Out]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[Out]) Wait(ctx context.Context) (Out, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero Out
		return zero, ctx.Err()
	}
}

// resolve stores the result and wakes waiters. Later calls are ignored.
func (f *Future[Out]) resolve(val Out, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}
