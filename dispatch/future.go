package dispatch

import (
	"context"
	"runtime/debug"
)

// Future is the eventual result of a dispatched function.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// WaitContext is Wait bounded by ctx. Giving up does not stop the
// dispatched function.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err blocks until the result is available and returns its error.
func (f *Future[T]) Err() error {
	<-f.done
	return f.err
}

// complete runs fn and publishes its result. A panic is published as a
// *PanicError and then re-raised for the worker's recovery to log.
func (f *Future[T]) complete(fn func() (T, error)) {
	defer close(f.done)
	defer func() {
		if rec := recover(); rec != nil {
			f.err = &PanicError{Value: rec, Stack: debug.Stack()}
			panic(rec)
		}
	}()

	f.val, f.err = fn()
}

func (f *Future[T]) fail(err error) {
	f.err = err
	close(f.done)
}

// Submit queues fn on p. If p is closed the Future fails with
// [ErrPoolClosed].
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()

	if fn == nil {
		f.fail(ErrNilTask)
		return f
	}

	if err := p.Execute(func() { f.complete(fn) }); err != nil {
		f.fail(err)
	}

	return f
}

// Async runs fn on d with low priority.
func Async[T any](d *Dispatcher, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()

	if fn == nil {
		f.fail(ErrNilTask)
		return f
	}

	d.Go(func() { f.complete(fn) })

	return f
}
