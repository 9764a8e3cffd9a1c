package api

import "context"

// Result is the outcome of an asynchronous call.
type Result[T any] struct {
	Value T
	Err   error
}

// Kind classifies the result.
func (r Result[T]) Kind() Kind {
	return KindOf(r.Err)
}

// Future is a call running on its own goroutine.
type Future[T any] struct {
	done chan struct{}
	res  Result[T]
}

// Go runs fn on a new goroutine and returns a future for its result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		v, err := fn(ctx)
		f.res = Result[T]{Value: v, Err: err}
	}()
	return f
}

// Done is closed when the call has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the call finishes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) Result[T] {
	select {
	case <-f.done:
		return f.res
	case <-ctx.Done():
		return Result[T]{Err: ctx.Err()}
	}
}

// Then runs fn with the result once the call finishes. fn runs on its own goroutine.
func (f *Future[T]) Then(fn func(Result[T])) {
	go func() {
		<-f.done
		fn(f.res)
	}()
}
