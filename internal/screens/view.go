// Package screens holds the view-state controllers behind each screen of the wallet.
//
// A controller starts calls asynchronously and publishes their outcome on a View.
// Every call is stamped with a generation number; a response is applied only if
// no newer call was started on the same view, so the last issued request wins.
package screens

import (
	"context"
	"errors"
	"sync"

	"expense-wallet/internal/api"
)

// Status is the lifecycle position of a view.
type Status int

// View statuses.
const (
	StatusIdle Status = iota
	StatusLoading
	StatusFailed
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusFailed:
		return "failed"
	case StatusLoaded:
		return "loaded"
	}
	return "unknown"
}

// State is a snapshot of a view.
type State[T any] struct {
	Status  Status
	Data    T
	Message string
}

// View holds the state of one screen region and notifies listeners on change.
type View[T any] struct {
	mu        sync.Mutex
	state     State[T]
	gen       uint64
	listeners []func(State[T])
	// delivered is closed once listeners have seen the latest committed state.
	delivered chan struct{}
}

// State returns the current snapshot.
func (v *View[T]) State() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Subscribe registers fn to receive every subsequent state, in the order the
// states were set. fn must not start calls on the same view.
func (v *View[T]) Subscribe(fn func(State[T])) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// Invalidate drops any in-flight result, as when the screen is left.
func (v *View[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
}

func (v *View[T]) begin() uint64 {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	deliver := v.commit(State[T]{Status: StatusLoading, Data: v.state.Data})
	v.mu.Unlock()
	deliver()
	return gen
}

func (v *View[T]) settle(gen uint64, st State[T]) bool {
	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return false
	}
	deliver := v.commit(st)
	v.mu.Unlock()
	deliver()
	return true
}

// publish replaces the state and drops any in-flight result.
func (v *View[T]) publish(st State[T]) {
	v.mu.Lock()
	v.gen++
	deliver := v.commit(st)
	v.mu.Unlock()
	deliver()
}

// commit stores st and returns a func that hands it to the listeners once
// every earlier state has been handed over. Must hold v.mu.
func (v *View[T]) commit(st State[T]) func() {
	v.state = st
	prev, next := v.delivered, make(chan struct{})
	v.delivered = next
	ls := v.listeners
	return func() {
		if prev != nil {
			<-prev
		}
		notify(ls, st)
		close(next)
	}
}

func notify[T any](ls []func(State[T]), st State[T]) {
	for _, fn := range ls {
		fn(st)
	}
}

// run executes fn asynchronously and publishes its result on v.
// The returned channel is closed once the result has been applied or dropped.
func run[T any](ctx context.Context, v *View[T], fallback string, fn func(context.Context) (T, error)) <-chan struct{} {
	gen := v.begin()
	done := make(chan struct{})
	api.Go(ctx, fn).Then(func(r api.Result[T]) {
		defer close(done)
		switch r.Kind() {
		case api.KindSuccess:
			v.settle(gen, State[T]{Status: StatusLoaded, Data: r.Value})
		case api.KindCanceled:
			v.settle(gen, State[T]{Status: StatusIdle})
		default:
			v.settle(gen, State[T]{Status: StatusFailed, Message: Describe(r.Err, fallback)})
		}
	})
	return done
}

// reject publishes a local validation failure without starting a call.
func reject[T any](v *View[T], msg string) <-chan struct{} {
	gen := v.begin()
	v.settle(gen, State[T]{Status: StatusFailed, Message: msg})
	done := make(chan struct{})
	close(done)
	return done
}

// Outcome is the result of a user action.
type Outcome struct {
	Message string
	// Route is where the screen navigates next. Empty means stay.
	Route string
	// ID identifies what the action created, when it created something.
	ID string
}

// ErrNotFound is returned when a requested item is not in the list the backend returned.
var ErrNotFound = errors.New("not found")

// ValidationError is a form input rejected before any call was made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError returns a ValidationError with msg.
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

// Error is a failure carrying the text its screen shows for it.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Describe turns err into display text. Transport failures read "Network error: ...";
// HTTP failures show the backend's message or fallback with the status.
func Describe(err error, fallback string) string {
	var screenErr *Error
	var validationErr *ValidationError
	switch {
	case errors.As(err, &screenErr):
		return screenErr.Message
	case errors.As(err, &validationErr):
		return validationErr.Msg
	case api.IsTransport(err):
		return err.Error()
	}
	if httpErr, ok := api.IsHTTP(err); ok {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return fallback + ": " + httpErr.Status
	}
	if errors.Is(err, ErrNotFound) {
		return fallback + ": not found"
	}
	return fallback + ": " + err.Error()
}
