package jscall

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Function is a host runtime's thread-safe reference to one host function.
//
// Call queues args onto the host thread, runs the function there and converts
// its return value into R. It must not block an OS thread while waiting, and
// calls made in sequence from one goroutine must reach the host in order.
// A done ctx stops the wait but not the call.
//
// Release drops the host-side reference. It is called once, after the last
// holder of the callback let go and no call through the callback is in flight.
type Function[R any] interface {
	Call(ctx context.Context, args []any) (R, error)
	Release()
}

// ref counts the holders of one host function.
type ref[R any] struct {
	fn   Function[R]
	refs atomic.Int64
}

func newRef[R any](fn Function[R]) *ref[R] {
	r := &ref[R]{fn: fn}
	r.refs.Store(1)
	return r
}

// acquire adds a reference unless the last one is already gone.
func (r *ref[R]) acquire() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (r *ref[R]) release() {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return
		}
		if r.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				r.fn.Release()
			}
			return
		}
	}
}

// call pins a reference for the duration of the call, so a concurrent final
// Release cannot free the host function while it is in use.
func (r *ref[R]) call(ctx context.Context, args Args) (R, error) {
	if !r.acquire() {
		var zero R
		return zero, NewError(StatusClosing, "callback released")
	}
	defer r.release()
	return r.fn.Call(ctx, args.Values())
}

// Callback is a shareable handle to a host function returning T.
// The zero Callback is invalid; every call on it fails with ErrInvalidCallback.
type Callback[A Args, T any] struct {
	ref *ref[RawResult[T]]
}

// NewCallback binds fn as a Callback. The caller owns the returned handle and
// must Release it.
func NewCallback[A Args, T any](fn Function[RawResult[T]]) (Callback[A, T], error) {
	if fn == nil {
		return Callback[A, T]{}, NewError(StatusFunctionExpected, "nil host function")
	}
	return Callback[A, T]{ref: newRef(fn)}, nil
}

func (c Callback[A, T]) Valid() bool { return c.ref != nil }

// Clone returns another handle to the same host function. Each clone must be
// released. Cloning a fully released handle yields a handle whose calls fail
// with ErrClosing.
func (c Callback[A, T]) Clone() Callback[A, T] {
	if c.ref != nil {
		c.ref.acquire()
	}
	return c
}

// Release drops this holder's reference. The host function is released
// together with the last reference.
func (c Callback[A, T]) Release() {
	if c.ref != nil {
		c.ref.release()
	}
}

// InvokeAsync calls the host function with args and waits for its result.
func (c Callback[A, T]) InvokeAsync(ctx context.Context, args A) (T, error) {
	var zero T
	expected := PrettyTypeName[T]()
	owner := PrettyTypeName[Callback[A, T]]()

	ctx, span := startSpan(ctx, "jscall.InvokeAsync", expected, owner)

	if c.ref == nil {
		err := NewError(StatusFunctionExpected, "callback is not bound")
		endSpan(span, shapeInvalid, err)
		return zero, err
	}

	raw, err := c.ref.call(ctx, args)
	if err != nil {
		endSpan(span, shapeInvalid, err)
		return zero, err
	}

	v, err := normalize(raw, expected)
	endSpan(span, raw.Shape(), err)
	return v, err
}

// normalize unwraps a plain call result. The host type is not reported on
// this path.
func normalize[T any](raw RawResult[T], expected string) (T, error) {
	var zero T
	switch raw.Shape() {
	case ShapeValue:
		return raw.Value(), nil
	case ShapeUnrecognized:
		return zero, unknownReturnValue("unknown", expected, "")
	default:
		return zero, NewError(StatusGenericFailure, fmt.Sprintf("invalid result shape %q", raw.Shape()))
	}
}

// MaybeAsyncCallback is a shareable handle to a host function returning
// either T or a deferred T.
// The zero MaybeAsyncCallback is invalid.
type MaybeAsyncCallback[A Args, T any] struct {
	ref *ref[DeferredResult[T]]
}

// NewMaybeAsyncCallback binds fn as a MaybeAsyncCallback. The caller owns the
// returned handle and must Release it.
func NewMaybeAsyncCallback[A Args, T any](fn Function[DeferredResult[T]]) (MaybeAsyncCallback[A, T], error) {
	if fn == nil {
		return MaybeAsyncCallback[A, T]{}, NewError(StatusFunctionExpected, "nil host function")
	}
	return MaybeAsyncCallback[A, T]{ref: newRef(fn)}, nil
}

func (c MaybeAsyncCallback[A, T]) Valid() bool { return c.ref != nil }

// Clone returns another handle to the same host function. Each clone must be
// released. Cloning a fully released handle yields a handle whose calls fail
// with ErrClosing.
func (c MaybeAsyncCallback[A, T]) Clone() MaybeAsyncCallback[A, T] {
	if c.ref != nil {
		c.ref.acquire()
	}
	return c
}

// Release drops this holder's reference.
func (c MaybeAsyncCallback[A, T]) Release() {
	if c.ref != nil {
		c.ref.release()
	}
}

// AwaitCall calls the host function with args. If it returns a deferred
// value, AwaitCall waits for it to settle and returns the settled value or
// failure.
func (c MaybeAsyncCallback[A, T]) AwaitCall(ctx context.Context, args A) (T, error) {
	var zero T
	expected := PrettyTypeName[T]()
	owner := PrettyTypeName[MaybeAsyncCallback[A, T]]()
	log := Logger().With(zap.String("callback", owner))

	ctx, span := startSpan(ctx, "jscall.AwaitCall", expected, owner)

	if c.ref == nil {
		err := NewError(StatusFunctionExpected, "callback is not bound")
		endSpan(span, shapeInvalid, err)
		return zero, err
	}

	log.Debug("calling host function")
	res, err := c.ref.call(ctx, args)
	if err != nil {
		log.Debug("error calling host function", zap.Error(err))
		endSpan(span, shapeInvalid, err)
		return zero, err
	}

	v, err := settle(ctx, res, expected, owner, log)
	endSpan(span, res.Shape(), err)
	return v, err
}

func settle[T any](ctx context.Context, res DeferredResult[T], expected, owner string, log *zap.Logger) (T, error) {
	var zero T
	switch res.Shape() {
	case ShapeDeferred:
		if res.Future() == nil {
			return zero, NewError(StatusGenericFailure, "deferred result without a future")
		}
		log.Debug("host function returned a deferred value, awaiting it")
		return res.Future().Await(ctx)
	case ShapeValue:
		log.Debug("host function returned a value")
		return res.Value(), nil
	case ShapeUnrecognized:
		log.Debug("unknown return value from host function", zap.String("host_type", res.Unknown().label()))
		return zero, unknownReturnValue(res.Unknown().label(), expected, owner)
	default:
		return zero, NewError(StatusGenericFailure, fmt.Sprintf("invalid result shape %q", res.Shape()))
	}
}

// Go runs AwaitCall on a new goroutine. A failure is passed to onErr, or
// logged when onErr is nil.
func (c MaybeAsyncCallback[A, T]) Go(ctx context.Context, args A, onErr func(error)) {
	go func() {
		if _, err := c.AwaitCall(ctx, args); err != nil {
			if onErr != nil {
				onErr(err)
				return
			}
			Logger().Warn("background host call failed",
				zap.String("callback", PrettyTypeName[MaybeAsyncCallback[A, T]]()),
				zap.Error(err))
		}
	}()
}
