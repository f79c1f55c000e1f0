package jscall

import (
	"context"
	"sync"
)

// Shape classifies what a host function returned.
type Shape uint8

const (
	shapeInvalid Shape = iota
	// ShapeValue is a value already converted to the expected type.
	ShapeValue
	// ShapeDeferred is a deferred value that settles later.
	ShapeDeferred
	// ShapeUnrecognized is a value this layer cannot convert.
	ShapeUnrecognized
)

func (s Shape) String() string {
	switch s {
	case ShapeValue:
		return "value"
	case ShapeDeferred:
		return "deferred"
	case ShapeUnrecognized:
		return "unrecognized"
	default:
		return "invalid"
	}
}

// Unknown is an opaque host value that matched no expected shape.
// HostType is the host's own label for the value, if it reported one.
type Unknown struct {
	HostType string
}

func (u Unknown) label() string {
	if u.HostType == "" {
		return "unknown"
	}
	return u.HostType
}

// RawResult is the host result of a plain call: either a recognized T or an
// Unknown. Build one with Recognized or Unrecognized.
type RawResult[T any] struct {
	shape   Shape
	value   T
	unknown Unknown
}

// Recognized wraps a value of the expected type.
func Recognized[T any](v T) RawResult[T] {
	return RawResult[T]{shape: ShapeValue, value: v}
}

// Unrecognized wraps a host value that could not be converted to T.
func Unrecognized[T any](u Unknown) RawResult[T] {
	return RawResult[T]{shape: ShapeUnrecognized, unknown: u}
}

func (r RawResult[T]) Shape() Shape     { return r.shape }
func (r RawResult[T]) Value() T         { return r.value }
func (r RawResult[T]) Unknown() Unknown { return r.unknown }

// DeferredResult is the host result of a maybe-async call: a deferred value,
// an immediate value, or an Unknown.
type DeferredResult[T any] struct {
	shape    Shape
	value    T
	deferred Future[T]
	unknown  Unknown
}

// Deferred wraps a future that settles with the expected type.
func Deferred[T any](f Future[T]) DeferredResult[T] {
	return DeferredResult[T]{shape: ShapeDeferred, deferred: f}
}

// Immediate wraps a value returned synchronously.
func Immediate[T any](v T) DeferredResult[T] {
	return DeferredResult[T]{shape: ShapeValue, value: v}
}

// UnrecognizedDeferred wraps a host value that is neither a deferred value
// nor convertible to T.
func UnrecognizedDeferred[T any](u Unknown) DeferredResult[T] {
	return DeferredResult[T]{shape: ShapeUnrecognized, unknown: u}
}

func (r DeferredResult[T]) Shape() Shape      { return r.shape }
func (r DeferredResult[T]) Value() T          { return r.value }
func (r DeferredResult[T]) Future() Future[T] { return r.deferred }
func (r DeferredResult[T]) Unknown() Unknown  { return r.unknown }

// Future is a value that settles later with a T or a failure.
type Future[T any] interface {
	// Await blocks the calling goroutine until the value settles or ctx is done.
	Await(ctx context.Context) (T, error)
}

// Promise is a Future settled exactly once by Resolve or Reject.
// It is safe for concurrent use.
type Promise[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve settles p with v. It reports false if p had already settled.
func (p *Promise[T]) Resolve(v T) bool {
	settled := false
	p.once.Do(func() {
		p.value = v
		close(p.done)
		settled = true
	})
	return settled
}

// Reject settles p with err. It reports false if p had already settled.
func (p *Promise[T]) Reject(err error) bool {
	settled := false
	p.once.Do(func() {
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once p settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Result returns the settled value and failure. Only valid after Done is closed.
func (p *Promise[T]) Result() (T, error) {
	return p.value, p.err
}

func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
