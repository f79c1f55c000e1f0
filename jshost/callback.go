package jshost

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/caffeineduck/hostcall/jscall"
)

// function is a bound JS function, called through the runtime's loop.
type function[R any] struct {
	rt     *Runtime
	id     uint64
	decode func(vm *goja.Runtime, v goja.Value) R
}

type outcome[R any] struct {
	res R
	err error
}

func (f *function[R]) Call(ctx context.Context, args []any) (R, error) {
	var zero R
	out := make(chan outcome[R], 1)

	err := f.rt.submit(func(vm *goja.Runtime) {
		defer func() {
			if p := recover(); p != nil {
				out <- outcome[R]{err: panicError(p)}
			}
		}()
		fn, ok := f.rt.funcs[f.id]
		if !ok {
			out <- outcome[R]{err: jscall.NewError(jscall.StatusClosing, "function released")}
			return
		}
		jsArgs := make([]goja.Value, len(args))
		for i, a := range args {
			jsArgs[i] = vm.ToValue(a)
		}
		v, err := fn(goja.Undefined(), jsArgs...)
		if err != nil {
			out <- outcome[R]{err: exceptionError(err)}
			return
		}
		out <- outcome[R]{res: f.decode(vm, v)}
	})
	if err != nil {
		return zero, err
	}

	select {
	case o := <-out:
		return o.res, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-f.rt.done:
		return zero, closingError()
	}
}

func (f *function[R]) Release() {
	f.rt.unbind(f.id)
}

// NewCallback binds v as a Callback. It must be called on the loop, for
// example from a host function or a RunScript job; use LookupCallback from
// other goroutines.
func NewCallback[A jscall.Args, T any](rt *Runtime, v goja.Value) (jscall.Callback[A, T], error) {
	id, err := rt.bind(v)
	if err != nil {
		return jscall.Callback[A, T]{}, err
	}
	return jscall.NewCallback[A, T](&function[jscall.RawResult[T]]{
		rt:     rt,
		id:     id,
		decode: decodeRaw[T],
	})
}

// NewMaybeAsyncCallback binds v as a MaybeAsyncCallback. Same threading rules
// as NewCallback.
func NewMaybeAsyncCallback[A jscall.Args, T any](rt *Runtime, v goja.Value) (jscall.MaybeAsyncCallback[A, T], error) {
	id, err := rt.bind(v)
	if err != nil {
		return jscall.MaybeAsyncCallback[A, T]{}, err
	}
	return jscall.NewMaybeAsyncCallback[A, T](&function[jscall.DeferredResult[T]]{
		rt: rt,
		id: id,
		decode: func(vm *goja.Runtime, v goja.Value) jscall.DeferredResult[T] {
			return decodeDeferred[T](rt, vm, v)
		},
	})
}

// LookupCallback binds the global function name as a Callback.
func LookupCallback[A jscall.Args, T any](ctx context.Context, rt *Runtime, name string) (jscall.Callback[A, T], error) {
	var cb jscall.Callback[A, T]
	err := rt.run(ctx, func(vm *goja.Runtime) error {
		var err error
		cb, err = NewCallback[A, T](rt, vm.Get(name))
		return err
	})
	if err != nil {
		return cb, fmt.Errorf("lookup %s: %w", name, err)
	}
	return cb, nil
}

// LookupMaybeAsyncCallback binds the global function name as a
// MaybeAsyncCallback.
func LookupMaybeAsyncCallback[A jscall.Args, T any](ctx context.Context, rt *Runtime, name string) (jscall.MaybeAsyncCallback[A, T], error) {
	var cb jscall.MaybeAsyncCallback[A, T]
	err := rt.run(ctx, func(vm *goja.Runtime) error {
		var err error
		cb, err = NewMaybeAsyncCallback[A, T](rt, vm.Get(name))
		return err
	})
	if err != nil {
		return cb, fmt.Errorf("lookup %s: %w", name, err)
	}
	return cb, nil
}

func decodeRaw[T any](vm *goja.Runtime, v goja.Value) jscall.RawResult[T] {
	t, ok := convert[T](vm, v)
	if !ok {
		return jscall.Unrecognized[T](jscall.Unknown{HostType: typeOf(v)})
	}
	return jscall.Recognized(t)
}

// decodeDeferred checks for a promise before trying an immediate value.
func decodeDeferred[T any](rt *Runtime, vm *goja.Runtime, v goja.Value) jscall.DeferredResult[T] {
	if obj, ok := v.(*goja.Object); ok {
		if _, ok := obj.Export().(*goja.Promise); ok {
			return jscall.Deferred[T](watchPromise[T](rt, vm, obj))
		}
	}
	t, ok := convert[T](vm, v)
	if !ok {
		return jscall.UnrecognizedDeferred[T](jscall.Unknown{HostType: typeOf(v)})
	}
	return jscall.Immediate(t)
}
