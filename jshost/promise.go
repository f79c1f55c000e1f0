package jshost

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/caffeineduck/hostcall/jscall"
)

// promiseFuture is a JS promise as seen from Go. It is settled by handlers
// attached on the loop, and fails with ErrClosing if the runtime closes first.
type promiseFuture[T any] struct {
	rt *Runtime
	p  *jscall.Promise[T]
}

func (f promiseFuture[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.p.Done():
		return f.p.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.rt.done:
		var zero T
		return zero, closingError()
	}
}

// watchPromise attaches then-handlers to obj. Loop goroutine only.
func watchPromise[T any](rt *Runtime, vm *goja.Runtime, obj *goja.Object) jscall.Future[T] {
	p := jscall.NewPromise[T]()

	onFulfilled := func(call goja.FunctionCall) goja.Value {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(panicError(r))
			}
		}()
		v := call.Argument(0)
		if t, ok := convert[T](vm, v); ok {
			p.Resolve(t)
		} else {
			p.Reject(jscall.NewError(jscall.StatusInvalidArg,
				fmt.Sprintf("Failed to convert settled %s into `%s`", typeOf(v), jscall.PrettyTypeName[T]())))
		}
		return goja.Undefined()
	}
	onRejected := func(call goja.FunctionCall) goja.Value {
		p.Reject(rejectionError(call.Argument(0)))
		return goja.Undefined()
	}

	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		p.Reject(jscall.NewError(jscall.StatusGenericFailure, "promise has no then method"))
		return promiseFuture[T]{rt: rt, p: p}
	}
	if _, err := then(obj, vm.ToValue(onFulfilled), vm.ToValue(onRejected)); err != nil {
		p.Reject(exceptionError(err))
	}
	return promiseFuture[T]{rt: rt, p: p}
}
