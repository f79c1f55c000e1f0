package jshost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"

	"github.com/caffeineduck/hostcall/hostfunc"
	"github.com/caffeineduck/hostcall/jscall"
)

// Runtime is a JavaScript runtime owned by one event loop goroutine. All
// access to the underlying *goja.Runtime happens on that goroutine.
type Runtime struct {
	loop   *eventloop.EventLoop
	logger *zap.Logger

	// funcs holds the functions bound as callbacks. Loop goroutine only.
	funcs  map[uint64]goja.Callable
	nextID atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a runtime with its event loop.
func New(opts ...Option) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := hostfunc.NewRegistry()
	if cfg.registry != nil {
		registry = cfg.registry.Clone()
	}
	if cfg.kv != nil {
		cfg.kv.Register(registry)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		loop:   eventloop.NewEventLoop(eventloop.EnableConsole(cfg.console)),
		logger: cfg.logger,
		funcs:  make(map[uint64]goja.Callable),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.loop.Start()

	err := r.run(context.Background(), func(vm *goja.Runtime) error {
		vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
		for name, fn := range registry.All() {
			if err := vm.Set(name, r.binding(vm, name, fn)); err != nil {
				return fmt.Errorf("install %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Debug("runtime started", zap.Strings("functions", registry.List()))
	return r, nil
}

// binding adapts a registry function to a JS global. Failures are thrown as
// exceptions.
func (r *Runtime) binding(vm *goja.Runtime, name string, fn hostfunc.Func) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := map[string]any{}
		if a := call.Argument(0); !isNullish(a) {
			m, ok := a.Export().(map[string]any)
			if !ok {
				panic(vm.NewTypeError("%s: argument must be an object", name))
			}
			args = m
		}
		res, err := callHostFunc(r.ctx, fn, args)
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("%s: %w", name, err)))
		}
		return vm.ToValue(res)
	}
}

// callHostFunc runs fn, turning a panic into an error so scripts see it as an
// exception they can catch.
func callHostFunc(ctx context.Context, fn hostfunc.Func, args map[string]any) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, args)
}

// RunScript evaluates src, typically to define the functions callbacks bind.
func (r *Runtime) RunScript(ctx context.Context, name, src string) error {
	return r.run(ctx, func(vm *goja.Runtime) error {
		_, err := vm.RunScript(name, src)
		return exceptionError(err)
	})
}

// Eval evaluates src and returns its completion value as a string.
func (r *Runtime) Eval(ctx context.Context, src string) (string, error) {
	var out string
	err := r.run(ctx, func(vm *goja.Runtime) error {
		v, err := vm.RunString(src)
		if err != nil {
			return exceptionError(err)
		}
		if v == nil {
			out = "undefined"
		} else {
			out = v.String()
		}
		return nil
	})
	return out, err
}

// Close terminates the event loop. Calls still queued or waiting fail with
// jscall.ErrClosing. Close is idempotent.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.cancel()
		r.loop.Terminate()
		r.logger.Debug("runtime closed")
	})
	return nil
}

func (r *Runtime) closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func closingError() error {
	return jscall.NewError(jscall.StatusClosing, "runtime closed")
}

// submit queues job on the loop. Jobs run in submission order.
func (r *Runtime) submit(job func(vm *goja.Runtime)) error {
	if r.closed() {
		return closingError()
	}
	if !r.loop.RunOnLoop(func(vm *goja.Runtime) {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("panic in loop job", zap.Any("panic", p))
			}
		}()
		job(vm)
	}) {
		return closingError()
	}
	return nil
}

// run executes fn on the loop and waits for it.
func (r *Runtime) run(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	errc := make(chan error, 1)
	err := r.submit(func(vm *goja.Runtime) {
		defer func() {
			if p := recover(); p != nil {
				errc <- panicError(p)
			}
		}()
		errc <- fn(vm)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return closingError()
	}
}

// bind registers v as a callable and returns its id. Loop goroutine only.
func (r *Runtime) bind(v goja.Value) (uint64, error) {
	if v == nil {
		return 0, jscall.NewError(jscall.StatusFunctionExpected, "expected a function, got undefined")
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return 0, jscall.NewError(jscall.StatusFunctionExpected, "expected a function, got "+typeOf(v))
	}
	id := r.nextID.Add(1)
	r.funcs[id] = fn
	r.logger.Debug("bound function", zap.Uint64("id", id))
	return id, nil
}

func (r *Runtime) unbind(id uint64) {
	err := r.submit(func(*goja.Runtime) {
		delete(r.funcs, id)
		r.logger.Debug("released function", zap.Uint64("id", id))
	})
	if err != nil && !errors.Is(err, jscall.ErrClosing) {
		r.logger.Warn("release function", zap.Uint64("id", id), zap.Error(err))
	}
}

// exceptionError converts an error from goja into a call failure.
func exceptionError(err error) error {
	if err == nil {
		return nil
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return jscall.NewError(jscall.StatusPendingException, describe(exc.Value())).WithCause(err)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return jscall.NewError(jscall.StatusCancelled, interrupted.Error()).WithCause(err)
	}
	return jscall.NewError(jscall.StatusGenericFailure, err.Error()).WithCause(err)
}

// panicError converts a Go panic raised by a loop job into a call failure,
// so the waiting caller still gets an answer.
func panicError(p any) error {
	return jscall.NewError(jscall.StatusPendingException, fmt.Sprintf("panic: %v", p))
}

// rejectionError converts a promise rejection reason into a call failure.
func rejectionError(reason goja.Value) error {
	return jscall.NewError(jscall.StatusGenericFailure, describe(reason))
}

func describe(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}
