package wasmhost

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/caffeineduck/hostcall/jscall"
)

// export is a bound exported function, called on the instance's worker.
type export[R any] struct {
	inst    *Instance
	name    string
	params  []api.ValueType
	results []api.ValueType
	decode  func(results []uint64) R
}

type outcome[R any] struct {
	res R
	err error
}

func (e *export[R]) Call(ctx context.Context, args []any) (R, error) {
	var zero R

	encoded, err := encodeArgs(e.params, args)
	if err != nil {
		return zero, jscall.NewError(jscall.StatusInvalidArg, fmt.Sprintf("%s: %v", e.name, err))
	}

	out := make(chan outcome[R], 1)
	err = e.inst.submit(ctx, func(ictx context.Context, w *worker) {
		fn := w.function(e.name)
		if fn == nil {
			out <- outcome[R]{err: jscall.NewError(jscall.StatusFunctionExpected, "no exported function "+e.name)}
			return
		}
		res, err := fn.Call(ictx, encoded...)
		if err != nil {
			out <- outcome[R]{err: e.inst.callError(e.name, err)}
			return
		}
		out <- outcome[R]{res: e.decode(res)}
	})
	if err != nil {
		return zero, err
	}

	select {
	case o := <-out:
		return o.res, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.inst.done:
		return zero, closingError()
	}
}

// Release is a no-op beyond logging; exports live as long as the instance.
func (e *export[R]) Release() {
	e.inst.logger.Debug("released export", zap.String("export", e.name))
}

// callError converts a failed wasm call. Traps become pending exceptions.
func (i *Instance) callError(name string, err error) error {
	if i.ctx.Err() != nil || i.host.isClosed() {
		return closingError()
	}
	var exit *sys.ExitError
	if errors.As(err, &exit) {
		return jscall.NewError(jscall.StatusPendingException,
			fmt.Sprintf("%s: module exited with code %d", name, exit.ExitCode())).WithCause(err)
	}
	return jscall.NewError(jscall.StatusPendingException, fmt.Sprintf("%s: %v", name, err)).WithCause(err)
}

func (i *Instance) lookup(name string, arity int) (api.FunctionDefinition, error) {
	if i.closed() {
		return nil, closingError()
	}
	def, ok := i.Exports()[name]
	if !ok {
		return nil, jscall.NewError(jscall.StatusFunctionExpected, fmt.Sprintf("no exported function %q", name))
	}
	if arity >= 0 && arity != len(def.ParamTypes()) {
		return nil, jscall.NewError(jscall.StatusFunctionExpected,
			fmt.Sprintf("export %q takes %d parameters, callback passes %d", name, len(def.ParamTypes()), arity))
	}
	return def, nil
}

// NewCallback binds the exported function name as a Callback. The export's
// parameter count must match A.
func NewCallback[A jscall.Args, T any](inst *Instance, name string) (jscall.Callback[A, T], error) {
	def, err := inst.lookup(name, jscall.Arity[A]())
	if err != nil {
		return jscall.Callback[A, T]{}, err
	}
	results := def.ResultTypes()
	return jscall.NewCallback[A, T](&export[jscall.RawResult[T]]{
		inst:    inst,
		name:    name,
		params:  def.ParamTypes(),
		results: results,
		decode: func(raw []uint64) jscall.RawResult[T] {
			v, ok := decodeResults[T](results, raw)
			if !ok {
				return jscall.Unrecognized[T](jscall.Unknown{HostType: signature(results)})
			}
			return jscall.Recognized(v)
		},
	})
}

// NewMaybeAsyncCallback binds the exported function name as a
// MaybeAsyncCallback. Core wasm has no deferred values, so every result is
// immediate.
func NewMaybeAsyncCallback[A jscall.Args, T any](inst *Instance, name string) (jscall.MaybeAsyncCallback[A, T], error) {
	def, err := inst.lookup(name, jscall.Arity[A]())
	if err != nil {
		return jscall.MaybeAsyncCallback[A, T]{}, err
	}
	results := def.ResultTypes()
	return jscall.NewMaybeAsyncCallback[A, T](&export[jscall.DeferredResult[T]]{
		inst:    inst,
		name:    name,
		params:  def.ParamTypes(),
		results: results,
		decode: func(raw []uint64) jscall.DeferredResult[T] {
			v, ok := decodeResults[T](results, raw)
			if !ok {
				return jscall.UnrecognizedDeferred[T](jscall.Unknown{HostType: signature(results)})
			}
			return jscall.Immediate(v)
		},
	})
}
