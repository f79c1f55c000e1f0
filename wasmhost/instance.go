package wasmhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/caffeineduck/hostcall/jscall"
)

// job runs on the instance's worker goroutine.
type job func(ctx context.Context, w *worker)

// worker owns the module instance and the api.Function handles it has
// looked up. It is only touched by the worker goroutine.
type worker struct {
	mod api.Module
	fns map[string]api.Function
}

func (w *worker) function(name string) api.Function {
	fn, ok := w.fns[name]
	if !ok {
		fn = w.mod.ExportedFunction(name)
		if fn != nil {
			w.fns[name] = fn
		}
	}
	return fn
}

// Instance is one instantiated module, served by one worker goroutine that
// runs calls in the order they were queued.
type Instance struct {
	host    *Host
	name    string
	mod     api.Module
	jobs    chan job
	logger  *zap.Logger
	nonBlk  bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Instantiate compiles wasm (cached by name) and starts an instance of it.
func (h *Host) Instantiate(ctx context.Context, name string, wasm []byte, opts ...InstanceOption) (*Instance, error) {
	cfg := defaultInstanceConfig(h.logger)
	for _, opt := range opts {
		opt(&cfg)
	}

	compiled, err := h.Compile(ctx, name, wasm)
	if err != nil {
		return nil, err
	}

	moduleConfig := wazero.NewModuleConfig().WithName("")
	mod, err := h.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}

	ictx, cancel := context.WithCancel(context.Background())
	inst := &Instance{
		host:    h,
		name:    name,
		mod:     mod,
		jobs:    make(chan job, cfg.queueSize),
		logger:  cfg.logger.With(zap.String("module", name)),
		nonBlk:  cfg.nonBlocking,
		ctx:     ictx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if err := h.track(inst); err != nil {
		cancel()
		mod.Close(context.Background())
		return nil, err
	}
	go inst.serve(&worker{mod: mod, fns: make(map[string]api.Function)})

	inst.logger.Debug("instance started", zap.Int("queue_size", cfg.queueSize))
	return inst, nil
}

func (i *Instance) serve(w *worker) {
	defer close(i.stopped)
	for {
		select {
		case j := <-i.jobs:
			j(i.ctx, w)
		case <-i.done:
			return
		}
	}
}

// Name returns the module name the instance was created under.
func (i *Instance) Name() string { return i.name }

// Exports returns the definitions of the module's exported functions.
func (i *Instance) Exports() map[string]api.FunctionDefinition {
	return i.mod.ExportedFunctionDefinitions()
}

func (i *Instance) closed() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

func closingError() error {
	return jscall.NewError(jscall.StatusClosing, "instance closed")
}

// submit queues j. When the queue is full it waits for room, or fails with
// QueueFull in non-blocking mode.
func (i *Instance) submit(ctx context.Context, j job) error {
	if i.closed() {
		return closingError()
	}
	if i.nonBlk {
		select {
		case i.jobs <- j:
			return nil
		default:
			i.logger.Debug("call queue full")
			return jscall.NewError(jscall.StatusQueueFull, "call queue full")
		}
	}
	select {
	case i.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-i.done:
		return closingError()
	}
}

// Close stops the worker, aborting a running call, and closes the module.
// Queued calls fail with jscall.ErrClosing.
func (i *Instance) Close() error {
	var err error
	i.once.Do(func() {
		close(i.done)
		i.cancel()
		<-i.stopped
		err = i.mod.Close(context.Background())
		i.host.forget(i)
		i.logger.Debug("instance closed")
	})
	return err
}
