package wasmhost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// ErrHostClosed is returned when compiling on a closed Host.
var ErrHostClosed = errors.New("host closed")

// Host manages the wazero runtime and compiled module caching.
type Host struct {
	runtime   wazero.Runtime
	cache     wazero.CompilationCache
	compiled  map[string]compiledModule
	instances map[*Instance]struct{}
	logger    *zap.Logger
	mu        sync.RWMutex
	closed    bool
}

type compiledModule struct {
	module wazero.CompiledModule
	digest string
}

// New creates a Host.
func New(opts ...HostOption) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	h := &Host{
		runtime:   rt,
		cache:     cache,
		compiled:  make(map[string]compiledModule),
		instances: make(map[*Instance]struct{}),
		logger:    cfg.logger,
	}

	for _, mod := range cfg.precompile {
		if _, err := h.Compile(ctx, mod.Name, mod.Wasm); err != nil {
			h.Close()
			return nil, fmt.Errorf("precompile %s: %w", mod.Name, err)
		}
	}

	return h, nil
}

// Compile returns the cached compiled module for name, compiling wasm if
// necessary. A different binary under a known name replaces the cache entry.
func (h *Host) Compile(ctx context.Context, name string, wasm []byte) (wazero.CompiledModule, error) {
	sum := sha256.Sum256(wasm)
	digest := hex.EncodeToString(sum[:])

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return nil, ErrHostClosed
	}
	if c, ok := h.compiled[name]; ok && c.digest == digest {
		h.mu.RUnlock()
		return c.module, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	if c, ok := h.compiled[name]; ok && c.digest == digest {
		return c.module, nil
	}

	compiled, err := h.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	h.compiled[name] = compiledModule{module: compiled, digest: digest}
	h.logger.Debug("compiled module", zap.String("module", name), zap.String("digest", digest[:12]))
	return compiled, nil
}

// track registers inst so Close can stop it. It fails once the Host is closed.
func (h *Host) track(inst *Instance) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	h.instances[inst] = struct{}{}
	return nil
}

func (h *Host) forget(inst *Instance) {
	h.mu.Lock()
	delete(h.instances, inst)
	h.mu.Unlock()
}

func (h *Host) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Close releases all resources held by the Host, including its instances.
// Calls on those instances fail with jscall.ErrClosing.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	instances := make([]*Instance, 0, len(h.instances))
	for inst := range h.instances {
		instances = append(instances, inst)
	}
	h.mu.Unlock()

	var errs []error
	for _, inst := range instances {
		if err := inst.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close instance %s: %w", inst.name, err))
		}
	}

	ctx := context.Background()
	if err := h.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if h.cache != nil {
		if err := h.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "hostcall")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "hostcall")
	}
	return filepath.Join(os.TempDir(), "hostcall-cache")
}
