package wasmhost

import (
	"go.uber.org/zap"
)

// HostOption configures the Host at creation time.
type HostOption func(*hostConfig)

type hostConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Module
	memoryLimitPages uint32 // 0 = wazero default (65536 pages = 4GB)
	logger           *zap.Logger
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		logger: zap.NewNop(),
	}
}

// Module is a named wasm binary.
type Module struct {
	Name string
	Wasm []byte
}

// WithDiskCache enables persistent compilation cache for faster CLI startup.
// Optionally provide a custom directory; otherwise uses ~/.cache/hostcall or XDG_CACHE_HOME/hostcall.
//
// Examples:
//
//	wasmhost.New(wasmhost.WithDiskCache())            // default dir
//	wasmhost.New(wasmhost.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) HostOption {
	return func(c *hostConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles the given modules at Host creation time.
// This moves the compilation cost to startup rather than first Instantiate.
func WithPrecompile(mods ...Module) HostOption {
	return func(c *hostConfig) {
		c.precompile = append(c.precompile, mods...)
	}
}

// WithMemoryLimit sets the maximum memory available to wasm modules.
// Each page is 64KB. Examples:
//   - WithMemoryLimit(16) = 1MB max
//   - WithMemoryLimit(256) = 16MB max
//   - WithMemoryLimit(1024) = 64MB max
//
// Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) HostOption {
	return func(c *hostConfig) {
		c.memoryLimitPages = pages
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)

// WithHostLogger sets the logger for the Host and, unless overridden, its
// instances.
func WithHostLogger(l *zap.Logger) HostOption {
	return func(c *hostConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// InstanceOption configures an Instance.
type InstanceOption func(*instanceConfig)

type instanceConfig struct {
	queueSize   int
	nonBlocking bool
	logger      *zap.Logger
}

// DefaultQueueSize is the call queue capacity of an Instance.
const DefaultQueueSize = 64

func defaultInstanceConfig(logger *zap.Logger) instanceConfig {
	return instanceConfig{
		queueSize: DefaultQueueSize,
		logger:    logger,
	}
}

// WithQueueSize sets how many calls may wait for the instance's worker.
func WithQueueSize(n int) InstanceOption {
	return func(c *instanceConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithNonBlocking makes calls fail with jscall.ErrQueueFull instead of
// waiting for room in a full queue.
func WithNonBlocking() InstanceOption {
	return func(c *instanceConfig) {
		c.nonBlocking = true
	}
}

// WithInstanceLogger sets the instance's logger.
func WithInstanceLogger(l *zap.Logger) InstanceOption {
	return func(c *instanceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
