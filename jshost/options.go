package jshost

import (
	"go.uber.org/zap"

	"github.com/caffeineduck/hostcall/hostfunc"
)

// Option configures a Runtime at creation time.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	registry *hostfunc.Registry
	kv       *hostfunc.KV
	logger   *zap.Logger
	console  bool
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		logger:  zap.NewNop(),
		console: true,
	}
}

// WithRegistry exposes the registry's functions to scripts as globals. Each
// takes one object argument.
func WithRegistry(r *hostfunc.Registry) Option {
	return func(c *runtimeConfig) {
		c.registry = r
	}
}

// WithKV exposes kv_get, kv_set, kv_delete and kv_keys backed by kv.
func WithKV(kv *hostfunc.KV) Option {
	return func(c *runtimeConfig) {
		c.kv = kv
	}
}

// WithLogger sets the runtime's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *runtimeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConsole enables or disables the console global. Enabled by default.
func WithConsole(enabled bool) Option {
	return func(c *runtimeConfig) {
		c.console = enabled
	}
}
