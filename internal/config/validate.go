package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg and returns a *ValidationError listing every problem.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateCalls(cfg, ve)
	validateKV(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q must be one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "console", "json", "":
	default:
		ve.Add("logger.format %q must be console or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}

func validateCalls(cfg *Config, ve *ValidationError) {
	if cfg.Calls.QueueSize <= 0 {
		ve.Add("calls.queue_size must be positive, got %d", cfg.Calls.QueueSize)
	}
	if cfg.Calls.Concurrency <= 0 {
		ve.Add("calls.concurrency must be positive, got %d", cfg.Calls.Concurrency)
	}
	if cfg.Calls.Timeout != "" {
		d, err := time.ParseDuration(cfg.Calls.Timeout)
		if err != nil {
			ve.Add("calls.timeout %q: %v", cfg.Calls.Timeout, err)
		} else if d < 0 {
			ve.Add("calls.timeout must not be negative")
		}
	}
}

func validateKV(cfg *Config, ve *ValidationError) {
	if cfg.KV.MaxKeySize < 0 || cfg.KV.MaxValueSize < 0 || cfg.KV.MaxEntries < 0 {
		ve.Add("kv limits must not be negative")
	}
}
