package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration.
type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
	Calls  CallsConfig  `yaml:"calls"`
	KV     KVConfig     `yaml:"kv"`
	Wasm   WasmConfig   `yaml:"wasm"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	Output string `yaml:"output"` // stderr, stdout or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// CallsConfig holds host call settings.
type CallsConfig struct {
	QueueSize   int    `yaml:"queue_size"`
	Timeout     string `yaml:"timeout"` // duration string, "0" = none
	Concurrency int    `yaml:"concurrency"`
}

// KVConfig limits the script-visible KV store.
type KVConfig struct {
	MaxKeySize   int `yaml:"max_key_size"`
	MaxValueSize int `yaml:"max_value_size"`
	MaxEntries   int `yaml:"max_entries"`
}

// WasmConfig holds wazero settings.
type WasmConfig struct {
	DiskCache        bool   `yaml:"disk_cache"`
	CacheDir         string `yaml:"cache_dir"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "stdout",
		},
		Calls: CallsConfig{
			QueueSize:   64,
			Timeout:     "30s",
			Concurrency: 1,
		},
		KV: KVConfig{
			MaxKeySize:   256,
			MaxValueSize: 1 << 20,
			MaxEntries:   10000,
		},
	}
}

// Load reads path over the defaults, then applies env overrides and
// validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps HOSTCALL_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOSTCALL_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("HOSTCALL_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("HOSTCALL_TRACE_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("HOSTCALL_TRACE_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("HOSTCALL_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Calls.QueueSize = n
		}
	}
	if v := os.Getenv("HOSTCALL_CALL_TIMEOUT"); v != "" {
		cfg.Calls.Timeout = v
	}
}

// CallTimeout returns the parsed per-call timeout; 0 means none.
func (c CallsConfig) CallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}
