package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/hostcall/hostfunc"
	"github.com/caffeineduck/hostcall/internal/config"
	"github.com/caffeineduck/hostcall/internal/telemetry"
	"github.com/caffeineduck/hostcall/jscall"
	"github.com/caffeineduck/hostcall/wasmhost"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hostcall",
		Short: "Call JavaScript and WebAssembly functions from Go",
		Long: `hostcall - Invoke functions that live in a single-threaded host runtime.

Functions run on their host's own thread (a goja event loop for JavaScript,
a wazero worker for WebAssembly). Calls are queued in order; results,
promises and failures come back to the caller.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Config file (YAML)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().Bool("trace", false, "Export OpenTelemetry spans to stderr")

	root.AddCommand(newCallCmd(), newWasmCmd(), newReplCmd())
	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every command run.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// withApp loads config, logging and tracing before fn and tears them down
// after it.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logger.Level, _ = cmd.Flags().GetString("log-level")
		}
		if trace, _ := cmd.Flags().GetBool("trace"); trace {
			cfg.Tracer.Enabled = true
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		logger, closeLog, err := telemetry.NewLogger(cfg.Logger)
		if err != nil {
			return err
		}
		defer closeLog()
		jscall.SetLogger(logger)
		defer jscall.SetLogger(nil)

		shutdown, err := telemetry.SetupTracer(cmd.Context(), cfg.Tracer, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer shutdown(context.Background())

		return fn(cmd, args, &app{cfg: cfg, logger: logger})
	}
}

func (a *app) kv() *hostfunc.KV {
	return hostfunc.NewKV(hostfunc.KVConfig{
		MaxKeySize:   a.cfg.KV.MaxKeySize,
		MaxValueSize: a.cfg.KV.MaxValueSize,
		MaxEntries:   a.cfg.KV.MaxEntries,
	})
}

// parseJSONArgs decodes each argument as JSON. Arguments that are not valid
// JSON are passed as strings.
func parseJSONArgs(args []string) jscall.ArgList {
	out := make(jscall.ArgList, len(args))
	for i, s := range args {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = s
		}
		out[i] = v
	}
	return out
}

func parseMemoryLimit(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "1mb":
		return wasmhost.MemoryLimit1MB, nil
	case "16mb":
		return wasmhost.MemoryLimit16MB, nil
	case "64mb":
		return wasmhost.MemoryLimit64MB, nil
	case "256mb":
		return wasmhost.MemoryLimit256MB, nil
	case "1gb":
		return wasmhost.MemoryLimit1GB, nil
	case "", "default":
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid memory limit %q (expected 1mb, 16mb, 64mb, 256mb or 1gb)", s)
	}
}
