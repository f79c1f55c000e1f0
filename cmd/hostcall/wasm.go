package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostcall/jscall"
	"github.com/caffeineduck/hostcall/wasmhost"
)

func newWasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wasm <module.wasm> <export> [numbers...]",
		Short: "Call an exported WebAssembly function",
		Long: `Instantiate a WebAssembly module and call one of its exported functions.

Arguments are numbers, encoded by the export's parameter types (i32, i64,
f32, f64). Results are printed as JSON: a number for one result, an array
for several, null for none.

Examples:
  hostcall wasm math.wasm inc 41
  hostcall wasm math.wasm half 5 --memory 16mb`,
		Args: cobra.MinimumNArgs(2),
		RunE: withApp(runWasm),
	}

	cmd.Flags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
	cmd.Flags().Bool("no-cache", false, "Disable compilation cache")
	return cmd
}

func runWasm(cmd *cobra.Command, args []string, a *app) error {
	memory, _ := cmd.Flags().GetString("memory")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	wasm, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	nums, err := parseNumbers(args[2:])
	if err != nil {
		return err
	}

	hostOpts := []wasmhost.HostOption{wasmhost.WithHostLogger(a.logger)}
	if a.cfg.Wasm.DiskCache && !noCache {
		hostOpts = append(hostOpts, wasmhost.WithDiskCache(a.cfg.Wasm.CacheDir))
	}
	pages := a.cfg.Wasm.MemoryLimitPages
	if memory != "" {
		if pages, err = parseMemoryLimit(memory); err != nil {
			return err
		}
	}
	if pages > 0 {
		hostOpts = append(hostOpts, wasmhost.WithMemoryLimit(pages))
	}

	host, err := wasmhost.New(hostOpts...)
	if err != nil {
		return err
	}
	defer host.Close()

	ctx := cmd.Context()
	if timeout := a.cfg.Calls.CallTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	inst, err := host.Instantiate(ctx, filepath.Base(args[0]), wasm,
		wasmhost.WithQueueSize(a.cfg.Calls.QueueSize))
	if err != nil {
		return err
	}
	defer inst.Close()

	cb, err := wasmhost.NewCallback[jscall.ArgList, any](inst, args[1])
	if err != nil {
		return err
	}
	defer cb.Release()

	v, err := cb.InvokeAsync(ctx, nums)
	if err != nil {
		return err
	}

	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// parseNumbers parses integers as int64 and everything else as float64.
func parseNumbers(args []string) (jscall.ArgList, error) {
	out := make(jscall.ArgList, len(args))
	for i, s := range args {
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			out[i] = n
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not a number", i, s)
		}
		out[i] = f
	}
	return out, nil
}
