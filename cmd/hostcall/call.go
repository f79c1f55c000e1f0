package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caffeineduck/hostcall/jscall"
	"github.com/caffeineduck/hostcall/jshost"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <script.js> <function> [json-args...]",
		Short: "Call a JavaScript function and await its result",
		Long: `Load a script, then call one of its global functions.

Each argument is parsed as JSON; anything that is not valid JSON is passed
as a string. If the function returns a promise, the settled value is
printed. One JSON line is printed per call.

Examples:
  hostcall call math.js add 1 2
  hostcall call api.js load '{"id": 7}' --repeat 10 --concurrency 4`,
		Args: cobra.MinimumNArgs(2),
		RunE: withApp(runCall),
	}

	cmd.Flags().Int("repeat", 1, "Number of calls")
	cmd.Flags().Int("concurrency", 0, "Goroutines issuing calls (default from config)")
	cmd.Flags().Bool("kv", false, "Enable key-value store")
	cmd.Flags().Duration("timeout", 0, "Per-call timeout (default from config)")
	return cmd
}

type callResult struct {
	Call   int    `json:"call"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runCall(cmd *cobra.Command, args []string, a *app) error {
	repeat, _ := cmd.Flags().GetInt("repeat")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	enableKV, _ := cmd.Flags().GetBool("kv")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if concurrency <= 0 {
		concurrency = a.cfg.Calls.Concurrency
	}
	if timeout <= 0 {
		timeout = a.cfg.Calls.CallTimeout()
	}
	if repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	opts := []jshost.Option{jshost.WithLogger(a.logger)}
	if enableKV {
		opts = append(opts, jshost.WithKV(a.kv()))
	}
	rt, err := jshost.New(opts...)
	if err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	defer rt.Close()

	ctx := cmd.Context()
	if err := rt.RunScript(ctx, args[0], string(src)); err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}

	cb, err := jshost.LookupMaybeAsyncCallback[jscall.ArgList, any](ctx, rt, args[1])
	if err != nil {
		return err
	}
	defer cb.Release()

	results := issueCalls(ctx, cb, parseJSONArgs(args[2:]), repeat, concurrency, timeout)

	failed := 0
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			failed++
			enc.Encode(callResult{Call: r.Call, Error: fmt.Sprintf("encode result: %v", err)})
		}
	}

	a.logger.Info("calls finished",
		zap.String("function", args[1]),
		zap.Int("calls", repeat),
		zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d of %d calls failed", failed, repeat)
	}
	return nil
}

// issueCalls makes repeat calls from concurrency goroutines, each holding its
// own clone of cb. Results are returned in call order.
func issueCalls(ctx context.Context, cb jscall.MaybeAsyncCallback[jscall.ArgList, any], args jscall.ArgList, repeat, concurrency int, timeout time.Duration) []callResult {
	results := make([]callResult, repeat)
	next := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(cb jscall.MaybeAsyncCallback[jscall.ArgList, any]) {
			defer wg.Done()
			defer cb.Release()
			for i := range next {
				callCtx, cancel := ctx, context.CancelFunc(func() {})
				if timeout > 0 {
					callCtx, cancel = context.WithTimeout(ctx, timeout)
				}
				v, err := cb.AwaitCall(callCtx, args)
				cancel()

				results[i] = callResult{Call: i, Result: v}
				if err != nil {
					results[i].Error = err.Error()
				}
			}
		}(cb.Clone())
	}

	for i := 0; i < repeat; i++ {
		next <- i
	}
	close(next)
	wg.Wait()

	return results
}
