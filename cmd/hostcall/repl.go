package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/hostcall/jscall"
	"github.com/caffeineduck/hostcall/jshost"
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [script.js...]",
		Short: "Interactive JavaScript REPL with callable functions",
		Long: `Start an interactive REPL against a JavaScript runtime.

Scripts given as arguments are loaded first. Plain lines are evaluated;
':call <function> [json-args...]' calls a global function through the
await path and prints its settled result.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
		RunE: withApp(runRepl),
	}

	cmd.Flags().Bool("kv", false, "Enable key-value store")
	cmd.Flags().String("history", "", "History file path (default: ~/.hostcall_history)")
	cmd.Flags().Duration("timeout", 0, "Timeout for :call (default from config)")
	return cmd
}

func runRepl(cmd *cobra.Command, args []string, a *app) error {
	enableKV, _ := cmd.Flags().GetBool("kv")
	historyFile, _ := cmd.Flags().GetString("history")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = a.cfg.Calls.CallTimeout()
	}

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".hostcall_history")
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
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := rt.RunScript(ctx, path, string(src)); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            cmd.OutOrStdout(),
		Stderr:            cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "hostcall JavaScript REPL (type 'exit' to quit, Ctrl+D to exit)")

	session := &replSession{rt: rt, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), timeout: timeout}

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(">>> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		if session.handle(ctx, line) {
			return nil
		}
	}
}

type replSession struct {
	rt     *jshost.Runtime
	out    io.Writer
	errOut io.Writer
	// timeout bounds each :call; zero means no limit.
	timeout time.Duration
}

// handle runs one input line and reports whether the session should end.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "exit" || line == "quit":
		return true
	case strings.HasPrefix(line, ":call"):
		s.call(ctx, strings.Fields(strings.TrimPrefix(line, ":call")))
		return false
	}

	out, err := s.rt.Eval(ctx, line)
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return false
	}
	fmt.Fprintln(s.out, out)
	return false
}

func (s *replSession) call(ctx context.Context, fields []string) {
	if len(fields) == 0 {
		fmt.Fprintln(s.errOut, "usage: :call <function> [json-args...]")
		return
	}

	cb, err := jshost.LookupMaybeAsyncCallback[jscall.ArgList, any](ctx, s.rt, fields[0])
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}
	defer cb.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	v, err := cb.AwaitCall(ctx, parseJSONArgs(fields[1:]))
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: encode result: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, string(data))
}
