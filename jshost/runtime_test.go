package jshost_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caffeineduck/hostcall/hostfunc"
	"github.com/caffeineduck/hostcall/jscall"
	"github.com/caffeineduck/hostcall/jshost"
)

const script = `
function inc(x) { return x + 1 }
function add(a, b) { return a + b }
function load() { return new Promise(resolve => setTimeout(() => resolve("done"), 20)) }
async function twice(x) { return x * 2 }
async function fail() { throw new Error("boom") }
function throws() { throw new TypeError("bad input") }
function weird() { return new Map() }
function record() { return {a: 1} }
function point() { return {x: 1, y: 2} }
function noop() {}
function never() { return new Promise(() => {}) }
async function wrongSettled() { return {} }
var notFn = 42
`

func newRuntime(t *testing.T, opts ...jshost.Option) *jshost.Runtime {
	t.Helper()
	rt, err := jshost.New(append([]jshost.Option{jshost.WithConsole(false)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	if err := rt.RunScript(context.Background(), "test.js", script); err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	return rt
}

func TestInvokeAsyncIncrement(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inc, err := jshost.LookupCallback[jscall.Args1[int], int](ctx, rt, "inc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer inc.Release()

	got, err := inc.InvokeAsync(ctx, jscall.With1(41))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestAwaitCallPromise(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	load, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, string](ctx, rt, "load")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer load.Release()

	got, err := load.AwaitCall(ctx, jscall.Args0{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("expected 'done', got %q", got)
	}
}

func TestAwaitCallAsyncFunction(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	twice, err := jshost.LookupMaybeAsyncCallback[jscall.Args1[int], int](ctx, rt, "twice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer twice.Release()

	got, err := twice.AwaitCall(ctx, jscall.With1(21))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestAwaitCallImmediateValue(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inc, err := jshost.LookupMaybeAsyncCallback[jscall.Args1[float64], float64](ctx, rt, "inc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer inc.Release()

	got, err := inc.AwaitCall(ctx, jscall.With1(1.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
}

func TestAwaitCallUnknownReturnValue(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	weird, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, int](ctx, rt, "weird")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer weird.Release()

	_, err = weird.AwaitCall(ctx, jscall.Args0{})
	if !errors.Is(err, jscall.ErrUnknownReturnValue) {
		t.Fatalf("expected ErrUnknownReturnValue, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cannot convert Map to `int`") {
		t.Errorf("expected host type and expected type in message, got %q", err.Error())
	}
}

func TestInvokeAsyncUnknownReturnValue(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	record, err := jshost.LookupCallback[jscall.Args0, int](ctx, rt, "record")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer record.Release()

	_, err = record.InvokeAsync(ctx, jscall.Args0{})
	if !errors.Is(err, jscall.ErrUnknownReturnValue) {
		t.Fatalf("expected ErrUnknownReturnValue, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cannot convert") {
		t.Errorf("expected 'Cannot convert' in %q", err.Error())
	}
}

func TestStructResult(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	rt := newRuntime(t)
	ctx := context.Background()

	cb, err := jshost.LookupCallback[jscall.Args0, point](ctx, rt, "point")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer cb.Release()

	got, err := cb.InvokeAsync(ctx, jscall.Args0{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (point{X: 1, Y: 2}) {
		t.Errorf("expected {1 2}, got %+v", got)
	}
}

func TestUnitResult(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	noop, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, struct{}](ctx, rt, "noop")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer noop.Release()

	if _, err := noop.AwaitCall(ctx, jscall.Args0{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// A number is not a unit value.
	inc, err := jshost.LookupCallback[jscall.Args1[int], struct{}](ctx, rt, "inc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer inc.Release()
	if _, err := inc.InvokeAsync(ctx, jscall.With1(1)); !errors.Is(err, jscall.ErrUnknownReturnValue) {
		t.Errorf("expected ErrUnknownReturnValue, got %v", err)
	}
}

func TestRejectionPropagates(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	fail, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, string](ctx, rt, "fail")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer fail.Release()

	_, err = fail.AwaitCall(ctx, jscall.Args0{})
	var callErr *jscall.Error
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *jscall.Error, got %T: %v", err, err)
	}
	if callErr.Status != jscall.StatusGenericFailure {
		t.Errorf("expected GenericFailure, got %v", callErr.Status)
	}
	if callErr.Reason != "Error: boom" {
		t.Errorf("expected reason 'Error: boom', got %q", callErr.Reason)
	}
	if errors.Is(err, jscall.ErrUnknownReturnValue) {
		t.Error("rejection must not be reported as an unknown return value")
	}
}

func TestSettledValueNotConvertible(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	cb, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, int](ctx, rt, "wrongSettled")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer cb.Release()

	_, err = cb.AwaitCall(ctx, jscall.Args0{})
	var callErr *jscall.Error
	if !errors.As(err, &callErr) || callErr.Status != jscall.StatusInvalidArg {
		t.Fatalf("expected InvalidArg error, got %v", err)
	}
}

func TestThrownException(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	throws, err := jshost.LookupCallback[jscall.Args0, int](ctx, rt, "throws")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer throws.Release()

	_, err = throws.InvokeAsync(ctx, jscall.Args0{})
	var callErr *jscall.Error
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *jscall.Error, got %T: %v", err, err)
	}
	if callErr.Status != jscall.StatusPendingException {
		t.Errorf("expected PendingException, got %v", callErr.Status)
	}
	if callErr.Reason != "TypeError: bad input" {
		t.Errorf("expected reason 'TypeError: bad input', got %q", callErr.Reason)
	}
}

func TestLookupNotCallable(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	for _, name := range []string{"notFn", "missing"} {
		_, err := jshost.LookupCallback[jscall.Args0, int](ctx, rt, name)
		if !errors.Is(err, jscall.ErrInvalidCallback) {
			t.Errorf("%s: expected ErrInvalidCallback, got %v", name, err)
		}
	}
}

func TestCallOrderingThroughKV(t *testing.T) {
	kv := hostfunc.NewKV(hostfunc.DefaultKVConfig())
	rt := newRuntime(t, jshost.WithKV(kv))
	ctx := context.Background()

	err := rt.RunScript(ctx, "order.js", `
		var n = 0
		function put(i) { kv_set({key: "k" + n++, value: i}) }
	`)
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}

	put, err := jshost.LookupCallback[jscall.Args1[int], struct{}](ctx, rt, "put")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer put.Release()

	const calls = 100
	for i := 0; i < calls; i++ {
		if _, err := put.InvokeAsync(ctx, jscall.With1(i)); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	for i := 0; i < calls; i++ {
		got, err := kv.Get(ctx, map[string]any{"key": fmt.Sprintf("k%d", i)})
		if err != nil {
			t.Fatalf("kv get: %v", err)
		}
		if got != int64(i) {
			t.Fatalf("arrival %d: expected %d, got %v", i, i, got)
		}
	}
}

func TestConcurrentCalls(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	add, err := jshost.LookupCallback[jscall.Args2[int, int], int](ctx, rt, "add")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer add.Release()

	var wg sync.WaitGroup
	errs := make(chan error, 20*10)
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(cb jscall.Callback[jscall.Args2[int, int], int], g int) {
			defer wg.Done()
			defer cb.Release()
			for i := 0; i < 10; i++ {
				got, err := cb.InvokeAsync(ctx, jscall.With2(g, i))
				if err != nil {
					errs <- err
					continue
				}
				if got != g+i {
					errs <- fmt.Errorf("add(%d, %d) = %d", g, i, got)
				}
			}
		}(add.Clone(), g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestRegistryBinding(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
		return "hello " + args["name"].(string), nil
	})
	registry.Register("explode", func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("kaboom")
	})

	rt := newRuntime(t, jshost.WithRegistry(registry))
	ctx := context.Background()

	out, err := rt.Eval(ctx, `greet({name: "world"})`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Errorf("expected 'hello world', got %q", out)
	}

	_, err = rt.Eval(ctx, `explode()`)
	var callErr *jscall.Error
	if !errors.As(err, &callErr) || callErr.Status != jscall.StatusPendingException {
		t.Fatalf("expected PendingException, got %v", err)
	}
	if !strings.Contains(callErr.Reason, "kaboom") {
		t.Errorf("expected host error in reason, got %q", callErr.Reason)
	}
}

type brittle struct{}

func (brittle) Explode() int {
	var m map[string]int
	m["x"] = 1
	return 0
}

func TestGoPanicEndsCall(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("bad", func(ctx context.Context, args map[string]any) (any, error) {
		var m map[string]int
		m["x"] = 1
		return nil, nil
	})

	rt := newRuntime(t, jshost.WithRegistry(registry))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := rt.RunScript(ctx, "panics.js", `
function callsBad() { return bad() }
function catchesBad() { try { bad(); return "missed" } catch (e) { return "caught" } }
function poke(o) { return o.explode() }
`)
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}

	callsBad, err := jshost.LookupCallback[jscall.Args0, int](ctx, rt, "callsBad")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer callsBad.Release()

	_, err = callsBad.InvokeAsync(ctx, jscall.Args0{})
	var callErr *jscall.Error
	if !errors.As(err, &callErr) || callErr.Status != jscall.StatusPendingException {
		t.Fatalf("expected PendingException, got %v", err)
	}
	if !strings.Contains(callErr.Reason, "nil map") {
		t.Errorf("expected panic message in reason, got %q", callErr.Reason)
	}

	catches, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, string](ctx, rt, "catchesBad")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer catches.Release()
	if got, err := catches.AwaitCall(ctx, jscall.Args0{}); err != nil || got != "caught" {
		t.Errorf("expected script to catch the panic, got %q, %v", got, err)
	}

	poke, err := jshost.LookupCallback[jscall.Args1[brittle], int](ctx, rt, "poke")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer poke.Release()
	_, err = poke.InvokeAsync(ctx, jscall.With1(brittle{}))
	if !errors.As(err, &callErr) || callErr.Status != jscall.StatusPendingException {
		t.Fatalf("expected PendingException from panicking method, got %v", err)
	}

	if _, err := rt.Eval(ctx, `bad()`); !errors.As(err, &callErr) || callErr.Status != jscall.StatusPendingException {
		t.Errorf("expected PendingException from Eval, got %v", err)
	}
	if out, err := rt.Eval(ctx, "1 + 1"); err != nil || out != "2" {
		t.Errorf("runtime unusable after panic: %q, %v", out, err)
	}
}

func TestReleaseUnbindsFunction(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inc, err := jshost.LookupCallback[jscall.Args1[int], int](ctx, rt, "inc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	clone := inc.Clone()
	inc.Release()

	if got, err := clone.InvokeAsync(ctx, jscall.With1(1)); err != nil || got != 2 {
		t.Fatalf("clone should still work, got %d, %v", got, err)
	}

	clone.Release()
	if _, err := clone.InvokeAsync(ctx, jscall.With1(1)); !errors.Is(err, jscall.ErrClosing) {
		t.Errorf("expected ErrClosing after release, got %v", err)
	}
}

func TestClosedRuntime(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	inc, err := jshost.LookupCallback[jscall.Args1[int], int](ctx, rt, "inc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer inc.Release()

	rt.Close()
	rt.Close()

	if _, err := inc.InvokeAsync(ctx, jscall.With1(1)); !errors.Is(err, jscall.ErrClosing) {
		t.Errorf("expected ErrClosing, got %v", err)
	}
	if err := rt.RunScript(ctx, "late.js", "1"); !errors.Is(err, jscall.ErrClosing) {
		t.Errorf("expected ErrClosing from RunScript, got %v", err)
	}
}

func TestCloseWakesPendingAwait(t *testing.T) {
	rt := newRuntime(t)
	ctx := context.Background()

	never, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, int](ctx, rt, "never")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer never.Release()

	errc := make(chan error, 1)
	go func() {
		_, err := never.AwaitCall(ctx, jscall.Args0{})
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	rt.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, jscall.ErrClosing) {
			t.Errorf("expected ErrClosing, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending await was not woken by Close")
	}
}

func TestAwaitHonorsContext(t *testing.T) {
	rt := newRuntime(t)

	never, err := jshost.LookupMaybeAsyncCallback[jscall.Args0, int](context.Background(), rt, "never")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	defer never.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := never.AwaitCall(ctx, jscall.Args0{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
