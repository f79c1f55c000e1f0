// Package bench measures the cost of a host call through each runtime.
//
// Benchmarks: go test -bench=. ./bench/
package bench

import (
	"context"
	"testing"

	"github.com/caffeineduck/hostcall/jscall"
	"github.com/caffeineduck/hostcall/jshost"
	"github.com/caffeineduck/hostcall/wasmhost"
)

const script = `
function inc(x) { return x + 1 }
async function incAsync(x) { return x + 1 }
`

// incModule exports inc(i32) -> i32.
var incModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x69, 0x6e, 0x63, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b,
}

func newJSRuntime(b *testing.B) *jshost.Runtime {
	b.Helper()
	rt, err := jshost.New(jshost.WithConsole(false))
	if err != nil {
		b.Fatalf("failed to create runtime: %v", err)
	}
	b.Cleanup(func() { rt.Close() })
	if err := rt.RunScript(context.Background(), "bench.js", script); err != nil {
		b.Fatalf("failed to run script: %v", err)
	}
	return rt
}

// --- JS: startup ---

func BenchmarkJS_ColdStart(b *testing.B) {
	for i := 0; i < b.N; i++ {
		rt, err := jshost.New(jshost.WithConsole(false))
		if err != nil {
			b.Fatal(err)
		}
		rt.Close()
	}
}

// --- JS: one call per iteration ---

func BenchmarkJS_InvokeAsync(b *testing.B) {
	rt := newJSRuntime(b)
	ctx := context.Background()
	inc, err := jshost.LookupCallback[jscall.Args1[int], int](ctx, rt, "inc")
	if err != nil {
		b.Fatal(err)
	}
	defer inc.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := inc.InvokeAsync(ctx, jscall.With1(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJS_AwaitCall_Immediate(b *testing.B) {
	rt := newJSRuntime(b)
	ctx := context.Background()
	inc, err := jshost.LookupMaybeAsyncCallback[jscall.Args1[int], int](ctx, rt, "inc")
	if err != nil {
		b.Fatal(err)
	}
	defer inc.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := inc.AwaitCall(ctx, jscall.With1(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJS_AwaitCall_Promise(b *testing.B) {
	rt := newJSRuntime(b)
	ctx := context.Background()
	inc, err := jshost.LookupMaybeAsyncCallback[jscall.Args1[int], int](ctx, rt, "incAsync")
	if err != nil {
		b.Fatal(err)
	}
	defer inc.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := inc.AwaitCall(ctx, jscall.With1(i)); err != nil {
			b.Fatal(err)
		}
	}
}

// --- JS: many goroutines sharing one host thread ---

func BenchmarkJS_InvokeAsync_Parallel(b *testing.B) {
	rt := newJSRuntime(b)
	ctx := context.Background()
	inc, err := jshost.LookupCallback[jscall.Args1[int], int](ctx, rt, "inc")
	if err != nil {
		b.Fatal(err)
	}
	defer inc.Release()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		cb := inc.Clone()
		defer cb.Release()
		for pb.Next() {
			if _, err := cb.InvokeAsync(ctx, jscall.With1(1)); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// --- Wasm ---

func BenchmarkWasm_InvokeAsync(b *testing.B) {
	host, err := wasmhost.New()
	if err != nil {
		b.Fatal(err)
	}
	defer host.Close()

	ctx := context.Background()
	inst, err := host.Instantiate(ctx, "inc", incModule)
	if err != nil {
		b.Fatal(err)
	}
	defer inst.Close()

	inc, err := wasmhost.NewCallback[jscall.Args1[int32], int32](inst, "inc")
	if err != nil {
		b.Fatal(err)
	}
	defer inc.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := inc.InvokeAsync(ctx, jscall.With1(int32(i))); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWasm_Instantiate(b *testing.B) {
	host, err := wasmhost.New(wasmhost.WithPrecompile(wasmhost.Module{Name: "inc", Wasm: incModule}))
	if err != nil {
		b.Fatal(err)
	}
	defer host.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inst, err := host.Instantiate(ctx, "inc", incModule)
		if err != nil {
			b.Fatal(err)
		}
		inst.Close()
	}
}

// --- Core: dispatch overhead without a runtime ---

type directFunc struct{}

func (directFunc) Call(_ context.Context, args []any) (jscall.RawResult[int], error) {
	return jscall.Recognized(args[0].(int) + 1), nil
}

func (directFunc) Release() {}

func BenchmarkCore_InvokeAsync(b *testing.B) {
	cb, err := jscall.NewCallback[jscall.Args1[int], int](directFunc{})
	if err != nil {
		b.Fatal(err)
	}
	defer cb.Release()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cb.InvokeAsync(ctx, jscall.With1(i)); err != nil {
			b.Fatal(err)
		}
	}
}
