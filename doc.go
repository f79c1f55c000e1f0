// Package hostcall lets Go code call functions that live inside a
// single-threaded scripting host.
//
// # Overview
//
// A scripting host (a JavaScript runtime or a WebAssembly module instance)
// executes its functions on one goroutine. hostcall wraps those functions in
// typed, shareable handles: any goroutine may invoke them, every call is queued
// onto the host in order, and the raw host value is checked against the Go
// type the caller expects.
//
// # Basic Usage
//
//	rt, _ := jshost.New(jshost.WithKV(hostfunc.NewKV(hostfunc.DefaultKVConfig())))
//	defer rt.Close()
//
//	rt.RunScript(ctx, "app.js", `async function load(id) { return "item " + id }`)
//
//	load, _ := jshost.LookupMaybeAsyncCallback[jscall.Args1[int], string](ctx, rt, "load")
//	defer load.Release()
//
//	s, err := load.AwaitCall(ctx, jscall.With1(7)) // "item 7"
//
// # Packages
//
//   - jscall: host-independent callback handles, results and errors
//   - jshost: goja-backed JavaScript host with promise support
//   - wasmhost: wazero-backed WebAssembly host
//   - hostfunc: native Go functions exposed to scripts, including a KV store
//
// # Errors
//
// Every failure is a *jscall.Error carrying a status. A host value of the wrong
// shape matches jscall.ErrUnknownReturnValue; a function that cannot be bound
// matches jscall.ErrInvalidCallback; a call against a closed host matches
// jscall.ErrClosing.
//
// # CLI
//
// The hostcall command runs scripts and modules from the shell:
//
//	hostcall call app.js load 7
//	hostcall wasm math.wasm add 1 2
//	hostcall repl app.js
package hostcall
