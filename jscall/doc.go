// Package jscall invokes functions owned by a single-threaded scripting host
// from any number of goroutines.
//
// # Overview
//
// A host runtime (see the jshost and wasmhost packages) owns its functions and
// executes them on one goroutine. This package wraps a host function in a
// [Callback] or [MaybeAsyncCallback] handle that may be shared and invoked
// concurrently. Every invocation is queued onto the host, the caller waits on a
// channel, and the raw host result is normalized into a typed value or an
// error.
//
// # Plain Callbacks
//
// A [Callback] expects the host function to return a value of type T:
//
//	inc, _ := jshost.LookupCallback[jscall.Args1[int], int](ctx, rt, "inc")
//	defer inc.Release()
//
//	n, err := inc.InvokeAsync(ctx, jscall.With1(41)) // 42
//
// # Maybe-Async Callbacks
//
// Host functions written as async functions are plain functions that return a
// deferred value. A [MaybeAsyncCallback] accepts either shape and awaits the
// deferred value before returning:
//
//	load, _ := jshost.LookupMaybeAsyncCallback[jscall.Args0, string](ctx, rt, "load")
//	s, err := load.AwaitCall(ctx, jscall.Args0{})
//
// # Errors
//
// A host value of an unexpected shape yields an error matching
// [ErrUnknownReturnValue] whose message names the expected Go type with
// package qualifiers removed (see [PrettyTypeName]). Failures raised by the
// host while submitting or running the call, and failures a deferred value
// settles with, are returned exactly as the host produced them.
//
// # Cancellation
//
// A done context stops the caller from waiting but does not retract the call:
// once submitted, it runs to completion on the host.
package jscall
