// Package jshost runs JavaScript on goja and binds its functions as jscall
// callbacks.
//
// A Runtime owns one event loop goroutine. Scripts, callback invocations,
// promise reactions and timers all run there, in the order they were queued.
// Callers on any goroutine block only on a channel.
//
//	rt, err := jshost.New(jshost.WithKV(hostfunc.NewKV(hostfunc.DefaultKVConfig())))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	if err := rt.RunScript(ctx, "main.js", `async function load(id) { return "item " + id }`); err != nil {
//		return err
//	}
//	load, err := jshost.LookupMaybeAsyncCallback[jscall.Args1[int], string](ctx, rt, "load")
//	if err != nil {
//		return err
//	}
//	defer load.Release()
//
//	item, err := load.AwaitCall(ctx, jscall.With1(7))
//
// Results are decoded strictly: a JS number never becomes a Go string, and an
// object only becomes a map or a struct. Values that do not fit surface as
// jscall.ErrUnknownReturnValue. Struct fields use their json tag names.
package jshost
