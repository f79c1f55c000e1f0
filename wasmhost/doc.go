// Package wasmhost binds exported WebAssembly functions as jscall callbacks,
// using wazero.
//
// A Host owns the wazero runtime and caches compiled modules by name. Each
// Instance is served by one worker goroutine draining a bounded FIFO queue,
// so calls reach the module one at a time in the order they were made.
//
//	host, err := wasmhost.New(wasmhost.WithDiskCache())
//	if err != nil {
//		return err
//	}
//	defer host.Close()
//
//	inst, err := host.Instantiate(ctx, "math", wasm, wasmhost.WithNonBlocking())
//	if err != nil {
//		return err
//	}
//	defer inst.Close()
//
//	inc, err := wasmhost.NewCallback[jscall.Args1[int32], int32](inst, "inc")
//	if err != nil {
//		return err
//	}
//	defer inc.Release()
//
//	n, err := inc.InvokeAsync(ctx, jscall.With1(int32(41)))
//
// Arguments are encoded by the export's parameter types. Results decode into
// integers, floats, bool (i32), struct{} (no results) or a slice (several
// results); anything else is reported with the export's result signature,
// e.g. "Cannot convert (i32,i32) to `int`".
package wasmhost
