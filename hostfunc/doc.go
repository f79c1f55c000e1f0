// Package hostfunc provides native Go functions that host scripts can call.
//
// A [Registry] maps names to [Func] values. The JavaScript host installs each
// one as a global taking a single object argument:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "hello " + args["name"].(string), nil
//	})
//
//	rt, err := jshost.New(jshost.WithRegistry(registry))
//	// in JS: greet({name: "world"})
//
// # Key-Value Store
//
// [KV] is an in-memory store shared between Go and scripts, bounded by
// [KVConfig]. [KV.Register] installs kv_get, kv_set, kv_delete and kv_keys:
//
//	kv := hostfunc.NewKV(hostfunc.DefaultKVConfig())
//	kv.Register(registry)
//
// Values set from scripts keep their exported Go form, so native code can read
// what a script wrote, and the reverse.
package hostfunc
