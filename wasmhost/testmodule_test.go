package wasmhost_test

// Value type bytes of the wasm binary format.
const (
	i32 byte = 0x7f
	i64 byte = 0x7e
	f64 byte = 0x7c
)

type testFunc struct {
	name    string
	params  []byte
	results []byte
	body    []byte // instructions, without locals or the final end
}

func uleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func section(id byte, payload []byte) []byte {
	out := append([]byte{id}, uleb(len(payload))...)
	return append(out, payload...)
}

func vec(items [][]byte) []byte {
	out := uleb(len(items))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// buildModule assembles a module exporting one function per entry.
func buildModule(funcs ...testFunc) []byte {
	var types, indices, exports, bodies [][]byte
	for i, f := range funcs {
		typ := []byte{0x60}
		typ = append(typ, uleb(len(f.params))...)
		typ = append(typ, f.params...)
		typ = append(typ, uleb(len(f.results))...)
		typ = append(typ, f.results...)
		types = append(types, typ)

		indices = append(indices, uleb(i))

		exp := append(uleb(len(f.name)), f.name...)
		exp = append(exp, 0x00)
		exp = append(exp, uleb(i)...)
		exports = append(exports, exp)

		code := append([]byte{0x00}, f.body...) // no locals
		code = append(code, 0x0b)
		bodies = append(bodies, append(uleb(len(code)), code...))
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, vec(types))...)
	out = append(out, section(3, vec(indices))...)
	out = append(out, section(7, vec(exports))...)
	out = append(out, section(10, vec(bodies))...)
	return out
}

var mathModule = buildModule(
	testFunc{name: "inc", params: []byte{i32}, results: []byte{i32},
		body: []byte{0x20, 0x00, 0x41, 0x01, 0x6a}}, // local.get 0; i32.const 1; i32.add
	testFunc{name: "add64", params: []byte{i64, i64}, results: []byte{i64},
		body: []byte{0x20, 0x00, 0x20, 0x01, 0x7c}}, // i64.add
	testFunc{name: "half", params: []byte{f64}, results: []byte{f64},
		body: []byte{0x20, 0x00, 0x44, 0, 0, 0, 0, 0, 0, 0, 0x40, 0xa3}}, // f64.const 2; f64.div
	testFunc{name: "noop"},
	testFunc{name: "pair", params: []byte{i32}, results: []byte{i32, i32},
		body: []byte{0x20, 0x00, 0x20, 0x00}},
	testFunc{name: "trap", body: []byte{0x00}},                         // unreachable
	testFunc{name: "spin", body: []byte{0x03, 0x40, 0x0c, 0x00, 0x0b}}, // loop br 0 end
)
