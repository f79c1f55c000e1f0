package jscall

// Args is an argument tuple bound to one invocation.
// Values returns the arguments in positional order.
type Args interface {
	Values() []any
}

// Args0 is the empty argument tuple.
type Args0 struct{}

func (Args0) Values() []any { return nil }

// Args1 is a one-argument tuple.
type Args1[A any] struct {
	V1 A
}

func (a Args1[A]) Values() []any { return []any{a.V1} }

// Args2 is a two-argument tuple.
type Args2[A, B any] struct {
	V1 A
	V2 B
}

func (a Args2[A, B]) Values() []any { return []any{a.V1, a.V2} }

// Args3 is a three-argument tuple.
type Args3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

func (a Args3[A, B, C]) Values() []any { return []any{a.V1, a.V2, a.V3} }

// Args4 is a four-argument tuple.
type Args4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

func (a Args4[A, B, C, D]) Values() []any { return []any{a.V1, a.V2, a.V3, a.V4} }

// With1 builds an Args1.
func With1[A any](a A) Args1[A] { return Args1[A]{V1: a} }

// With2 builds an Args2.
func With2[A, B any](a A, b B) Args2[A, B] { return Args2[A, B]{V1: a, V2: b} }

// With3 builds an Args3.
func With3[A, B, C any](a A, b B, c C) Args3[A, B, C] {
	return Args3[A, B, C]{V1: a, V2: b, V3: c}
}

// With4 builds an Args4.
func With4[A, B, C, D any](a A, b B, c C, d D) Args4[A, B, C, D] {
	return Args4[A, B, C, D]{V1: a, V2: b, V3: c, V4: d}
}

// ArgList is an argument list whose length is only known at run time,
// for example arguments parsed from a command line.
type ArgList []any

func (a ArgList) Values() []any { return a }

func (ArgList) variadic() {}

// Arity reports the fixed number of arguments carried by A, or -1 when A
// is an ArgList.
func Arity[A Args]() int {
	var zero A
	if _, ok := any(zero).(interface{ variadic() }); ok {
		return -1
	}
	return len(zero.Values())
}
