package jscall

import (
	"reflect"
	"regexp"
	"sync"
)

// qualifierRE matches a package qualifier: "pkg.", "example.com/a/pkg." or "mod::".
var qualifierRE = regexp.MustCompile(`\w+::|(?:[\w.\-]+/)*[\w\-]+\.`)

var prettyNames sync.Map // reflect.Type -> string

// PrettyTypeName returns the name of T with package qualifiers removed,
// e.g. "Args1[Point]" for jscall.Args1[example.com/geo.Point].
func PrettyTypeName[T any]() string {
	t := reflect.TypeFor[T]()
	if name, ok := prettyNames.Load(t); ok {
		return name.(string)
	}
	name := PrettifyTypeName(t.String())
	prettyNames.Store(t, name)
	return name
}

// PrettifyTypeName strips namespace qualifiers from a type name.
func PrettifyTypeName(name string) string {
	return qualifierRE.ReplaceAllString(name, "")
}
