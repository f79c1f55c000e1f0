// Command hostcall calls JavaScript and WebAssembly functions from the
// command line through the jscall callback handles.
package main

func main() {
	Execute()
}
