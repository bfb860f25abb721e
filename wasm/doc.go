// Package wasm reads and writes the small subset of the WebAssembly binary
// format the bridge needs.
//
// ReadExports lists a module's exports without compiling it, which is how the
// engine learns the classes an adapter defines (the runtime does not expose
// exported globals of a compiled module). Builder assembles modules in memory;
// tests use it to produce adapters that honour or break the bridge contract.
package wasm
