// Package engine hosts the adapter modules in a wazero runtime and provides
// the native calling surface into them.
//
// # Types
//
//	VM       - the process runtime, created once by CreateVM
//	Env      - the execution context of one attached goroutine
//	ClassRef - a local or global reference to a class
//	MethodID, StaticMethodID, StaticFieldID - resolved member handles
//
// # Classes
//
// A classpath entry is a WebAssembly module. Every export named Class#member
// belongs to Class: functions are methods, immutable globals are static
// fields. When two entries define the same class, the earlier one wins.
//
// # Calls
//
// Member handles are resolved once and stay valid for the VM's life; they are
// checked against the exported core types when resolved. Arguments are Go
// values lowered by WIT type:
//
//	WIT Type        Core Representation
//	───────────────────────────────────────
//	bool, u8-u32    i32
//	s8-s32, char    i32
//	u64, s64        i64
//	f32, f64        f32, f64
//	string param    (ptr, len) as i32×2, allocated with cabi_realloc
//	string result   i64 packing len<<32 | ptr
//
// # Exceptions
//
// A call that traps, or during which the adapter calls honeycomb.throw or
// honeycomb.throw_message, leaves an Exception pending on the Env. Further
// calls are refused until ExceptionClear runs.
//
// # Instance Lifecycle
//
// CreateVM instantiates every classpath module once and runs its _initialize
// export. The instances live until the VM is closed and every Env calls into
// them, so adapter state set up by one goroutine is seen by all. Adapter code
// runs one call at a time. Attach only creates the per-goroutine context;
// Detach releases any leaked local references with a warning.
package engine
