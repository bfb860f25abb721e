// Package honeycomb embeds a WebAssembly adapter runtime inside a native
// storage-engine host and exposes a stable calling surface into it.
//
// The adapter is one or more WebAssembly modules listed on a classpath. Each
// module exports its entry points as Class#member functions and its enum
// markers as Class#NAME globals. The bridge creates the runtime once per
// process, resolves every symbol it will ever need up front, attaches native
// goroutines on demand and turns uncaught adapter exceptions into errors.
//
// # Package Layout
//
//	honeycomb/           Root package with the Memory and Allocator interfaces
//	├── bridge/          Process context: bootstrap, adapter init, fatal policy
//	├── config/          Classpath locator, options file and TOML settings
//	├── engine/          wazero-backed runtime: VMs, Envs, calls, exceptions
//	├── symbols/         Write-once cache of resolved class/method/field handles
//	├── attach/          Per-goroutine reference-counted attachment
//	├── exception/       Pending exception rendering and severity handling
//	├── metadata/        Field description to ColumnMetadata conversion
//	├── handler/         Storage-engine call sites built on the bridge
//	├── resource/        Local and global reference tables with scoped guards
//	├── logging/         zap console and file logging
//	├── errors/          Structured error types
//	└── wasm/            Export reader and module builder
//
// # Quick Start
//
//	settings, err := config.LoadSettings("/etc/mysql/honeycomb/honeycomb.toml")
//	if err != nil {
//	    return err
//	}
//	policy := bridge.NewPolicy(logger, settings.Bridge.FatalMessage)
//	b, err := bridge.Create(ctx, settings, bridge.WithLogger(logger), bridge.WithPolicy(policy))
//	if err != nil {
//	    policy.Escalate(err) // logs, prints the operator message, exits
//	}
//	defer b.Close(ctx)
//
//	h := handler.New(b)
//	if _, err := h.CreateTable(ctx, table); err != nil {
//	    // one operation failed, the runtime is still healthy
//	}
//
// # Adapter Contract
//
// Signatures are WIT function types. Parameters and results are flattened to
// core WebAssembly types: integers up to 32 bits, bool and char become i32,
// 64-bit integers i64, floats keep their width, a string parameter becomes a
// (ptr, len) pair allocated through the module's cabi_realloc export, and a
// string result is an i64 packing len<<32 | ptr. Instance methods take the
// receiver object handle as a leading i32.
//
// Adapters raise exceptions by calling the host imports honeycomb.throw or
// honeycomb.throw_message, or by trapping.
package honeycomb
