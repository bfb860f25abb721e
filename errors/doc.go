// Package errors provides structured error types for the honeycomb runtime bridge.
//
// Errors are categorized by Phase (where the error occurred), Kind (error category)
// and Severity (whether the process may continue). Leaf routines never terminate
// the process themselves; they return a fatal *Error and a single top-level policy
// decides to escalate.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindSignatureMismatch).
//		Symbol("HBaseAdapter", "createTable").
//		Signature("func(table: string, columns: u32) -> bool").
//		Detail("adapter exports (i32) -> i32").
//		Fatal().
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SymbolMissing("Row", "getUUID", "func() -> u32")
//	err := errors.AlreadyExists("embedded runtime")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
