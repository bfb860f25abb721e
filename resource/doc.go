// Package resource manages reference lifetimes for the runtime bridge.
//
// A Table maps integer handles to Go values for one reference Kind: Local
// references live for the duration of one native call into the runtime,
// Global references until explicitly released.
//
//	locals := resource.NewTable(resource.Local)
//	ref, err := locals.Acquire(value)
//	if err != nil {
//	    return err
//	}
//	defer ref.Release()
//
// Release is idempotent, so a guard can be released early on one path and
// still be deferred on every other path. Values implementing Dropper are
// dropped when their handle is released or when the table is closed.
//
// Observers receive EventCreated and EventReleased notifications; the engine
// uses them to count outstanding references.
package resource
