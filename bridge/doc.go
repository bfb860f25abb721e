// Package bridge bootstraps the process runtime and ties the other
// components together.
//
// Create runs once at process start. It builds the bootstrap options,
// creates the runtime, resolves the symbol cache and initializes the
// adapter on the calling goroutine, then detaches it. Afterwards every
// call site goes through Invoke, which attaches the calling goroutine,
// runs the call with the cached handles, checks for an uncaught adapter
// exception and releases the attachment.
//
// Fatal errors end the process through a Policy; everything else fails a
// single operation.
package bridge
