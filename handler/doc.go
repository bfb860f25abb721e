// Package handler is the storage engine side of the bridge. Each request
// runs on the calling goroutine: attach, call the adapter through cached
// handles, check for an exception, release. Scans and writers are adapter
// side cursors identified by a handle; any goroutine may continue them.
package handler
