package engine

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/sys"
)

const (
	// TrapClass names exceptions raised by a WebAssembly trap.
	TrapClass = "wasm.Trap"
	// ExitClass names exceptions raised when the adapter exits its module.
	ExitClass = "wasm.Exit"
	// ErrorClass names exceptions raised by a host-side call failure.
	ErrorClass = "host.Error"
)

// Exception is an uncaught adapter exception pending on an Env.
//
// Object is the adapter's Throwable handle when the adapter called
// honeycomb.throw; it is 0 for traps and throw_message.
type Exception struct {
	Cause   error
	Class   string
	Message string
	Frames  []string
	Object  Object
	module  int
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Class
	}
	return e.Class + ": " + e.Message
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

// Thrown reports whether the exception carries an adapter Throwable.
func (e *Exception) Thrown() bool {
	return e.Object != 0
}

const (
	wasmErrorPrefix = "wasm error: "
	stackMarker     = "\nwasm stack trace:\n"
)

// exceptionFromError converts a failed call into an exception.
// wazero reports traps as "wasm error: <msg>\nwasm stack trace:\n\t<frame>...".
func exceptionFromError(err error) *Exception {
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		return &Exception{
			Class:   ExitClass,
			Message: fmt.Sprintf("module exited with code %d", exit.ExitCode()),
			Cause:   err,
		}
	}

	text := err.Error()
	head, trace, hasTrace := strings.Cut(text, stackMarker)
	ex := &Exception{Class: ErrorClass, Message: head, Cause: err}
	if strings.HasPrefix(head, wasmErrorPrefix) {
		ex.Class = TrapClass
		ex.Message = strings.TrimPrefix(head, wasmErrorPrefix)
	}
	if hasTrace {
		for _, line := range strings.Split(trace, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				ex.Frames = append(ex.Frames, line)
			}
		}
	}
	return ex
}
