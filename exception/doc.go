// Package exception reports uncaught adapter exceptions.
//
// After every call into the adapter, callers run CheckAndHandle on their
// Env. A pending exception is always cleared first, so the Env accepts
// calls again, then rendered (class, message and frames) and logged.
// Recoverable exceptions come back as an error the caller uses to fail one
// operation; fatal ones come back as a fatal error for the process policy.
package exception
