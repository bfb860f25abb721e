// Package registry records the embedded runtime of the process.
//
// A runtime stays recorded after it is closed: a process creates at most one.
// Reset exists for tests in this module, which create a runtime per test.
package registry

import "sync"

var (
	mu      sync.Mutex
	current any
)

// Lock serializes runtime creation. Hold it across Claimed and Claim.
func Lock() { mu.Lock() }

// Unlock releases the creation lock.
func Unlock() { mu.Unlock() }

// Claimed reports whether a runtime was created. Callers hold the lock.
func Claimed() bool { return current != nil }

// Claim records v as the process runtime. Callers hold the lock.
func Claim(v any) { current = v }

// Current returns the recorded runtime, open or closed, or nil.
func Current() any {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Reset forgets the recorded runtime so a test can create another.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
}
