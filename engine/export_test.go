package engine

import (
	"testing"

	"github.com/wippyai/honeycomb/internal/registry"
)

// freshRuntime lets t create a VM and forgets it once t's cleanups have run.
func freshRuntime(t *testing.T) {
	t.Helper()
	t.Cleanup(registry.Reset)
}
