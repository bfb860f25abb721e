//go:build !linux && !darwin

package bridge

// The host only handles termination signals on linux and darwin.
func installSignalHandler(*Bridge) func() {
	return nil
}
