//go:build linux || darwin

package bridge

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// installSignalHandler turns SIGTERM into a host shutdown request. The
// returned func uninstalls it.
func installSignalHandler(b *Bridge) func() {
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	signal.Notify(ch, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-ch:
			b.logger.Info("received termination signal", zap.Stringer("signal", sig))
			b.RequestShutdown()
		case <-stop:
		}
	}()

	return func() {
		signal.Stop(ch)
		close(stop)
	}
}
