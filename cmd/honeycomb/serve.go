package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wippyai/honeycomb/bridge"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bootstraps the runtime and waits for a termination request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	policy := bridge.NewPolicy(a.logger.Logger, a.settings.Bridge.FatalMessage)
	b, err := bridge.Create(ctx, a.settings,
		bridge.WithLogger(a.logger.Logger),
		bridge.WithPolicy(policy),
		bridge.WithShutdown(stop))
	if err != nil {
		policy.Escalate(err)
		return err
	}

	a.logger.Info("adapter runtime ready")
	select {
	case <-b.Done():
	case <-ctx.Done():
	}
	return b.Close(context.Background())
}
