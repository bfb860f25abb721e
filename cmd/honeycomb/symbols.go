package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/honeycomb/bridge"
	"github.com/wippyai/honeycomb/symbols"
)

func newSymbolsCmd(a *app) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Bootstraps the runtime and lists the resolved adapter symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			b, err := bridge.Create(ctx, a.settings, bridge.WithLogger(a.logger.Logger), bridge.WithoutSignalHandler())
			if err != nil {
				return err
			}
			defer b.Close(context.Background())

			if interactive {
				return runInspector(b)
			}
			printSymbols(cmd.OutOrStdout(), b.Cache().Methods())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse the adapter's static methods and call them.")
	return cmd
}

func printSymbols(w io.Writer, methods []symbols.Method) {
	for _, s := range symbols.Contract() {
		if s.Kind == symbols.KindStaticField {
			fmt.Fprintf(w, "%-50s %s %s\n", s.Export(), typeStyle.Render(s.Signature), helpStyle.Render("field"))
		}
	}
	for _, m := range methods {
		kind := "method"
		if m.Static != nil {
			kind = "static"
		}
		fmt.Fprintf(w, "%-50s %s %s\n", m.Class+"#"+m.Name, typeStyle.Render(m.Signature), helpStyle.Render(kind))
	}
}
