package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/engine"
)

func newOptionsCmd(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Prints the runtime options the bootstrap would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printOptions(cmd.OutOrStdout(), check)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Also validate the options as the runtime would.")
	return cmd
}

func (a *app) printOptions(w io.Writer, check bool) error {
	classpath, err := config.ResolveClasspath(a.settings.Bootstrap.ClasspathFile)
	if err != nil {
		return err
	}
	opts := config.LoadOptions(a.settings.Bootstrap.OptionsFile, classpath, a.logger.Logger)
	for _, opt := range opts {
		fmt.Fprintln(w, opt)
	}
	if !check {
		return nil
	}

	parsed, err := engine.ParseOptions(opts)
	if err != nil {
		return err
	}
	for _, ignored := range parsed.Ignored {
		fmt.Fprintf(w, "ignored: %s\n", ignored)
	}
	return nil
}
