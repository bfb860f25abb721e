package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/honeycomb/config"
	"github.com/wippyai/honeycomb/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	settings   *config.Settings
	logger     *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	// console-only until the settings are loaded
	a.logger, _ = logging.New(config.Log{})

	rootCmd := &cobra.Command{
		Use:   "honeycomb",
		Short: "Bootstraps and inspects the honeycomb adapter runtime",
		Long: `honeycomb creates the embedded adapter runtime the way the storage engine does:
it reads the classpath and runtime options files, resolves every adapter symbol and
runs the adapter's initialization entry point.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Close()
		},
	}
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the honeycomb.toml settings file. Defaults to built-in settings.")
	a.logger.AddLevelFlag(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newOptionsCmd(a))
	rootCmd.AddCommand(newSymbolsCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.LoadSettings(a.configPath)
	if err != nil {
		return err
	}
	a.settings = settings

	logger, err := logging.New(settings.Log)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("verbosity") {
		logger.SetLevel(a.logger.Level())
	}
	_ = a.logger.Close()
	a.logger = logger
	a.logger.Debug("settings loaded", zap.String("path", settings.Path))
	return nil
}
