package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/ecocarto/cmd/classify"
	configcmd "github.com/tphakala/ecocarto/cmd/config"
	"github.com/tphakala/ecocarto/cmd/history"
	"github.com/tphakala/ecocarto/cmd/lookup"
	"github.com/tphakala/ecocarto/cmd/serve"
	"github.com/tphakala/ecocarto/cmd/version"
	"github.com/tphakala/ecocarto/internal/app"
	"github.com/tphakala/ecocarto/internal/conf"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which are loaded before any of them runs.
func RootCommand(buildVersion string) *cobra.Command {
	settings := &conf.Settings{}
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "ecocarto",
		Short:         "EcoCarto eco-zone mapping",
		Long:          "Classify locations into green, yellow and red eco zones from air quality and vegetation readings.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default searches ./, ~/.config/ecocarto, /etc/ecocarto)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	versionCmd := version.Command(buildVersion)

	rootCmd.AddCommand(
		serve.Command(settings, buildVersion),
		lookup.Command(settings, buildVersion),
		classify.Command(),
		history.Command(settings),
		configcmd.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version and classify need no configuration
		if cmd.Name() == versionCmd.Name() || cmd.Name() == "classify" {
			return nil
		}
		return initialize(settings, configFile, debug, buildVersion)
	}

	return rootCmd
}

// initialize loads settings in place and sets up logging and telemetry.
func initialize(settings *conf.Settings, configFile string, debug bool, buildVersion string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if debug {
		loaded.Debug = true
		viper.Set("debug", true)
	}
	*settings = *loaded

	if _, err := app.InitLogging(settings); err != nil {
		return err
	}
	app.InitTelemetry(settings, buildVersion)
	return nil
}
