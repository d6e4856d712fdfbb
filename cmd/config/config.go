package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/ecocarto/internal/conf"
)

// Command creates the config command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(showCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := conf.Dump(settings)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if file := conf.ConfigFileUsed(); file != "" {
				fmt.Fprintf(out, "# loaded from %s\n", file)
			} else {
				fmt.Fprintln(out, "# no config file found, using defaults and environment")
			}
			_, err = out.Write(data)
			return err
		},
	}
}
