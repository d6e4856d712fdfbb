package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Command creates the version command.
func Command(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of EcoCarto",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ecocarto %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
