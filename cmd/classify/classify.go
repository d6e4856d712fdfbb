package classify

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tphakala/ecocarto/internal/ecoscore"
)

// Command creates the classify command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <aqi> <ndvi>",
		Short: "Classify an AQI and NDVI pair",
		Long: fmt.Sprintf("Green needs AQI below %.0f and NDVI above %.1f; yellow needs AQI below %.0f "+
			"and NDVI above %.1f; everything else is red.",
			ecoscore.GreenMaxAQI, ecoscore.GreenMinNDVI, ecoscore.YellowMaxAQI, ecoscore.YellowMinNDVI),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			aqi, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid aqi %q: %w", args[0], err)
			}
			ndvi, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid ndvi %q: %w", args[1], err)
			}

			score := ecoscore.Classify(aqi, ndvi)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", score, score.StatusText(), score.Grade(), score.Color())
			return nil
		},
	}
	return cmd
}
