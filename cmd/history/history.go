package history

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/ecocarto/internal/conf"
	trend "github.com/tphakala/ecocarto/internal/history"
	"github.com/tphakala/ecocarto/internal/presentation"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

// Command creates the history command, which prints a synthesized trend.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		start, end, year int
		seed             uint64
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the historical air quality and vegetation trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") && settings.History.StartYear > 0 {
				start = settings.History.StartYear
			}
			if !cmd.Flags().Changed("end") && settings.History.EndYear > 0 {
				end = settings.History.EndYear
			}
			if !cmd.Flags().Changed("year") {
				year = end
			}

			src := synthetic.Default()
			if cmd.Flags().Changed("seed") {
				src = synthetic.NewSeeded(seed)
			}

			series, err := trend.Generate(src, start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tAQI\tVEGETATION")
			for _, p := range series.Points {
				fmt.Fprintf(tw, "%d\t%d\t%d%%\n", p.Year, p.AQI, p.Vegetation)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			view := presentation.NewHistoryView(series, year, true)
			fmt.Fprintf(out, "\n%d: AQI %s, vegetation %s\n", view.SelectedYear, view.AQI, view.Vegetation)
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", trend.DefaultStartYear, "First year of the series")
	cmd.Flags().IntVar(&end, "end", trend.DefaultEndYear, "Last year of the series")
	cmd.Flags().IntVar(&year, "year", trend.DefaultEndYear, "Year for the readout")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for a reproducible series")

	return cmd
}
