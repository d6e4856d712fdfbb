package lookup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/ecocarto/internal/app"
	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/mapview"
	"github.com/tphakala/ecocarto/internal/presentation"
	"github.com/tphakala/ecocarto/internal/report"
	"github.com/tphakala/ecocarto/internal/zones"
)

type options struct {
	lat, lng   float64
	jsonOutput bool
	popups     bool
	reportPath string
}

// Result is the machine-readable lookup output.
type Result struct {
	Location  geocoding.Location     `json:"location"`
	Sample    environment.Sample     `json:"sample"`
	ScoreCard presentation.ScoreCard `json:"scoreCard"`
	Zones     []zones.Zone           `json:"zones"`
}

// Command creates the lookup command, which classifies one place.
func Command(settings *conf.Settings, version string) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "lookup [place]",
		Short: "Classify a place and its surrounding zones",
		Long: "Geocode a place name, or reverse geocode --lat/--lng, then print the eco score card " +
			"and the 5x5 zone grid around it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			byCoordinates := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")
			if query == "" && !byCoordinates {
				return fmt.Errorf("provide a place name or --lat and --lng")
			}

			services, err := app.New(cmd.Context(), settings, version, app.Options{})
			if err != nil {
				return err
			}
			defer services.Close()

			var loc geocoding.Location
			if byCoordinates {
				loc = geocoding.Location{Lat: opts.lat, Lng: opts.lng}
				name, err := services.Geocoder.Reverse(cmd.Context(), opts.lat, opts.lng)
				if err != nil || name == "" {
					name = geocoding.CoordinateName(opts.lat, opts.lng)
				}
				loc.Name = name
			} else {
				loc, err = services.Geocoder.Search(cmd.Context(), query)
				if err != nil {
					return fmt.Errorf("location %q not found: %w", query, err)
				}
			}

			sample := services.Fetcher.Fetch(cmd.Context(), loc.Lat, loc.Lng)
			result := Result{
				Location:  loc,
				Sample:    sample,
				ScoreCard: presentation.NewScoreCard(loc.Name, sample),
				Zones:     services.Zones.Generate(loc.Lat, loc.Lng, sample),
			}

			if opts.reportPath != "" {
				if err := writeReport(opts.reportPath, result.Zones); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return Print(out, result, opts.popups)
		},
	}

	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "Latitude, instead of a place name")
	cmd.Flags().Float64Var(&opts.lng, "lng", 0, "Longitude, instead of a place name")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of tables")
	cmd.Flags().BoolVar(&opts.popups, "popups", false, "Print the map popup text of every zone")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write the plantation report to this file")
	cmd.MarkFlagsRequiredTogether("lat", "lng")

	return cmd
}

// Print renders the score card and zone grid as text.
func Print(w io.Writer, r Result, popups bool) error {
	card := r.ScoreCard
	fmt.Fprintf(w, "%s\n", card.Location)
	fmt.Fprintf(w, "Eco score: %s (%s, grade %s)\n", card.EcoScore.Label(), card.Status, card.Grade)
	fmt.Fprintf(w, "Source:    %s\n\n", card.Source)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range []*presentation.Metric{card.AirQuality, card.Vegetation, card.Temperature, card.Humidity} {
		if m != nil {
			fmt.Fprintf(tw, "%s\t%s\n", m.Label, m.Value)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ZONE\tLAT\tLNG\tAQI\tNDVI\tSCORE")
	for _, z := range r.Zones {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.1f\t%.2f\t%s\n", z.ID, z.Lat, z.Lng, z.AQI, z.NDVI, z.EcoScore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := zones.Summarize(r.Zones)
	fmt.Fprintf(w, "\n%s\n", counts)

	if popups {
		for _, z := range r.Zones {
			fmt.Fprintf(w, "\n[%s]\n%s\n", z.ID, mapview.NewOverlay(z).PopupText)
		}
	}
	return nil
}

func writeReport(path string, batch []zones.Zone) error {
	body, err := report.Build(batch).Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
