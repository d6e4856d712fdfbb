// Package presentation formats session state for display. It never mutates
// the state it reads.
package presentation

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/environment"
)

// Metric is one labelled reading on the score card.
type Metric struct {
	Label        string  `json:"label"`
	Value        string  `json:"value"`
	GaugePercent float64 `json:"gaugePercent,omitempty"`
}

// ScoreCard is the eco score summary for the selected location.
type ScoreCard struct {
	Location    string         `json:"location"`
	EcoScore    ecoscore.Score `json:"ecoScore"`
	Status      string         `json:"status"`
	Grade       string         `json:"grade"`
	Color       string         `json:"color"`
	Source      string         `json:"source,omitempty"`
	AirQuality  *Metric        `json:"airQuality,omitempty"`
	Vegetation  *Metric        `json:"vegetation,omitempty"`
	Temperature *Metric        `json:"temperature,omitempty"`
	Humidity    *Metric        `json:"humidity,omitempty"`
}

// NewScoreCard builds the card. A zero sample yields the unknown card.
func NewScoreCard(locationName string, sample environment.Sample) ScoreCard {
	card := ScoreCard{
		Location: locationName,
		EcoScore: ecoscore.Unknown,
		Status:   ecoscore.Unknown.StatusText(),
		Grade:    ecoscore.Unknown.Grade(),
		Color:    ecoscore.UnknownColor,
	}
	if sample.IsZero() {
		return card
	}

	score := sample.EcoScore()
	card.EcoScore = score
	card.Status = score.StatusText()
	card.Grade = score.Grade()
	card.Color = score.Color()
	card.Source = SourceLabel(sample.Source())
	card.AirQuality = &Metric{
		Label:        "Air Quality",
		Value:        fmt.Sprintf("%.0f AQI", sample.AQI()),
		GaugePercent: sample.AQIGaugePercent(),
	}
	card.Vegetation = &Metric{
		Label:        "Vegetation",
		Value:        fmt.Sprintf("%.0f%%", sample.VegetationPercent()),
		GaugePercent: sample.VegetationPercent(),
	}
	card.Temperature = &Metric{
		Label: "Temperature",
		Value: fmt.Sprintf("%.1f°C", sample.Temperature()),
	}
	card.Humidity = &Metric{
		Label: "Humidity",
		Value: fmt.Sprintf("%.0f%%", sample.Humidity()),
	}
	return card
}

// SourceLabel describes sample provenance for display.
func SourceLabel(source environment.Source) string {
	switch source {
	case environment.SourceLive:
		return "Live data"
	case environment.SourcePartial:
		return "Live data (partially simulated)"
	case environment.SourceSynthetic:
		return "Simulated data"
	case environment.SourceProvided:
		return "Provided readings"
	default:
		return cases.Title(language.English).String(string(source))
	}
}
