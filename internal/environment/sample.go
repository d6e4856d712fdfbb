// Package environment produces environmental samples for a coordinate,
// combining the live air quality feed with synthesized fallbacks.
package environment

import (
	"encoding/json"
	"time"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

// Source records where a sample's readings came from.
type Source string

const (
	// SourceLive means aqi, temperature and humidity all came from the feed.
	SourceLive Source = "live"
	// SourcePartial means the feed answered but at least one field was synthesized.
	SourcePartial Source = "partial"
	// SourceSynthetic means no usable feed payload; every field is synthesized.
	SourceSynthetic Source = "synthetic"
	// SourceProvided means the caller supplied the readings.
	SourceProvided Source = "provided"
)

// Synthesis ranges for fallback values, [min, max).
const (
	SynthAQIMin         = 50.0
	SynthAQIMax         = 150.0
	SynthTemperatureMin = 20.0
	SynthTemperatureMax = 35.0
	SynthHumidityMin    = 40.0
	SynthHumidityMax    = 80.0
	SynthNDVIMin        = 0.3
	SynthNDVIMax        = 0.8
)

// AQIGaugeMax is the AQI at which display gauges saturate.
const AQIGaugeMax = 300.0

// Sample is an immutable environmental reading for one location. Its eco
// score is always derived from its own aqi and ndvi.
type Sample struct {
	aqi         float64
	ndvi        float64
	temperature float64
	humidity    float64
	score       ecoscore.Score
	source      Source
	timestamp   time.Time
}

// NewSample builds a sample, clamping aqi to >= 0 and ndvi to [0,1] and
// deriving the eco score.
func NewSample(aqi, ndvi, temperature, humidity float64, source Source, timestamp time.Time) Sample {
	aqi = max(0, aqi)
	ndvi = synthetic.Clamp(ndvi, 0, 1)
	return Sample{
		aqi:         aqi,
		ndvi:        ndvi,
		temperature: temperature,
		humidity:    humidity,
		score:       ecoscore.Classify(aqi, ndvi),
		source:      source,
		timestamp:   timestamp,
	}
}

// AQI returns the air quality index, never negative.
func (s Sample) AQI() float64 { return s.aqi }

// NDVI returns the vegetation index in [0,1].
func (s Sample) NDVI() float64 { return s.ndvi }

func (s Sample) Temperature() float64 { return s.temperature }

func (s Sample) Humidity() float64 { return s.humidity }

// EcoScore returns the score derived from AQI and NDVI.
func (s Sample) EcoScore() ecoscore.Score { return s.score }

func (s Sample) Source() Source { return s.source }

func (s Sample) Timestamp() time.Time { return s.timestamp }

// IsZero reports whether s is the zero Sample, i.e. no sample exists.
func (s Sample) IsZero() bool { return s.score == ecoscore.Unknown }

// AQIGaugePercent returns the AQI on a 0-100 gauge saturating at AQIGaugeMax.
func (s Sample) AQIGaugePercent() float64 { return min(100, s.aqi/AQIGaugeMax*100) }

// VegetationPercent returns NDVI as a percentage.
func (s Sample) VegetationPercent() float64 { return s.ndvi * 100 }

type sampleJSON struct {
	AQI         float64        `json:"aqi"`
	NDVI        float64        `json:"ndvi"`
	Temperature float64        `json:"temperature"`
	Humidity    float64        `json:"humidity"`
	EcoScore    ecoscore.Score `json:"ecoScore"`
	Source      Source         `json:"source"`
	Timestamp   time.Time      `json:"timestamp"`
}

// MarshalJSON encodes the sample with an ISO-8601 timestamp.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(sampleJSON{
		AQI:         s.aqi,
		NDVI:        s.ndvi,
		Temperature: s.temperature,
		Humidity:    s.humidity,
		EcoScore:    s.score,
		Source:      s.source,
		Timestamp:   s.timestamp.UTC(),
	})
}

// UnmarshalJSON decodes a sample. Any ecoScore in the payload is ignored
// and re-derived from aqi and ndvi.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw sampleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	source := raw.Source
	if source == "" {
		source = SourceSynthetic
	}
	*s = NewSample(raw.AQI, raw.NDVI, raw.Temperature, raw.Humidity, source, raw.Timestamp)
	return nil
}
