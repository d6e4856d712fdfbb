// Package zones generates the 5x5 eco-zone grid around a location from a
// single environmental sample.
package zones

import (
	"fmt"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

const (
	// GridSize is the cell edge length in degrees.
	GridSize = 0.01
	// GridRadius is the number of cells on each side of the center cell.
	GridRadius = 2
	// ZoneCount is the number of zones in every batch.
	ZoneCount = (2*GridRadius + 1) * (2*GridRadius + 1)

	// Per-zone perturbation amplitudes.
	AQIJitter  = 20.0
	NDVIJitter = 0.15
)

// Bounds is a cell's bounding box in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether the point lies inside b, edges included.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

// Zone is one grid cell with its own perturbed readings.
type Zone struct {
	ID       string         `json:"id"`
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	AQI      float64        `json:"aqi"`
	NDVI     float64        `json:"ndvi"`
	EcoScore ecoscore.Score `json:"ecoScore"`
	Bounds   Bounds         `json:"bounds"`
}

// ZoneID returns the identifier of the cell at grid offset (i, j).
func ZoneID(i, j int) string {
	return fmt.Sprintf("zone_%d_%d", i, j)
}

// CellBounds returns the bounds of a cell centered on (lat, lng).
func CellBounds(lat, lng float64) Bounds {
	half := GridSize / 2
	return Bounds{
		North: lat + half,
		South: lat - half,
		East:  lng + half,
		West:  lng - half,
	}
}

// Generator builds zone batches.
type Generator struct {
	src     synthetic.Source
	metrics *metrics.EcoZoneMetrics
}

// NewGenerator creates a generator drawing perturbations from src. A nil
// src uses the default random source; nil metrics disables instrumentation.
func NewGenerator(src synthetic.Source, m *metrics.EcoZoneMetrics) *Generator {
	if src == nil {
		src = synthetic.Default()
	}
	return &Generator{src: src, metrics: m}
}

// Generate returns the 25 zones around the center, row i outer and column j
// inner, each scored from its own perturbed readings. Two draws are taken
// per zone, aqi first.
func (g *Generator) Generate(centerLat, centerLng float64, sample environment.Sample) []Zone {
	batch := make([]Zone, 0, ZoneCount)

	for i := -GridRadius; i <= GridRadius; i++ {
		for j := -GridRadius; j <= GridRadius; j++ {
			lat := centerLat + float64(i)*GridSize
			lng := centerLng + float64(j)*GridSize

			aqi := max(0, sample.AQI()+synthetic.Uniform(g.src, -AQIJitter, AQIJitter))
			ndvi := synthetic.Clamp(sample.NDVI()+synthetic.Uniform(g.src, -NDVIJitter, NDVIJitter), 0, 1)
			score := ecoscore.Classify(aqi, ndvi)

			batch = append(batch, Zone{
				ID:       ZoneID(i, j),
				Lat:      lat,
				Lng:      lng,
				AQI:      aqi,
				NDVI:     ndvi,
				EcoScore: score,
				Bounds:   CellBounds(lat, lng),
			})
			g.metrics.RecordZone(string(score))
		}
	}

	g.metrics.RecordBatch()
	return batch
}

// Summarize tallies the scores of a batch.
func Summarize(batch []Zone) ecoscore.Counts {
	var counts ecoscore.Counts
	for i := range batch {
		counts.Add(batch[i].EcoScore)
	}
	return counts
}

// Find returns the zone with the given id.
func Find(batch []Zone, id string) (Zone, bool) {
	for i := range batch {
		if batch[i].ID == id {
			return batch[i], true
		}
	}
	return Zone{}, false
}
