// Package history synthesizes the yearly air quality and vegetation trend
// shown on the historical chart.
package history

import (
	"math"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

// Default year span of the series.
const (
	DefaultStartYear = 2015
	DefaultEndYear   = 2024
)

// Series shape parameters.
const (
	baseAQIMin      = 80.0
	baseAQISpan     = 40.0
	aqiTrendPerYear = 2.0
	aqiNoise        = 20.0
	aqiFloor        = 20.0

	baseNDVIMin      = 0.4
	baseNDVISpan     = 0.3
	ndviTrendPerYear = 0.01
	ndviFloor        = 0.1
	ndviCeiling      = 0.9
)

// Point is one year of the trend.
type Point struct {
	Year       int `json:"year"`
	AQI        int `json:"aqi"`
	Vegetation int `json:"vegetation"` // percent
}

// Series is the trend for one location, ascending by year.
type Series struct {
	StartYear int     `json:"startYear"`
	EndYear   int     `json:"endYear"`
	Points    []Point `json:"points"`
}

// Generate builds a series over [startYear, endYear]. AQI trends down and
// vegetation trends up toward endYear. Three draws are taken per year.
func Generate(src synthetic.Source, startYear, endYear int) (*Series, error) {
	if startYear > endYear {
		return nil, errors.Newf("history start year %d is after end year %d", startYear, endYear).
			Component("history").
			Category(errors.CategoryValidation).
			Context("start_year", startYear).
			Context("end_year", endYear).
			Build()
	}
	if src == nil {
		src = synthetic.Default()
	}

	series := &Series{
		StartYear: startYear,
		EndYear:   endYear,
		Points:    make([]Point, 0, endYear-startYear+1),
	}

	for year := startYear; year <= endYear; year++ {
		baseAQI := baseAQIMin + src.Float64()*baseAQISpan
		aqiTrend := float64(endYear-year) * aqiTrendPerYear
		aqi := math.Round(max(aqiFloor, baseAQI+aqiTrend+(src.Float64()-0.5)*aqiNoise))

		baseNDVI := baseNDVIMin + src.Float64()*baseNDVISpan
		ndviTrend := float64(year-startYear) * ndviTrendPerYear
		ndvi := synthetic.Clamp(baseNDVI+ndviTrend, ndviFloor, ndviCeiling)

		series.Points = append(series.Points, Point{
			Year:       year,
			AQI:        int(aqi),
			Vegetation: int(math.Round(ndvi * 100)),
		})
	}

	return series, nil
}

// Lookup returns the point for year.
func (s *Series) Lookup(year int) (Point, error) {
	if s != nil && year >= s.StartYear && year <= s.EndYear {
		return s.Points[year-s.StartYear], nil
	}
	return Point{}, errors.Newf("no historical data for year %d", year).
		Component("history").
		Category(errors.CategoryNotFound).
		Context("year", year).
		Build()
}

// Years returns the years covered by the series.
func (s *Series) Years() []int {
	years := make([]int, 0, len(s.Points))
	for _, p := range s.Points {
		years = append(years, p.Year)
	}
	return years
}
