// Package session holds the interactive state of one map session and
// applies user events to it: searches, suggestion picks, map clicks, year
// changes and the historical toggle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/history"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/mapview"
	"github.com/tphakala/ecocarto/internal/mqtt"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
	"github.com/tphakala/ecocarto/internal/synthetic"
	"github.com/tphakala/ecocarto/internal/zones"
)

// SampleFetcher produces the environmental sample for a coordinate. It must
// not fail; environment.Fetcher is the production implementation.
type SampleFetcher interface {
	Fetch(ctx context.Context, lat, lng float64) environment.Sample
}

// Config tunes session behaviour.
type Config struct {
	// Debounce delays suggestion lookups after the last query change.
	Debounce time.Duration
	// MinQueryLength is the shortest query that triggers suggestions.
	MinQueryLength int
	// SuggestionLimit caps the number of suggestions.
	SuggestionLimit int
	// StartYear and EndYear bound the selectable years and the history series.
	StartYear int
	EndYear   int
	// DefaultCenter is where the map opens before any location is selected.
	DefaultCenter mapview.Marker
	Zoom          int
	// RequestTimeout bounds debounced suggestion lookups, which have no caller context.
	RequestTimeout time.Duration
}

// DefaultConfig returns the standard session configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:        300 * time.Millisecond,
		MinQueryLength:  3,
		SuggestionLimit: 5,
		StartYear:       history.DefaultStartYear,
		EndYear:         history.DefaultEndYear,
		DefaultCenter:   mapview.Marker{Lat: 40.7128, Lng: -74.0060, Name: "New York"},
		Zoom:            mapview.DefaultZoom,
		RequestTimeout:  10 * time.Second,
	}
}

// Dependencies are the collaborators a session drives. Fetcher and
// Geocoder are required; everything else is optional.
type Dependencies struct {
	Fetcher   SampleFetcher
	Geocoder  geocoding.Geocoder
	Zones     *zones.Generator
	Random    synthetic.Source // history series draws
	Publisher *mqtt.Publisher
	Archive   datastore.Interface
	Metrics   *metrics.EcoZoneMetrics
}

// Event names recorded in metrics.
const (
	EventSearch          = "search"
	EventSuggestionPick  = "suggestion_pick"
	EventMapClick        = "map_click"
	EventYearChange      = "year_change"
	EventToggleHistory   = "toggle_historical"
	EventQueryChange     = "query_change"
	staleKindLocation    = "location"
	staleKindSuggestions = "suggestions"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the session package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("session")
	})
	return serviceLogger
}
