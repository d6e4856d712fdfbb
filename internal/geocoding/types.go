// Package geocoding resolves place names and coordinates through an
// OpenStreetMap Nominatim service.
package geocoding

import (
	"fmt"
	"strings"
	"time"
)

// Location is a named point. Values are never mutated after creation.
type Location struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

// CoordinateName is the label used when a point cannot be named.
func CoordinateName(lat, lng float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lng)
}

// Suggestion is a search candidate offered while the user types.
type Suggestion struct {
	Location
	// Label is the first segment of the display name, e.g. "Paris".
	Label string `json:"label"`
	// Address is the full display name.
	Address string `json:"address"`
}

// ShortLabel returns the text before the first comma of a display name.
func ShortLabel(displayName string) string {
	label, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(label)
}

// NewSuggestion builds a suggestion from a resolved location.
func NewSuggestion(loc Location) Suggestion {
	return Suggestion{
		Location: loc,
		Label:    ShortLabel(loc.Name),
		Address:  loc.Name,
	}
}

// Config holds configuration for the Nominatim client
type Config struct {
	BaseURL         string
	UserAgent       string
	Timeout         time.Duration
	RateLimit       float64       // requests per second; public Nominatim allows 1
	CacheTTL        time.Duration // zero disables caching
	SuggestionLimit int
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://nominatim.openstreetmap.org",
		Timeout:         10 * time.Second,
		RateLimit:       1,
		CacheTTL:        time.Hour,
		SuggestionLimit: 5,
	}
}

// nominatimPlace is one element of a /search response or a /reverse body.
// Nominatim encodes coordinates as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"`
}
