// Package airquality provides a client for the World Air Quality Index (aqicn.org) geo feed
package airquality

import (
	"time"
)

// Reading is what the feed reported for a coordinate. Each field carries a
// presence flag because the feed omits or zeroes readings a station lacks.
type Reading struct {
	AQI            float64   `json:"aqi"`
	HasAQI         bool      `json:"has_aqi"`
	Temperature    float64   `json:"temperature"`
	HasTemperature bool      `json:"has_temperature"`
	Humidity       float64   `json:"humidity"`
	HasHumidity    bool      `json:"has_humidity"`
	Station        string    `json:"station,omitempty"`
	ObservedAt     time.Time `json:"observed_at,omitzero"`
}

// Complete reports whether all three readings are present.
func (r *Reading) Complete() bool {
	return r.HasAQI && r.HasTemperature && r.HasHumidity
}

// Config holds configuration for the WAQI client
type Config struct {
	Token     string        `json:"-"`
	BaseURL   string        `json:"base_url"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit float64       `json:"rate_limit"` // requests per second
	CacheTTL  time.Duration `json:"cache_ttl"`  // zero disables caching
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.waqi.info",
		Timeout:   10 * time.Second,
		RateLimit: 5,
		CacheTTL:  10 * time.Minute,
	}
}
