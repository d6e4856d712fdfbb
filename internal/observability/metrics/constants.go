// Package metrics provides constants used across metric definitions.
package metrics

// Provider label values.
const (
	// ProviderWAQI is the provider label for the aqicn.org feed.
	ProviderWAQI = "waqi"
	// ProviderNominatim is the provider label for the Nominatim geocoder.
	ProviderNominatim = "nominatim"
)

// Status and result label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Operation label values.
const (
	// OpFeed is a WAQI geo feed lookup.
	OpFeed = "feed"
	// OpSearch is a forward geocoding lookup.
	OpSearch = "search"
	// OpReverse is a reverse geocoding lookup.
	OpReverse = "reverse"
	// OpDbInsert represents database insert operations.
	OpDbInsert = "db_insert"
	// OpDbQuery represents database query operations.
	OpDbQuery = "db_query"
)

// Fallback reasons recorded when a sample field or place name is synthesized.
const (
	FallbackNetwork   = "network"
	FallbackStatus    = "status"
	FallbackMalformed = "malformed"
	FallbackField     = "missing_field"
	FallbackDisabled  = "disabled"
	FallbackEmpty     = "empty_result"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~10s range).
	BucketStart10ms = 0.01
	// BucketStart128B is the starting bucket for payload size histograms.
	BucketStart128B = 128.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
)
