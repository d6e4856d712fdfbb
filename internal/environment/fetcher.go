package environment

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/ecocarto/internal/airquality"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

// Fetcher turns a coordinate into a Sample. It never fails: anything the
// feed cannot supply is synthesized from the random source.
type Fetcher struct {
	provider airquality.Provider
	src      synthetic.Source
	now      func() time.Time
	provMet  *metrics.ProviderMetrics
	zoneMet  *metrics.EcoZoneMetrics
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithSource sets the random source used for synthesized values.
func WithSource(src synthetic.Source) FetcherOption {
	return func(f *Fetcher) {
		if src != nil {
			f.src = src
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithMetrics enables fallback and sample instrumentation.
func WithMetrics(p *metrics.ProviderMetrics, z *metrics.EcoZoneMetrics) FetcherOption {
	return func(f *Fetcher) {
		f.provMet = p
		f.zoneMet = z
	}
}

// NewFetcher creates a fetcher. A nil provider means the live feed is
// disabled and every sample is synthetic.
func NewFetcher(provider airquality.Provider, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		provider: provider,
		src:      synthetic.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Source returns the random source shared with downstream generators.
func (f *Fetcher) Source() synthetic.Source {
	return f.src
}

// Fetch returns a sample for the coordinate. Fallback values are drawn in
// the order aqi, temperature, humidity, then ndvi.
func (f *Fetcher) Fetch(ctx context.Context, lat, lng float64) Sample {
	reading := f.live(ctx, lat, lng)

	source := SourceSynthetic
	if reading != nil {
		source = SourcePartial
		if reading.Complete() {
			source = SourceLive
		}
	} else {
		reading = &airquality.Reading{}
	}

	aqi := reading.AQI
	if !reading.HasAQI {
		aqi = synthetic.Uniform(f.src, SynthAQIMin, SynthAQIMax)
	}
	temperature := reading.Temperature
	if !reading.HasTemperature {
		temperature = synthetic.Uniform(f.src, SynthTemperatureMin, SynthTemperatureMax)
	}
	humidity := reading.Humidity
	if !reading.HasHumidity {
		humidity = synthetic.Uniform(f.src, SynthHumidityMin, SynthHumidityMax)
	}
	ndvi := synthetic.Uniform(f.src, SynthNDVIMin, SynthNDVIMax)

	sample := NewSample(aqi, ndvi, temperature, humidity, source, f.now())
	f.zoneMet.RecordSample(string(sample.Source()), string(sample.EcoScore()))

	GetLogger().Debug("environmental sample ready",
		logger.Float64("lat", lat),
		logger.Float64("lng", lng),
		logger.Float64("aqi", sample.AQI()),
		logger.Float64("ndvi", sample.NDVI()),
		logger.String("eco_score", string(sample.EcoScore())),
		logger.String("source", string(sample.Source())))

	return sample
}

// live queries the provider, returning nil when no usable payload arrived.
func (f *Fetcher) live(ctx context.Context, lat, lng float64) *airquality.Reading {
	if f.provider == nil {
		f.provMet.RecordFallback(metrics.ProviderWAQI, metrics.FallbackDisabled)
		return nil
	}

	reading, err := f.provider.Fetch(ctx, lat, lng)
	if err != nil {
		reason := airquality.FailureReason(err)
		f.provMet.RecordFallback(metrics.ProviderWAQI, reason)
		GetLogger().Warn("air quality lookup failed, synthesizing sample",
			logger.Float64("lat", lat),
			logger.Float64("lng", lng),
			logger.String("reason", reason),
			logger.Error(err))
		return nil
	}

	if !reading.Complete() {
		f.provMet.RecordFallback(metrics.ProviderWAQI, metrics.FallbackField)
		GetLogger().Info("air quality payload incomplete, synthesizing missing fields",
			logger.Bool("has_aqi", reading.HasAQI),
			logger.Bool("has_temperature", reading.HasTemperature),
			logger.Bool("has_humidity", reading.HasHumidity))
	}
	return reading
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the environment package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("environment")
	})
	return serviceLogger
}
