package environment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ecocarto/internal/airquality"
	"github.com/tphakala/ecocarto/internal/ecoscore"
	ecoerrors "github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

type fakeProvider struct {
	reading *airquality.Reading
	err     error
	calls   int
}

func (p *fakeProvider) Fetch(_ context.Context, _, _ float64) (*airquality.Reading, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	copied := *p.reading
	return &copied, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestFetcher(t *testing.T, provider airquality.Provider, src synthetic.Source) (*Fetcher, *metrics.ProviderMetrics, *metrics.EcoZoneMetrics) {
	t.Helper()
	registry := prometheus.NewRegistry()
	pm, err := metrics.NewProviderMetrics(registry)
	require.NoError(t, err)
	zm, err := metrics.NewEcoZoneMetrics(registry)
	require.NoError(t, err)

	f := NewFetcher(provider,
		WithSource(src),
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(pm, zm))
	return f, pm, zm
}

func TestFetchLiveReading(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{reading: &airquality.Reading{
		AQI: 40, HasAQI: true,
		Temperature: 18.5, HasTemperature: true,
		Humidity: 70, HasHumidity: true,
	}}
	src := synthetic.NewSequence(0.6)
	f, pm, _ := newTestFetcher(t, provider, src)

	sample := f.Fetch(t.Context(), 40.7128, -74.0060)

	assert.Equal(t, SourceLive, sample.Source())
	assert.InDelta(t, 40, sample.AQI(), 0)
	assert.InDelta(t, 18.5, sample.Temperature(), 0)
	assert.InDelta(t, 70, sample.Humidity(), 0)
	assert.InDelta(t, 0.6, sample.NDVI(), 1e-9)
	assert.Equal(t, ecoscore.Green, sample.EcoScore())
	assert.Equal(t, fixedNow, sample.Timestamp())
	assert.Equal(t, 1, src.Draws(), "only ndvi is synthesized for a complete reading")
	assert.Equal(t, 0, testutil.CollectAndCount(pm, "ecocarto_provider_fallbacks_total"))
}

func TestFetchPartialReadingSynthesizesMissingFields(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{reading: &airquality.Reading{AQI: 75, HasAQI: true}}
	src := synthetic.NewSequence(0.0, 0.5, 0.8)
	f, pm, _ := newTestFetcher(t, provider, src)

	sample := f.Fetch(t.Context(), 1, 2)

	assert.Equal(t, SourcePartial, sample.Source())
	assert.InDelta(t, 75, sample.AQI(), 0)
	assert.InDelta(t, SynthTemperatureMin, sample.Temperature(), 1e-9)
	assert.InDelta(t, 60, sample.Humidity(), 1e-9)
	assert.InDelta(t, 0.7, sample.NDVI(), 1e-9)
	assert.Equal(t, ecoscore.Yellow, sample.EcoScore())
	assert.Equal(t, 3, src.Draws())
	assert.Equal(t, 1, testutil.CollectAndCount(pm, "ecocarto_provider_fallbacks_total"))
}

func TestFetchFallbackStaysInSynthesisRanges(t *testing.T) {
	t.Parallel()

	failures := []error{
		ecoerrors.Newf("dial tcp: connection refused").Category(ecoerrors.CategoryNetwork).Build(),
		ecoerrors.Newf("air quality feed status %q", "error").Category(ecoerrors.CategoryProvider).Build(),
		ecoerrors.Newf("malformed feed payload").Category(ecoerrors.CategoryFileParsing).Build(),
		errors.New("unexpected"),
	}

	for _, failure := range failures {
		provider := &fakeProvider{err: failure}
		f, _, _ := newTestFetcher(t, provider, synthetic.NewSeeded(42))

		for range 200 {
			sample := f.Fetch(t.Context(), 10, 20)

			assert.Equal(t, SourceSynthetic, sample.Source())
			assert.GreaterOrEqual(t, sample.AQI(), SynthAQIMin)
			assert.Less(t, sample.AQI(), SynthAQIMax)
			assert.GreaterOrEqual(t, sample.Temperature(), SynthTemperatureMin)
			assert.Less(t, sample.Temperature(), SynthTemperatureMax)
			assert.GreaterOrEqual(t, sample.Humidity(), SynthHumidityMin)
			assert.Less(t, sample.Humidity(), SynthHumidityMax)
			assert.GreaterOrEqual(t, sample.NDVI(), SynthNDVIMin)
			assert.Less(t, sample.NDVI(), SynthNDVIMax)
			assert.Equal(t, ecoscore.Classify(sample.AQI(), sample.NDVI()), sample.EcoScore())
		}
	}
}

func TestFetchWithoutProviderIsSynthetic(t *testing.T) {
	t.Parallel()

	src := synthetic.NewSequence(0.5)
	f, pm, zm := newTestFetcher(t, nil, src)

	sample := f.Fetch(t.Context(), 0, 0)

	assert.Equal(t, SourceSynthetic, sample.Source())
	assert.InDelta(t, 100, sample.AQI(), 1e-9)
	assert.InDelta(t, 27.5, sample.Temperature(), 1e-9)
	assert.InDelta(t, 60, sample.Humidity(), 1e-9)
	assert.InDelta(t, 0.55, sample.NDVI(), 1e-9)
	assert.Equal(t, ecoscore.Red, sample.EcoScore())
	assert.Equal(t, 4, src.Draws())
	assert.Equal(t, 1, testutil.CollectAndCount(pm, "ecocarto_provider_fallbacks_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(zm, "ecocarto_samples_total"))
}

func TestNewSampleDerivesScoreAndClamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		aqi, ndvi float64
		wantAQI   float64
		wantNDVI  float64
		want      ecoscore.Score
	}{
		{"green", 40, 0.6, 40, 0.6, ecoscore.Green},
		{"negative aqi clamps to zero", -5, 0.9, 0, 0.9, ecoscore.Green},
		{"ndvi above one", 60, 1.7, 60, 1, ecoscore.Yellow},
		{"ndvi below zero", 10, -0.2, 10, 0, ecoscore.Red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewSample(tt.aqi, tt.ndvi, 20, 50, SourceLive, fixedNow)
			assert.InDelta(t, tt.wantAQI, s.AQI(), 0)
			assert.InDelta(t, tt.wantNDVI, s.NDVI(), 0)
			assert.Equal(t, tt.want, s.EcoScore())
		})
	}
}

func TestSampleGauges(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50, NewSample(150, 0.5, 0, 0, SourceLive, fixedNow).AQIGaugePercent(), 1e-9)
	assert.InDelta(t, 100, NewSample(450, 0.5, 0, 0, SourceLive, fixedNow).AQIGaugePercent(), 0)
	assert.InDelta(t, 42, NewSample(0, 0.42, 0, 0, SourceLive, fixedNow).VegetationPercent(), 1e-9)
	assert.True(t, Sample{}.IsZero())
	assert.False(t, NewSample(0, 0, 0, 0, SourceLive, fixedNow).IsZero())
}

func TestSampleJSONRederivesScore(t *testing.T) {
	t.Parallel()

	original := NewSample(42, 0.65, 21.5, 63, SourcePartial, fixedNow)
	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ecoScore":"green"`)
	assert.Contains(t, string(data), `"timestamp":"2024-05-01T12:00:00Z"`)

	var decoded Sample
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)

	// A payload lying about its score is corrected
	var tampered Sample
	require.NoError(t, json.Unmarshal([]byte(`{"aqi":120,"ndvi":0.2,"ecoScore":"green"}`), &tampered))
	assert.Equal(t, ecoscore.Red, tampered.EcoScore())
	assert.Equal(t, SourceSynthetic, tampered.Source())
}
