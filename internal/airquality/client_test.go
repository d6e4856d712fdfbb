package airquality

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ecoerrors "github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/httpclient"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
)

const (
	testBaseURL = "https://waqi.test"
	feedURL     = "https://waqi.test/feed/geo:40.7128;-74.006/"
)

const okPayload = `{
  "status": "ok",
  "data": {
    "aqi": 42,
    "city": {"name": "New York"},
    "time": {"iso": "2024-05-01T12:00:00-04:00"},
    "iaqi": {"t": {"v": 21.5}, "h": {"v": 63}}
  }
}`

// newMockedClient returns a client whose transport is intercepted by httpmock
func newMockedClient(t *testing.T, cfg Config) (*Client, *metrics.ProviderMetrics) {
	t.Helper()

	hc := httpclient.New(nil)
	httpmock.ActivateNonDefault(hc.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	m, err := metrics.NewProviderMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	if cfg.BaseURL == "" {
		cfg.BaseURL = testBaseURL
	}
	if cfg.Token == "" {
		cfg.Token = "testtoken"
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
	}

	client, err := NewClient(cfg, hc, m)
	require.NoError(t, err)
	return client, m
}

func TestFetchParsesCompletePayload(t *testing.T) {
	client, _ := newMockedClient(t, Config{})

	httpmock.RegisterResponder("GET", feedURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "testtoken", req.URL.Query().Get("token"))
		return httpmock.NewStringResponse(http.StatusOK, okPayload), nil
	})

	reading, err := client.Fetch(t.Context(), 40.7128, -74.0060)
	require.NoError(t, err)

	assert.True(t, reading.Complete())
	assert.InDelta(t, 42, reading.AQI, 0)
	assert.InDelta(t, 21.5, reading.Temperature, 0)
	assert.InDelta(t, 63, reading.Humidity, 0)
	assert.Equal(t, "New York", reading.Station)
	assert.False(t, reading.ObservedAt.IsZero())
}

func TestFetchTreatsMissingAndZeroFieldsAsAbsent(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantAQI   bool
		wantTemp  bool
		wantHumid bool
	}{
		{
			name:      "no iaqi block",
			payload:   `{"status":"ok","data":{"aqi":77}}`,
			wantAQI:   true,
			wantTemp:  false,
			wantHumid: false,
		},
		{
			name:      "dash aqi from offline station",
			payload:   `{"status":"ok","data":{"aqi":"-","iaqi":{"t":{"v":18},"h":{"v":55}}}}`,
			wantAQI:   false,
			wantTemp:  true,
			wantHumid: true,
		},
		{
			name:      "zero values",
			payload:   `{"status":"ok","data":{"aqi":0,"iaqi":{"t":{"v":0},"h":{"v":40}}}}`,
			wantAQI:   false,
			wantTemp:  false,
			wantHumid: true,
		},
		{
			name:      "negative temperature is kept",
			payload:   `{"status":"ok","data":{"aqi":12,"iaqi":{"t":{"v":-4.5},"h":{"v":80}}}}`,
			wantAQI:   true,
			wantTemp:  true,
			wantHumid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newMockedClient(t, Config{})
			httpmock.RegisterResponder("GET", feedURL, httpmock.NewStringResponder(http.StatusOK, tt.payload))

			reading, err := client.Fetch(t.Context(), 40.7128, -74.0060)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAQI, reading.HasAQI)
			assert.Equal(t, tt.wantTemp, reading.HasTemperature)
			assert.Equal(t, tt.wantHumid, reading.HasHumidity)
		})
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		responder  httpmock.Responder
		category   ecoerrors.ErrorCategory
		wantReason string
	}{
		{
			name:       "network failure",
			responder:  httpmock.NewErrorResponder(errors.New("connection refused")),
			category:   ecoerrors.CategoryNetwork,
			wantReason: metrics.FallbackNetwork,
		},
		{
			name:       "http error status",
			responder:  httpmock.NewStringResponder(http.StatusBadGateway, "bad gateway"),
			category:   ecoerrors.CategoryHTTP,
			wantReason: metrics.FallbackStatus,
		},
		{
			name:       "feed error status",
			responder:  httpmock.NewStringResponder(http.StatusOK, `{"status":"error","data":"Invalid key"}`),
			category:   ecoerrors.CategoryProvider,
			wantReason: metrics.FallbackStatus,
		},
		{
			name:       "not json",
			responder:  httpmock.NewStringResponder(http.StatusOK, "<html>maintenance</html>"),
			category:   ecoerrors.CategoryFileParsing,
			wantReason: metrics.FallbackMalformed,
		},
		{
			name:       "data not an object",
			responder:  httpmock.NewStringResponder(http.StatusOK, `{"status":"ok","data":"nope"}`),
			category:   ecoerrors.CategoryFileParsing,
			wantReason: metrics.FallbackMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newMockedClient(t, Config{})
			httpmock.RegisterResponder("GET", feedURL, tt.responder)

			reading, err := client.Fetch(t.Context(), 40.7128, -74.0060)
			require.Error(t, err)
			assert.Nil(t, reading)
			assert.True(t, ecoerrors.IsCategory(err, tt.category), "got %v", err)
			assert.Equal(t, tt.wantReason, FailureReason(err))
		})
	}
}

func TestFetchUsesCache(t *testing.T) {
	client, m := newMockedClient(t, Config{CacheTTL: time.Minute})
	httpmock.RegisterResponder("GET", feedURL, httpmock.NewStringResponder(http.StatusOK, okPayload))

	first, err := client.Fetch(t.Context(), 40.7128, -74.0060)
	require.NoError(t, err)
	first.AQI = 999 // callers must not be able to poison the cache

	second, err := client.Fetch(t.Context(), 40.7128, -74.0060)
	require.NoError(t, err)

	assert.InDelta(t, 42, second.AQI, 0)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, 2, testutil.CollectAndCount(m, "ecocarto_provider_cache_total"))
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	client, _ := newMockedClient(t, Config{})
	httpmock.RegisterResponder("GET", feedURL, httpmock.NewStringResponder(http.StatusOK, okPayload))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := client.Fetch(ctx, 40.7128, -74.0060)
	require.Error(t, err)
	assert.True(t, ecoerrors.IsCategory(err, ecoerrors.CategoryCancellation))
	assert.Equal(t, metrics.FallbackNetwork, FailureReason(err))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestFeedURLEscapesToken(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{BaseURL: "https://waqi.test/", Token: "a b&c"}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://waqi.test/feed/geo:1.5;-2.25/?token=a+b%26c", client.feedURL(1.5, -2.25))
}
