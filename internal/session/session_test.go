package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/mqtt"
	"github.com/tphakala/ecocarto/internal/observability/metrics"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

var (
	newYork = geocoding.Location{Lat: 40.7128, Lng: -74.0060, Name: "New York, United States"}
	paris   = geocoding.Location{Lat: 48.8534951, Lng: 2.3483915, Name: "Paris, Île-de-France, France"}
)

// fakeGeocoder serves canned answers. Queries listed in gates block until
// their channel is closed.
type fakeGeocoder struct {
	mu           sync.Mutex
	places       map[string]geocoding.Location
	reverseName  string
	reverseErr   error
	suggestions  []geocoding.Suggestion
	suggestCalls []string
	gates        map[string]chan struct{}
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		places: map[string]geocoding.Location{"New York": newYork, "Paris": paris},
		gates:  map[string]chan struct{}{},
	}
}

func (g *fakeGeocoder) Search(ctx context.Context, query string) (geocoding.Location, error) {
	g.mu.Lock()
	gate := g.gates[query]
	loc, ok := g.places[query]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return geocoding.Location{}, ctx.Err()
		}
	}
	if !ok {
		return geocoding.Location{}, errors.Newf("no geocoding result for %q", query).
			Category(errors.CategoryNotFound).
			Build()
	}
	return loc, nil
}

func (g *fakeGeocoder) Suggest(_ context.Context, query string, limit int) ([]geocoding.Suggestion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suggestCalls = append(g.suggestCalls, query)
	return g.suggestions[:min(limit, len(g.suggestions))], nil
}

func (g *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (string, error) {
	return g.reverseName, g.reverseErr
}

func (g *fakeGeocoder) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.suggestCalls...)
}

// forcedFetcher always returns the same readings.
type forcedFetcher struct {
	aqi, ndvi float64
}

func (f forcedFetcher) Fetch(_ context.Context, _, _ float64) environment.Sample {
	return environment.NewSample(f.aqi, f.ndvi, 21, 55, environment.SourceLive, time.Now())
}

type fixture struct {
	session  *Session
	geocoder *fakeGeocoder
	metrics  *metrics.EcoZoneMetrics
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	m, err := metrics.NewEcoZoneMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	geo := newFakeGeocoder()
	s, err := New("test-session", cfg, Dependencies{
		Fetcher:  forcedFetcher{aqi: 40, ndvi: 0.6},
		Geocoder: geo,
		Random:   synthetic.NewSeeded(11),
		Metrics:  m,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	return &fixture{session: s, geocoder: geo, metrics: m}
}

func TestInitialState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	st := f.session.State()
	assert.Equal(t, "test-session", st.ID)
	assert.Nil(t, st.SelectedLocation)
	assert.Nil(t, st.CurrentSample)
	assert.Empty(t, st.Zones)
	assert.Equal(t, 2024, st.SelectedYear)
	assert.False(t, st.ShowHistorical)

	snap, err := f.session.Surface().Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "New York", snap.Center.Name)
	assert.Equal(t, 12, snap.Zoom)
}

func TestSearchSubmitNewYorkEndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.session.OnSearchSubmit(t.Context(), "  New York "))

	st := f.session.State()
	assert.Equal(t, "New York", st.Query)
	require.NotNil(t, st.SelectedLocation)
	assert.Equal(t, newYork, *st.SelectedLocation)
	require.NotNil(t, st.CurrentSample)
	assert.Equal(t, ecoscore.Green, st.CurrentSample.EcoScore())
	require.Len(t, st.Zones, 25)
	for _, z := range st.Zones {
		assert.Equal(t, ecoscore.Classify(z.AQI, z.NDVI), z.EcoScore)
	}
	require.NotNil(t, st.History)
	assert.Len(t, st.History.Points, 10)
	assert.False(t, st.Loading)

	snap, err := f.session.Surface().Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Overlays, 25)
	assert.Equal(t, newYork.Name, snap.Center.Name)
}

func TestSearchSubmitIgnoresBlankAndMissingResults(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.session.OnSearchSubmit(t.Context(), "   "))
	assert.Empty(t, f.session.State().Query)

	require.NoError(t, f.session.OnSearchSubmit(t.Context(), "Atlantis"))
	st := f.session.State()
	assert.Equal(t, "Atlantis", st.Query)
	assert.Nil(t, st.SelectedLocation)
	assert.Empty(t, st.Zones)
}

func TestSuggestionPickedSetsShortQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.session.OnSuggestionPicked(t.Context(), paris))

	st := f.session.State()
	assert.Equal(t, "Paris", st.Query)
	assert.Equal(t, paris, *st.SelectedLocation)
	assert.Len(t, st.Zones, 25)
	assert.Empty(t, st.Suggestions)
}

func TestMapClickReverseGeocodes(t *testing.T) {
	t.Parallel()

	t.Run("named", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, DefaultConfig())
		f.geocoder.reverseName = "Central Park, Manhattan"

		require.NoError(t, f.session.OnMapClicked(t.Context(), 40.78, -73.96))
		st := f.session.State()
		assert.Equal(t, "Central Park, Manhattan", st.SelectedLocation.Name)
		assert.InDelta(t, 40.78, st.Zones[12].Lat, 1e-12)
	})

	t.Run("fallback name", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, DefaultConfig())
		f.geocoder.reverseErr = errors.Newf("unable to geocode").Category(errors.CategoryNotFound).Build()

		require.NoError(t, f.session.OnMapClicked(t.Context(), 12.345678, -98.765432))
		assert.Equal(t, "12.3457, -98.7654", f.session.State().SelectedLocation.Name)
	})

	t.Run("via surface", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, DefaultConfig())
		f.geocoder.reverseName = "Somewhere"

		require.NoError(t, f.session.Surface().Click(1, 2))
		assert.Equal(t, "Somewhere", f.session.State().SelectedLocation.Name)
	})
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	gate := make(chan struct{})
	f.geocoder.mu.Lock()
	f.geocoder.gates["New York"] = gate
	f.geocoder.mu.Unlock()

	slowDone := make(chan error, 1)
	go func() {
		slowDone <- f.session.OnSearchSubmit(context.Background(), "New York")
	}()

	// wait until the slow search has registered its request
	require.Eventually(t, func() bool { return f.session.State().Loading }, time.Second, time.Millisecond)

	require.NoError(t, f.session.OnSearchSubmit(t.Context(), "Paris"))
	close(gate)
	require.NoError(t, <-slowDone)

	st := f.session.State()
	assert.Equal(t, paris, *st.SelectedLocation)
	assert.Equal(t, "Paris", st.Query)
	assert.False(t, st.Loading)
	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics, "ecocarto_stale_responses_discarded_total"))
}

// blockingClient holds the first publish until release is closed and
// records every payload in publish order.
type blockingClient struct {
	mu       sync.Mutex
	payloads []mqtt.ZoneSummaryDTO
	entered  chan struct{}
	release  chan struct{}
	calls    int
}

func (c *blockingClient) Connect(context.Context) error { return nil }
func (c *blockingClient) IsConnected() bool             { return true }
func (c *blockingClient) Disconnect()                   {}

func (c *blockingClient) Publish(_ context.Context, _, payload string) error {
	c.mu.Lock()
	c.calls++
	first := c.calls == 1
	c.mu.Unlock()

	if first {
		close(c.entered)
		<-c.release
	}

	var summary mqtt.ZoneSummaryDTO
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return err
	}
	c.mu.Lock()
	c.payloads = append(c.payloads, summary)
	c.mu.Unlock()
	return nil
}

func (c *blockingClient) published() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.payloads))
	for _, p := range c.payloads {
		names = append(names, p.Location.Name)
	}
	return names
}

func TestApplyIsSerialized(t *testing.T) {
	t.Parallel()

	client := &blockingClient{entered: make(chan struct{}), release: make(chan struct{})}
	s, err := New("serialized", DefaultConfig(), Dependencies{
		Fetcher:   forcedFetcher{aqi: 40, ndvi: 0.6},
		Geocoder:  newFakeGeocoder(),
		Random:    synthetic.NewSeeded(3),
		Publisher: mqtt.NewPublisher(client, "test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.OnSuggestionPicked(context.Background(), newYork) }()
	<-client.entered

	// New York is mid-commit; Paris must wait for it instead of interleaving
	secondDone := make(chan error, 1)
	go func() { secondDone <- s.OnSuggestionPicked(context.Background(), paris) }()
	assert.Never(t, func() bool { return len(secondDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(client.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	assert.Equal(t, []string{newYork.Name, paris.Name}, client.published())

	st := s.State()
	assert.Equal(t, paris, *st.SelectedLocation)
	snap, err := s.Surface().Snapshot()
	require.NoError(t, err)
	assert.Equal(t, paris.Name, snap.Center.Name)
	require.Len(t, snap.Overlays, len(st.Zones))
	assert.Equal(t, st.Zones[12].ID, snap.Overlays[12].ZoneID)
	assert.InDelta(t, paris.Lat+0.005, snap.Overlays[12].Bounds.North, 1e-9)
}

func TestYearAndHistoricalToggle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.session.OnYearChanged(2015))
	assert.Equal(t, 2015, f.session.State().SelectedYear)

	for _, year := range []int{2014, 2025} {
		err := f.session.OnYearChanged(year)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	}
	assert.Equal(t, 2015, f.session.State().SelectedYear)

	on, err := f.session.OnToggleHistorical()
	require.NoError(t, err)
	assert.True(t, on)
	off, err := f.session.OnToggleHistorical()
	require.NoError(t, err)
	assert.False(t, off)
}

func TestQueryChangedDebouncesSuggestions(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Debounce = 50 * time.Millisecond
	f := newFixture(t, cfg)
	f.geocoder.suggestions = []geocoding.Suggestion{geocoding.NewSuggestion(paris)}

	require.NoError(t, f.session.OnQueryChanged("Pa"))
	require.NoError(t, f.session.OnQueryChanged("Par"))
	require.NoError(t, f.session.OnQueryChanged("Pari"))
	require.NoError(t, f.session.OnQueryChanged("Paris"))

	require.Eventually(t, func() bool {
		return len(f.session.State().Suggestions) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"Paris"}, f.geocoder.calls())
	assert.Equal(t, "Paris", f.session.State().Suggestions[0].Label)
}

func TestShortQueryClearsSuggestions(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Debounce = time.Millisecond
	f := newFixture(t, cfg)
	f.geocoder.suggestions = []geocoding.Suggestion{geocoding.NewSuggestion(paris)}

	require.NoError(t, f.session.OnQueryChanged("Paris"))
	require.Eventually(t, func() bool {
		return len(f.session.State().Suggestions) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.session.OnQueryChanged("Pa"))
	assert.Empty(t, f.session.State().Suggestions)
	assert.Equal(t, "Pa", f.session.State().Query)
}

func TestClosedSessionRejectsEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.session.Close())

	errs := []error{
		f.session.OnSearchSubmit(t.Context(), "Paris"),
		f.session.OnSuggestionPicked(t.Context(), paris),
		f.session.OnMapClicked(t.Context(), 1, 2),
		f.session.OnYearChanged(2020),
		f.session.OnQueryChanged("Paris"),
	}
	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryState))
	}
	assert.True(t, f.session.Surface().Closed())
}

func TestCloseStopsPendingDebounce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := DefaultConfig()
	cfg.Debounce = time.Hour
	geo := newFakeGeocoder()
	s, err := New("leak-check", cfg, Dependencies{Fetcher: forcedFetcher{aqi: 90, ndvi: 0.4}, Geocoder: geo})
	require.NoError(t, err)

	require.NoError(t, s.OnQueryChanged("Paris"))
	require.NoError(t, s.Close())
	assert.Empty(t, geo.calls())
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := New("x", DefaultConfig(), Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
