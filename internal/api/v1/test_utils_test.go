package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/observability"
	"github.com/tphakala/ecocarto/internal/session"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

// MockDataStore implements datastore.Interface for testing
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) SaveReport(ctx context.Context, record *datastore.ReportRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDataStore) GetReport(ctx context.Context, id string) (*datastore.ReportRecord, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*datastore.ReportRecord); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataStore) ListReports(ctx context.Context, limit, offset int) ([]datastore.ReportRecord, error) {
	args := m.Called(ctx, limit, offset)
	if r, ok := args.Get(0).([]datastore.ReportRecord); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// stubGeocoder resolves a fixed set of places.
type stubGeocoder struct{}

var newYork = geocoding.Location{Lat: 40.7128, Lng: -74.0060, Name: "New York, United States"}

func (stubGeocoder) Search(_ context.Context, query string) (geocoding.Location, error) {
	if strings.EqualFold(query, "new york") {
		return newYork, nil
	}
	return geocoding.Location{}, errors.Newf("no geocoding result for %q", query).
		Category(errors.CategoryNotFound).
		Build()
}

func (stubGeocoder) Suggest(_ context.Context, query string, _ int) ([]geocoding.Suggestion, error) {
	if strings.HasPrefix("new york", strings.ToLower(query)) {
		return []geocoding.Suggestion{geocoding.NewSuggestion(newYork)}, nil
	}
	return nil, nil
}

func (stubGeocoder) Reverse(_ context.Context, _, _ float64) (string, error) {
	return "Clicked Place, Somewhere", nil
}

// fixedFetcher returns a live green sample for every coordinate.
type fixedFetcher struct{}

func (fixedFetcher) Fetch(_ context.Context, _, _ float64) environment.Sample {
	return environment.NewSample(40, 0.6, 22.5, 60, environment.SourceLive, time.Now())
}

// setupTestEnvironment builds a controller over stub collaborators with
// archiving disabled.
func setupTestEnvironment(t *testing.T, opts ...Option) (*echo.Echo, *Controller) {
	t.Helper()
	return setupArchiveEnvironment(t, nil, opts...)
}

// setupArchiveEnvironment is setupTestEnvironment with ds as the sessions'
// report archive.
func setupArchiveEnvironment(t *testing.T, ds datastore.Interface, opts ...Option) (*echo.Echo, *Controller) {
	t.Helper()

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	cfg := session.DefaultConfig()
	cfg.Debounce = time.Millisecond
	manager := session.NewManager(cfg, session.Dependencies{
		Fetcher:  fixedFetcher{},
		Geocoder: stubGeocoder{},
		Random:   synthetic.NewSeeded(7),
		Archive:  ds,
		Metrics:  m.EcoZone,
	}, time.Hour)
	t.Cleanup(manager.Close)

	e := echo.New()
	opts = append([]Option{WithMetrics(m), WithVersion("test")}, opts...)
	c, err := New(e, manager, fixedFetcher{}, opts...)
	require.NoError(t, err)
	return e, c
}

// doRequest serves a request and returns the recorder.
func doRequest(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createSession opens a session through the API and returns its id.
func createSession(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doRequest(t, e, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decode[map[string]any](t, rec)
	id, _ := st["id"].(string)
	require.NotEmpty(t, id)
	return id
}
