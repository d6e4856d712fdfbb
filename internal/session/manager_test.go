package session

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ecocarto/internal/conf"
	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/report"
	"github.com/tphakala/ecocarto/internal/synthetic"
)

func testDependencies() Dependencies {
	return Dependencies{
		Fetcher:  forcedFetcher{aqi: 40, ndvi: 0.6},
		Geocoder: newFakeGeocoder(),
		Random:   synthetic.NewSeeded(3),
	}
}

func TestManagerLifecycle(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig(), testDependencies(), time.Hour)
	t.Cleanup(m.Close)

	s, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID()))
	assert.Equal(t, 0, m.Count())
	assert.True(t, s.Surface().Closed(), "deleted session should be closed")

	_, err = m.Get(s.ID())
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(m.Delete(s.ID())))
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig(), testDependencies(), 40*time.Millisecond)
	t.Cleanup(m.Close)

	s, err := m.Create()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Surface().Closed()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, m.Count())
}

func TestManagerCloseClosesSessions(t *testing.T) {
	t.Parallel()
	m := NewManager(DefaultConfig(), testDependencies(), 0)

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	m.Close()
	assert.True(t, a.Surface().Closed())
	assert.True(t, b.Surface().Closed())
	assert.Equal(t, 0, m.Count())
}

func TestExportReportWithoutLocation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())

	_, err := f.session.ExportReport(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestExportReportArchives(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Datastore.Type = "sqlite"
	settings.Datastore.SQLite.Path = filepath.Join(t.TempDir(), "reports.db")
	store, err := datastore.New(settings, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	deps := testDependencies()
	deps.Archive = store
	s, err := New("export", DefaultConfig(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	require.NoError(t, s.OnSearchSubmit(t.Context(), "New York"))

	export, err := s.ExportReport(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, export.ArchiveID)

	var doc report.Document
	require.NoError(t, json.Unmarshal(export.Body, &doc))
	assert.Equal(t, report.Recommendations, doc.Recommendations)
	assert.Equal(t, 25, len(s.State().Zones))

	counts := 0
	for _, z := range s.State().Zones {
		if string(z.EcoScore) != "green" {
			counts++
		}
	}
	assert.Equal(t, counts, doc.CriticalZones+doc.ModerateZones)

	record, err := store.GetReport(t.Context(), export.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, "New York, United States", record.LocationName)
	assert.Equal(t, "green", record.EcoScore)
	assert.Equal(t, "live", record.Source)
	assert.Equal(t, 25, record.CriticalZones+record.ModerateZones+record.HealthyZones)
	assert.JSONEq(t, string(export.Body), record.Body)
}
