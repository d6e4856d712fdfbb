package mapview

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/synthetic"
	"github.com/tphakala/ecocarto/internal/zones"
)

var newYork = Marker{Lat: 40.7128, Lng: -74.0060, Name: "New York"}

func testBatch(t *testing.T) []zones.Zone {
	t.Helper()
	s := environment.NewSample(40, 0.6, 20, 50, environment.SourceLive, time.Now())
	return zones.NewGenerator(synthetic.NewSeeded(5), nil).Generate(newYork.Lat, newYork.Lng, s)
}

func TestNewOverlayStyle(t *testing.T) {
	t.Parallel()

	z := zones.Zone{
		ID: "zone_0_0", Lat: 1, Lng: 2, AQI: 42.26, NDVI: 0.634,
		EcoScore: ecoscore.Green, Bounds: zones.CellBounds(1, 2),
	}
	o := NewOverlay(z)

	assert.Equal(t, "#22c55e", o.Color)
	assert.Equal(t, "#22c55e", o.FillColor)
	assert.InDelta(t, 0.4, o.FillOpacity, 0)
	assert.Equal(t, 1, o.Weight)
	assert.Equal(t, "<strong>Zone Info</strong><br>AQI: 42.3<br>NDVI: 0.63<br>Status: green", o.PopupHTML)

	lines := strings.Split(o.PopupText, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Zone Info", strings.TrimSpace(lines[0]))
	assert.Equal(t, "AQI: 42.3", strings.TrimSpace(lines[1]))
	assert.Equal(t, "Status: green", strings.TrimSpace(lines[3]))
}

func TestOverlayColors(t *testing.T) {
	t.Parallel()

	for score, want := range map[ecoscore.Score]string{
		ecoscore.Green:   "#22c55e",
		ecoscore.Yellow:  "#eab308",
		ecoscore.Red:     "#ef4444",
		ecoscore.Unknown: "#6b7280",
	} {
		o := NewOverlay(zones.Zone{EcoScore: score, Bounds: zones.CellBounds(0, 0)})
		assert.Equal(t, want, o.FillColor, score.String())
	}
}

func TestReplaceZonesClearsPreviousOverlays(t *testing.T) {
	t.Parallel()

	s := Open(newYork, 0)
	t.Cleanup(func() { _ = s.Close() })

	batch := testBatch(t)
	require.NoError(t, s.ReplaceZones(batch))
	require.NoError(t, s.ReplaceZones(batch[:3]))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Overlays, 3)
	assert.Equal(t, DefaultZoom, snap.Zoom)
	assert.Equal(t, uint64(2), snap.Revision)

	require.NoError(t, s.ReplaceZones(nil))
	snap, err = s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.Overlays)
	assert.Nil(t, snap.Extent)
}

func TestSnapshotExtentCoversGrid(t *testing.T) {
	t.Parallel()

	s := Open(newYork, 12)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ReplaceZones(testBatch(t)))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, snap.Extent)
	assert.InDelta(t, newYork.Lat+2.5*zones.GridSize, snap.Extent.North, 1e-9)
	assert.InDelta(t, newYork.Lat-2.5*zones.GridSize, snap.Extent.South, 1e-9)
	assert.InDelta(t, newYork.Lng+2.5*zones.GridSize, snap.Extent.East, 1e-9)
	assert.InDelta(t, newYork.Lng-2.5*zones.GridSize, snap.Extent.West, 1e-9)
}

func TestZoneAt(t *testing.T) {
	t.Parallel()

	s := Open(newYork, 12)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ReplaceZones(testBatch(t)))

	o, ok := s.ZoneAt(newYork.Lat+0.0101, newYork.Lng-0.0198)
	require.True(t, ok)
	assert.Equal(t, "zone_1_-2", o.ZoneID)

	_, ok = s.ZoneAt(newYork.Lat+0.03, newYork.Lng)
	assert.False(t, ok)
}

func TestClosedSurfaceRejectsOperations(t *testing.T) {
	t.Parallel()

	s := Open(newYork, 12)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	checks := map[string]error{
		"set_view":      s.SetView(newYork, 10),
		"replace_zones": s.ReplaceZones(testBatch(t)),
		"click":         s.Click(1, 2),
	}
	_, snapErr := s.Snapshot()
	checks["snapshot"] = snapErr

	for op, err := range checks {
		require.Error(t, err, op)
		assert.True(t, errors.IsCategory(err, errors.CategoryState), op)
	}
}

func TestClickInvokesHandler(t *testing.T) {
	t.Parallel()

	s := Open(newYork, 12)
	t.Cleanup(func() { _ = s.Close() })

	var mu sync.Mutex
	var got []float64
	s.OnClick(func(lat, lng float64) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, lat, lng)
	})

	require.NoError(t, s.Click(48.85, 2.35))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{48.85, 2.35}, got)
}

func TestSetViewMovesCenter(t *testing.T) {
	t.Parallel()

	s := Open(newYork, 12)
	t.Cleanup(func() { _ = s.Close() })

	paris := Marker{Lat: 48.85, Lng: 2.35, Name: "Paris"}
	require.NoError(t, s.SetView(paris, 0))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, paris, snap.Center)
	assert.Equal(t, DefaultZoom, snap.Zoom)
}
