package mapview

import (
	"sync"

	"github.com/golang/geo/s2"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/zones"
)

// ClickHandler receives map clicks.
type ClickHandler func(lat, lng float64)

// Snapshot is a point-in-time copy of the surface state.
type Snapshot struct {
	Center   Marker        `json:"center"`
	Zoom     int           `json:"zoom"`
	Overlays []Overlay     `json:"overlays"`
	Extent   *zones.Bounds `json:"extent,omitempty"`
	Revision uint64        `json:"revision"`
}

// Surface is a scoped map resource. It is acquired with Open and must be
// released with Close; every other call on a closed surface fails with a
// state error. Safe for concurrent use.
type Surface struct {
	mu       sync.RWMutex
	closed   bool
	center   Marker
	zoom     int
	overlays []Overlay
	onClick  ClickHandler
	revision uint64
}

// Open acquires a surface centered on the marker. A non-positive zoom uses DefaultZoom.
func Open(center Marker, zoom int) *Surface {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	GetLogger().Debug("map surface opened",
		logger.Float64("lat", center.Lat),
		logger.Float64("lng", center.Lng),
		logger.Int("zoom", zoom))
	return &Surface{center: center, zoom: zoom}
}

// SetView moves the viewport and center marker.
func (s *Surface) SetView(center Marker, zoom int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("set_view"); err != nil {
		return err
	}
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	s.center = center
	s.zoom = zoom
	s.revision++
	return nil
}

// ReplaceZones clears every overlay and adds one per zone of the batch.
func (s *Surface) ReplaceZones(batch []zones.Zone) error {
	overlays := make([]Overlay, 0, len(batch))
	for i := range batch {
		overlays = append(overlays, NewOverlay(batch[i]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("replace_zones"); err != nil {
		return err
	}
	removed := len(s.overlays)
	s.overlays = overlays
	s.revision++

	GetLogger().Debug("zone overlays replaced",
		logger.Int("removed", removed),
		logger.Int("added", len(overlays)))
	return nil
}

// OnClick registers the click handler, replacing any previous one.
func (s *Surface) OnClick(h ClickHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClick = h
}

// Click emits a click at the point to the registered handler. The handler
// runs on the caller's goroutine without the surface lock held.
func (s *Surface) Click(lat, lng float64) error {
	s.mu.RLock()
	err := s.checkOpen("click")
	h := s.onClick
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if h != nil {
		h(lat, lng)
	}
	return nil
}

// ZoneAt returns the overlay covering the point.
func (s *Surface) ZoneAt(lat, lng float64) (Overlay, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.overlays {
		if s.overlays[i].Contains(lat, lng) {
			return s.overlays[i], true
		}
	}
	return Overlay{}, false
}

// Snapshot copies the current state.
func (s *Surface) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("snapshot"); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Center:   s.center,
		Zoom:     s.zoom,
		Overlays: append([]Overlay(nil), s.overlays...),
		Revision: s.revision,
	}
	if len(s.overlays) > 0 {
		extent := s2.EmptyRect()
		for i := range s.overlays {
			extent = extent.Union(s.overlays[i].rect)
		}
		b := rectBounds(extent)
		snap.Extent = &b
	}
	return snap, nil
}

// Close releases the surface and drops its overlays. Closing twice is a no-op.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.overlays = nil
	s.onClick = nil
	GetLogger().Debug("map surface closed")
	return nil
}

// Closed reports whether Close has been called.
func (s *Surface) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// checkOpen must be called with s.mu held.
func (s *Surface) checkOpen(operation string) error {
	if !s.closed {
		return nil
	}
	return errors.Newf("map surface is closed").
		Component("mapview").
		Category(errors.CategoryState).
		Context("operation", operation).
		Build()
}

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the mapview package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("mapview")
	})
	return serviceLogger
}
