// Package mapview models the interactive map surface: its viewport, the
// center marker and the colored zone overlays with their popups.
package mapview

import (
	"fmt"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/k3a/html2text"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/zones"
)

// Overlay styling shared by every zone rectangle.
const (
	FillOpacity  = 0.4
	StrokeWeight = 1
)

// DefaultZoom is the zoom level applied on every location change.
const DefaultZoom = 12

const popupFormat = "<strong>Zone Info</strong><br>AQI: %.1f<br>NDVI: %.2f<br>Status: %s"

// Overlay is one rendered zone rectangle.
type Overlay struct {
	ZoneID      string         `json:"zoneId"`
	EcoScore    ecoscore.Score `json:"ecoScore"`
	Bounds      zones.Bounds   `json:"bounds"`
	Color       string         `json:"color"`
	FillColor   string         `json:"fillColor"`
	FillOpacity float64        `json:"fillOpacity"`
	Weight      int            `json:"weight"`
	PopupHTML   string         `json:"popupHtml"`
	PopupText   string         `json:"popupText"`

	rect s2.Rect
}

// NewOverlay renders a zone.
func NewOverlay(z zones.Zone) Overlay {
	color := z.EcoScore.Color()
	popup := PopupHTML(z)
	return Overlay{
		ZoneID:      z.ID,
		EcoScore:    z.EcoScore,
		Bounds:      z.Bounds,
		Color:       color,
		FillColor:   color,
		FillOpacity: FillOpacity,
		Weight:      StrokeWeight,
		PopupHTML:   popup,
		PopupText:   PopupText(popup),
		rect:        boundsRect(z.Bounds),
	}
}

// Contains reports whether the overlay covers the point.
func (o Overlay) Contains(lat, lng float64) bool {
	return o.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lng))
}

// PopupHTML returns the popup body for a zone.
func PopupHTML(z zones.Zone) string {
	return fmt.Sprintf(popupFormat, z.AQI, z.NDVI, z.EcoScore)
}

// PopupText renders popup HTML as plain text lines for terminals and logs.
func PopupText(popupHTML string) string {
	text := html2text.HTML2TextWithOptions(popupHTML, html2text.WithUnixLineBreaks())
	return strings.TrimSpace(text)
}

// Marker pins the selected location.
type Marker struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

func boundsRect(b zones.Bounds) s2.Rect {
	return s2.RectFromLatLng(s2.LatLngFromDegrees(b.South, b.West)).
		AddPoint(s2.LatLngFromDegrees(b.North, b.East))
}

func rectBounds(r s2.Rect) zones.Bounds {
	return zones.Bounds{
		North: r.Hi().Lat.Degrees(),
		South: r.Lo().Lat.Degrees(),
		East:  r.Hi().Lng.Degrees(),
		West:  r.Lo().Lng.Degrees(),
	}
}
