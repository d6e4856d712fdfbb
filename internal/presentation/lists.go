package presentation

import (
	"strconv"

	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/history"
)

// NotAvailable is shown for readings that do not exist.
const NotAvailable = "N/A"

// SuggestionItem is one row of the suggestion dropdown.
type SuggestionItem struct {
	Primary   string             `json:"primary"`
	Secondary string             `json:"secondary"`
	Location  geocoding.Location `json:"location"`
}

// SuggestionList maps geocoding suggestions to dropdown rows.
func SuggestionList(suggestions []geocoding.Suggestion) []SuggestionItem {
	items := make([]SuggestionItem, 0, len(suggestions))
	for _, s := range suggestions {
		items = append(items, SuggestionItem{
			Primary:   s.Label,
			Secondary: s.Address,
			Location:  s.Location,
		})
	}
	return items
}

// HistoryView is the historical chart plus the selected year readout.
type HistoryView struct {
	Visible      bool            `json:"visible"`
	SelectedYear int             `json:"selectedYear"`
	AQI          string          `json:"aqi"`
	Vegetation   string          `json:"vegetation"`
	Points       []history.Point `json:"points"`
}

// NewHistoryView renders a series with the readout for year. Missing
// years and a nil series read "N/A".
func NewHistoryView(series *history.Series, year int, visible bool) HistoryView {
	view := HistoryView{
		Visible:      visible,
		SelectedYear: year,
		AQI:          NotAvailable,
		Vegetation:   NotAvailable,
		Points:       []history.Point{},
	}
	if series == nil {
		return view
	}
	view.Points = append(view.Points, series.Points...)
	if p, err := series.Lookup(year); err == nil {
		view.AQI = strconv.Itoa(p.AQI)
		view.Vegetation = strconv.Itoa(p.Vegetation) + "%"
	}
	return view
}
