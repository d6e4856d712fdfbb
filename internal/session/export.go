package session

import (
	"context"

	"github.com/tphakala/ecocarto/internal/datastore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/mqtt"
	"github.com/tphakala/ecocarto/internal/report"
	"github.com/tphakala/ecocarto/internal/zones"
)

// Export is a rendered plantation report.
type Export struct {
	Document report.Document
	Body     []byte
	// ArchiveID is empty when no archive is configured or archiving failed.
	ArchiveID string
}

// ExportReport renders the plantation report for the current zones and
// archives it when an archive is configured. Archive failures are logged
// and do not fail the export.
func (s *Session) ExportReport(ctx context.Context) (*Export, error) {
	st := s.State()
	if st.SelectedLocation == nil {
		return nil, errors.Newf("no location selected").
			Component("session").
			Category(errors.CategoryNotFound).
			Context("session_id", s.id).
			Build()
	}

	doc := report.Build(st.Zones)
	body, err := doc.Marshal()
	if err != nil {
		return nil, err
	}
	export := &Export{Document: doc, Body: body}

	if s.deps.Archive == nil {
		return export, nil
	}

	counts := zones.Summarize(st.Zones)
	record := &datastore.ReportRecord{
		LocationName:  st.SelectedLocation.Name,
		Lat:           st.SelectedLocation.Lat,
		Lng:           st.SelectedLocation.Lng,
		CriticalZones: counts.Red,
		ModerateZones: counts.Yellow,
		HealthyZones:  counts.Green,
		Body:          string(body),
	}
	if st.CurrentSample != nil {
		record.EcoScore = string(st.CurrentSample.EcoScore())
		record.Source = string(st.CurrentSample.Source())
	}
	if err := s.deps.Archive.SaveReport(ctx, record); err != nil {
		GetLogger().Warn("failed to archive report",
			logger.String("session_id", s.id),
			logger.Error(err))
		return export, nil
	}
	export.ArchiveID = record.ID
	return export, nil
}

// zoneSummary builds the MQTT payload for an applied batch.
func zoneSummary(loc geocoding.Location, sample environment.Sample, batch []zones.Zone) *mqtt.ZoneSummaryDTO {
	counts := zones.Summarize(batch)
	return &mqtt.ZoneSummaryDTO{
		Location:      mqtt.LocationDTO{Name: loc.Name, Lat: loc.Lat, Lng: loc.Lng},
		EcoScore:      string(sample.EcoScore()),
		Source:        string(sample.Source()),
		CriticalZones: counts.Red,
		ModerateZones: counts.Yellow,
		HealthyZones:  counts.Green,
		Timestamp:     sample.Timestamp(),
	}
}
