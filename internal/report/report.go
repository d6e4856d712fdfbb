// Package report builds the plantation report exported for a zone batch
// and the plantation suggestions card shown beside the map.
package report

import (
	"encoding/json"

	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/zones"
)

// Filename is the download name of an exported report.
const Filename = "plantation-report.json"

// ContentType of an exported report.
const ContentType = "application/json"

// Recommendations is the fixed list included in every report.
var Recommendations = []string{
	"Plant native trees in red zones to improve air quality",
	"Increase green cover in moderate zones",
	"Monitor pollution levels regularly",
	"Implement urban forestry programs",
}

// Document is the exported report. Field order is the wire order.
type Document struct {
	CriticalZones   int      `json:"criticalZones"`
	ModerateZones   int      `json:"moderateZones"`
	Recommendations []string `json:"recommendations"`
}

// Build counts red zones as critical and yellow zones as moderate.
func Build(batch []zones.Zone) Document {
	counts := zones.Summarize(batch)
	return Document{
		CriticalZones:   counts.Red,
		ModerateZones:   counts.Yellow,
		Recommendations: append([]string(nil), Recommendations...),
	}
}

// Marshal serializes the document indented with two spaces.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.New(err).
			Component("report").
			Category(errors.CategoryFileParsing).
			Context("operation", "marshal_report").
			Build()
	}
	return data, nil
}

// Parse decodes an exported report.
func Parse(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, errors.New(err).
			Component("report").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_report").
			Build()
	}
	return d, nil
}
