// Package datastore archives exported plantation reports in SQLite or MySQL.
package datastore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRecord is one archived plantation report.
type ReportRecord struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	LocationName  string    `gorm:"size:512" json:"locationName"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	EcoScore      string    `gorm:"size:16;index" json:"ecoScore"`
	Source        string    `gorm:"size:16" json:"source"`
	CriticalZones int       `json:"criticalZones"`
	ModerateZones int       `json:"moderateZones"`
	HealthyZones  int       `json:"healthyZones"`
	Body          string    `gorm:"type:text" json:"-"` // exported JSON document
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
}

// TableName overrides the default pluralized name.
func (ReportRecord) TableName() string {
	return "reports"
}

// BeforeCreate assigns a random UUID when none is set.
func (r *ReportRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
