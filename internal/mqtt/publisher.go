package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tphakala/ecocarto/internal/logger"
)

// zonesSuffix is appended to the base topic for batch summaries.
const zonesSuffix = "/zones"

// ZoneSummaryDTO is the payload published for every applied zone batch.
// Field names are part of the published contract.
type ZoneSummaryDTO struct {
	Location      LocationDTO `json:"location"`
	EcoScore      string      `json:"ecoScore"`
	Source        string      `json:"source"`
	CriticalZones int         `json:"criticalZones"`
	ModerateZones int         `json:"moderateZones"`
	HealthyZones  int         `json:"healthyZones"`
	Timestamp     time.Time   `json:"timestamp"`
}

// LocationDTO is the selected location in a summary.
type LocationDTO struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Publisher sends zone summaries. A nil *Publisher discards everything.
type Publisher struct {
	client Client
	topic  string
}

// NewPublisher wraps a connected client. baseTopic defaults to "ecocarto".
func NewPublisher(client Client, baseTopic string) *Publisher {
	if baseTopic == "" {
		baseTopic = DefaultConfig().Topic
	}
	return &Publisher{client: client, topic: baseTopic + zonesSuffix}
}

// Topic returns the topic summaries are published to.
func (p *Publisher) Topic() string {
	if p == nil {
		return ""
	}
	return p.topic
}

// PublishZoneSummary publishes the summary. Failures are logged and never
// returned to the caller.
func (p *Publisher) PublishZoneSummary(ctx context.Context, summary *ZoneSummaryDTO) {
	if p == nil || p.client == nil || summary == nil {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		GetLogger().Error("failed to encode zone summary", logger.Error(err))
		return
	}

	if err := p.client.Publish(ctx, p.topic, string(payload)); err != nil {
		GetLogger().Warn("failed to publish zone summary",
			logger.String("topic", p.topic),
			logger.String("location", summary.Location.Name),
			logger.Error(err))
		return
	}

	GetLogger().Debug("zone summary published",
		logger.String("topic", p.topic),
		logger.String("location", summary.Location.Name),
		logger.String("eco_score", summary.EcoScore))
}
