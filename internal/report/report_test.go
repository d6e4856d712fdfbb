package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/zones"
)

func batchOf(scores ...ecoscore.Score) []zones.Zone {
	batch := make([]zones.Zone, 0, len(scores))
	for i, s := range scores {
		batch = append(batch, zones.Zone{ID: zones.ZoneID(0, i), EcoScore: s})
	}
	return batch
}

func TestBuildCountsZones(t *testing.T) {
	t.Parallel()

	doc := Build(batchOf(ecoscore.Red, ecoscore.Red, ecoscore.Yellow, ecoscore.Green))
	assert.Equal(t, 2, doc.CriticalZones)
	assert.Equal(t, 1, doc.ModerateZones)
	assert.Equal(t, Recommendations, doc.Recommendations)

	empty := Build(nil)
	assert.Zero(t, empty.CriticalZones)
	assert.Len(t, empty.Recommendations, 4)
}

func TestMarshalUsesTwoSpaceIndent(t *testing.T) {
	t.Parallel()

	data, err := Build(batchOf(ecoscore.Red, ecoscore.Yellow, ecoscore.Yellow)).Marshal()
	require.NoError(t, err)

	want := `{
  "criticalZones": 1,
  "moderateZones": 2,
  "recommendations": [
    "Plant native trees in red zones to improve air quality",
    "Increase green cover in moderate zones",
    "Monitor pollution levels regularly",
    "Implement urban forestry programs"
  ]
}`
	assert.Equal(t, want, string(data))

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.ModerateZones)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("not json"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestRecommendationsAreCopied(t *testing.T) {
	t.Parallel()

	doc := Build(nil)
	doc.Recommendations[0] = "changed"
	assert.Equal(t, "Plant native trees in red zones to improve air quality", Recommendations[0])
}

func TestNewCard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		batch        []zones.Zone
		wantCritical int
		wantModerate int
	}{
		{"all green", batchOf(ecoscore.Green, ecoscore.Green), 0, 0},
		{"critical only", batchOf(ecoscore.Red, ecoscore.Green), 1, 0},
		{"moderate only", batchOf(ecoscore.Yellow, ecoscore.Yellow), 0, 2},
		{"both", batchOf(ecoscore.Red, ecoscore.Yellow, ecoscore.Red), 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			card := NewCard(tt.batch)

			if tt.wantCritical == 0 {
				assert.Nil(t, card.Critical)
			} else {
				require.NotNil(t, card.Critical)
				assert.Equal(t, tt.wantCritical, card.Critical.Count)
				assert.Equal(t, CriticalMessage, card.Critical.Message)
			}
			if tt.wantModerate == 0 {
				assert.Nil(t, card.Moderate)
			} else {
				require.NotNil(t, card.Moderate)
				assert.Equal(t, tt.wantModerate, card.Moderate.Count)
				assert.Equal(t, ModerateMessage, card.Moderate.Message)
			}
			assert.Len(t, card.RecommendedActions, 4)
			assert.Equal(t, "plantation-report.json", card.Filename)
		})
	}
}
