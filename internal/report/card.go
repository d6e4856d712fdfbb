package report

import "github.com/tphakala/ecocarto/internal/zones"

// Card messages.
const (
	CriticalTitle   = "Critical Areas"
	CriticalMessage = "Immediate tree plantation needed in high pollution areas"
	ModerateTitle   = "Moderate Areas"
	ModerateMessage = "Enhance green cover to prevent degradation"
)

// RecommendedActions are always listed on the card.
var RecommendedActions = []string{
	"Plant native species for better adaptation",
	"Focus on air-purifying trees (e.g., Neem, Peepal)",
	"Create green corridors between zones",
	"Implement community gardening programs",
}

// Notice is a highlighted area count on the card.
type Notice struct {
	Title   string `json:"title"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Card is the plantation suggestions panel.
type Card struct {
	Critical           *Notice  `json:"critical,omitempty"`
	Moderate           *Notice  `json:"moderate,omitempty"`
	RecommendedActions []string `json:"recommendedActions"`
	Filename           string   `json:"filename"`
}

// NewCard builds the panel. Each notice is present only when its count is non-zero.
func NewCard(batch []zones.Zone) Card {
	doc := Build(batch)
	card := Card{
		RecommendedActions: append([]string(nil), RecommendedActions...),
		Filename:           Filename,
	}
	if doc.CriticalZones > 0 {
		card.Critical = &Notice{Title: CriticalTitle, Count: doc.CriticalZones, Message: CriticalMessage}
	}
	if doc.ModerateZones > 0 {
		card.Moderate = &Notice{Title: ModerateTitle, Count: doc.ModerateZones, Message: ModerateMessage}
	}
	return card
}
