// Package ecoscore classifies an area's air quality and vegetation readings
// into a three-tier eco score and maps scores to their display attributes.
package ecoscore

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/ecocarto/internal/errors"
)

// Score is the three-tier eco score. The zero value means no sample exists
// yet and is only ever produced by presentation code.
type Score string

const (
	Green  Score = "green"
	Yellow Score = "yellow"
	Red    Score = "red"

	// Unknown marks the absence of a sample.
	Unknown Score = ""
)

// Classification thresholds. All comparisons are strict.
const (
	GreenMaxAQI   = 50.0
	GreenMinNDVI  = 0.5
	YellowMaxAQI  = 100.0
	YellowMinNDVI = 0.3
)

// Display colors.
const (
	GreenColor   = "#22c55e"
	YellowColor  = "#eab308"
	RedColor     = "#ef4444"
	UnknownColor = "#6b7280"
)

// All lists the valid scores from most to least desirable.
var All = []Score{Green, Yellow, Red}

// Classify returns the eco score for an AQI and NDVI pair. First match wins.
func Classify(aqi, ndvi float64) Score {
	if aqi < GreenMaxAQI && ndvi > GreenMinNDVI {
		return Green
	}
	if aqi < YellowMaxAQI && ndvi > YellowMinNDVI {
		return Yellow
	}
	return Red
}

// Valid reports whether s is one of the three classified scores.
func (s Score) Valid() bool {
	switch s {
	case Green, Yellow, Red:
		return true
	default:
		return false
	}
}

// Color returns the overlay color for the score.
func (s Score) Color() string {
	switch s {
	case Green:
		return GreenColor
	case Yellow:
		return YellowColor
	case Red:
		return RedColor
	default:
		return UnknownColor
	}
}

// StatusText returns the human readable status.
func (s Score) StatusText() string {
	switch s {
	case Green:
		return "Excellent"
	case Yellow:
		return "Moderate"
	case Red:
		return "Poor"
	default:
		return "Unknown"
	}
}

// Grade returns the letter grade shown on the score card.
func (s Score) Grade() string {
	switch s {
	case Green:
		return "A"
	case Yellow:
		return "B"
	case Red:
		return "C"
	default:
		return "-"
	}
}

// Rank orders scores by desirability, higher is better. Unknown ranks 0.
func (s Score) Rank() int {
	switch s {
	case Green:
		return 3
	case Yellow:
		return 2
	case Red:
		return 1
	default:
		return 0
	}
}

// Better reports whether a is more desirable than b.
func Better(a, b Score) bool {
	return a.Rank() > b.Rank()
}

// Label returns the capitalized score name, e.g. "Yellow".
func (s Score) Label() string {
	if !s.Valid() {
		return "Unknown"
	}
	return cases.Title(language.English).String(string(s))
}

// String implements fmt.Stringer.
func (s Score) String() string {
	if s == Unknown {
		return "unknown"
	}
	return string(s)
}

// Parse converts user input into a Score, ignoring case and surrounding space.
func Parse(value string) (Score, error) {
	s := Score(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return Unknown, errors.Newf("invalid eco score %q", value).
			Component("ecoscore").
			Category(errors.CategoryValidation).
			Context("value", value).
			Build()
	}
	return s, nil
}

// Counts tallies scores.
type Counts struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

// Add records one score. Unknown scores are ignored.
func (c *Counts) Add(s Score) {
	switch s {
	case Green:
		c.Green++
	case Yellow:
		c.Yellow++
	case Red:
		c.Red++
	}
}

// Total returns the number of recorded scores.
func (c Counts) Total() int {
	return c.Green + c.Yellow + c.Red
}

func (c Counts) String() string {
	return fmt.Sprintf("green=%d yellow=%d red=%d", c.Green, c.Yellow, c.Red)
}
