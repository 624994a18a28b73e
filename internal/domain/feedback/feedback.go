package feedback

import (
	"time"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// Rating bounds for relevance feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// SearchInteraction is one recorded search call. Append-only.
type SearchInteraction struct {
	ID           string
	UserID       string
	Query        string
	ResultsCount int
	Filters      filter.Filters
	SessionID    string
	CreatedAt    time.Time
}

// ClickEvent is one click on a search result. DwellTimeMs is the only
// mutable field, set post-hoc at most once (nil until then).
type ClickEvent struct {
	ID                    string
	SearchInteractionID   string
	DocumentID            string
	Position              int
	RelevanceScoreAtClick float64
	DwellTimeMs           *int64
	CreatedAt             time.Time
}

// Validate checks the click fields at the boundary.
func (c ClickEvent) Validate() error {
	if c.SearchInteractionID == "" {
		return domain.NewValidation("searchInteractionId", "required")
	}
	if c.DocumentID == "" {
		return domain.NewValidation("documentId", "required")
	}
	if c.Position < 0 {
		return domain.NewValidation("position", "must be non-negative")
	}
	return nil
}

// RelevanceFeedback is one explicit relevance judgment. Append-only.
type RelevanceFeedback struct {
	ID                  string
	SearchInteractionID string
	DocumentID          string
	Rating              int
	IsRelevant          *bool
	Comment             string
	CreatedAt           time.Time
}

// Validate rejects out-of-range ratings before any record is created.
func (f RelevanceFeedback) Validate() error {
	if f.SearchInteractionID == "" {
		return domain.NewValidation("searchInteractionId", "required")
	}
	if f.DocumentID == "" {
		return domain.NewValidation("documentId", "required")
	}
	if f.Rating < MinRating || f.Rating > MaxRating {
		return domain.NewValidation("rating", "must be within [1,5]")
	}
	return nil
}

// ABTestConfig describes one experiment and its traffic split.
type ABTestConfig struct {
	ID           string
	Name         string
	Variants     []string
	TrafficSplit map[string]float64
	StartsAt     time.Time
	EndsAt       time.Time
	CreatedAt    time.Time
}

// splitTolerance absorbs float accumulation when checking the split sum.
const splitTolerance = 1e-6

// Validate checks variants and that the traffic split covers exactly 1.0.
func (t ABTestConfig) Validate() error {
	if t.Name == "" {
		return domain.NewValidation("name", "required")
	}
	if len(t.Variants) < 2 {
		return domain.NewValidation("variants", "at least two variants required")
	}
	var sum float64
	for _, v := range t.Variants {
		share, ok := t.TrafficSplit[v]
		if !ok {
			return domain.NewValidation("trafficSplit", "missing share for variant "+v)
		}
		if share < 0 {
			return domain.NewValidation("trafficSplit", "negative share for variant "+v)
		}
		sum += share
	}
	if len(t.TrafficSplit) != len(t.Variants) {
		return domain.NewValidation("trafficSplit", "contains unknown variants")
	}
	if sum < 1-splitTolerance || sum > 1+splitTolerance {
		return domain.NewValidation("trafficSplit", "shares must sum to 1.0")
	}
	return nil
}

// ABAssignment is a sticky user→variant mapping for one test.
type ABAssignment struct {
	TestID    string
	UserID    string
	Variant   string
	CreatedAt time.Time
}

// SearchMetrics is the windowed quality aggregate over interactions.
type SearchMetrics struct {
	TotalSearches      int
	SearchesWithClick  int
	ClickThroughRate   float64
	AvgClicksPerSearch float64
	AvgClickPosition   float64
	RelevantCount      int
	IrrelevantCount    int
	RelevanceRate      float64
}

// VariantMetrics is the per-variant aggregate of one A/B test.
type VariantMetrics struct {
	Variant      string
	Users        int
	Searches     int
	CTR          float64
	AvgRating    float64
	RelevanceRate float64
}

// DocumentClicks counts clicks per document for the top-clicked report.
type DocumentClicks struct {
	DocumentID string
	Clicks     int
	AvgPosition float64
}
