package analytics

import (
	"context"
	"time"

	"github.com/iuslabs/lexdex/internal/domain/feedback"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// Repository is the persistence contract for telemetry and experiments.
type Repository interface {
	InsertInteraction(ctx context.Context, in feedback.SearchInteraction) error
	InsertClick(ctx context.Context, c feedback.ClickEvent) error
	SetDwellTime(ctx context.Context, clickID string, dwellMs int64) error
	InsertFeedback(ctx context.Context, f feedback.RelevanceFeedback) error

	SearchMetrics(ctx context.Context, from, to time.Time, userID string) (feedback.SearchMetrics, error)
	TopClickedDocuments(ctx context.Context, from, to time.Time, limit int) ([]feedback.DocumentClicks, error)

	InsertABTest(ctx context.Context, t feedback.ABTestConfig) error
	GetABTest(ctx context.Context, testID string) (feedback.ABTestConfig, error)
	GetAssignment(ctx context.Context, testID, userID string) (feedback.ABAssignment, error)
	InsertAssignment(ctx context.Context, a feedback.ABAssignment) error
	ABTestResults(ctx context.Context, testID string) ([]feedback.VariantMetrics, error)
}

// TrackSearchInput is the recordable context of one search call.
type TrackSearchInput struct {
	UserID       string
	Query        string
	ResultsCount int
	Filters      filter.Filters
	SessionID    string
}

// CreateABTestInput defines a new experiment; the id is assigned here.
type CreateABTestInput struct {
	Name         string
	Variants     []string
	TrafficSplit map[string]float64
	StartsAt     time.Time
	EndsAt       time.Time
}
