package analytics

import (
	"context"
	"time"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/feedback"
)

// NopRepository discards writes and reports every lookup as missing. Used
// when no analytics store is configured so the search path stays intact.
type NopRepository struct{}

var _ Repository = NopRepository{}

func (NopRepository) InsertInteraction(context.Context, feedback.SearchInteraction) error {
	return nil
}

func (NopRepository) InsertClick(context.Context, feedback.ClickEvent) error { return nil }

func (NopRepository) SetDwellTime(context.Context, string, int64) error {
	return domain.ErrNotFound
}

func (NopRepository) InsertFeedback(context.Context, feedback.RelevanceFeedback) error { return nil }

func (NopRepository) SearchMetrics(context.Context, time.Time, time.Time, string) (feedback.SearchMetrics, error) {
	return feedback.SearchMetrics{}, nil
}

func (NopRepository) TopClickedDocuments(context.Context, time.Time, time.Time, int) ([]feedback.DocumentClicks, error) {
	return nil, nil
}

func (NopRepository) InsertABTest(context.Context, feedback.ABTestConfig) error { return nil }

func (NopRepository) GetABTest(context.Context, string) (feedback.ABTestConfig, error) {
	return feedback.ABTestConfig{}, domain.ErrNotFound
}

func (NopRepository) GetAssignment(context.Context, string, string) (feedback.ABAssignment, error) {
	return feedback.ABAssignment{}, domain.ErrNotFound
}

func (NopRepository) InsertAssignment(context.Context, feedback.ABAssignment) error { return nil }

func (NopRepository) ABTestResults(context.Context, string) ([]feedback.VariantMetrics, error) {
	return nil, domain.ErrNotFound
}
