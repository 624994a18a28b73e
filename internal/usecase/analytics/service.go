package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/feedback"
)

// Service records search telemetry and runs A/B experiments. Writes are
// append-only except for the single dwell-time mutation.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// New creates an analytics service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// TrackSearch persists one search interaction and returns its id for click
// and feedback correlation.
func (s *Service) TrackSearch(ctx context.Context, in TrackSearchInput) (string, error) {
	if in.Query == "" {
		return "", domain.NewValidation("query", "required")
	}

	rec := feedback.SearchInteraction{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Query:        in.Query,
		ResultsCount: in.ResultsCount,
		Filters:      in.Filters,
		SessionID:    in.SessionID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.InsertInteraction(ctx, rec); err != nil {
		return "", fmt.Errorf("track search: %w", err)
	}
	return rec.ID, nil
}

// TrackClick appends one immutable click record and returns its id.
func (s *Service) TrackClick(ctx context.Context, interactionID, documentID string, position int, relevanceScore float64) (string, error) {
	rec := feedback.ClickEvent{
		ID:                    uuid.NewString(),
		SearchInteractionID:   interactionID,
		DocumentID:            documentID,
		Position:              position,
		RelevanceScoreAtClick: relevanceScore,
		CreatedAt:             s.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.InsertClick(ctx, rec); err != nil {
		return "", fmt.Errorf("track click: %w", err)
	}
	return rec.ID, nil
}

// UpdateDwellTime sets a click's dwell time, once per event.
func (s *Service) UpdateDwellTime(ctx context.Context, clickID string, dwellMs int64) error {
	if clickID == "" {
		return domain.NewValidation("clickEventId", "required")
	}
	if dwellMs < 0 {
		return domain.NewValidation("dwellTimeMs", "must be non-negative")
	}
	return s.repo.SetDwellTime(ctx, clickID, dwellMs)
}

// TrackRelevanceFeedback appends one relevance judgment. Out-of-range
// ratings are rejected at the boundary; no record is created.
func (s *Service) TrackRelevanceFeedback(
	ctx context.Context, interactionID, documentID string,
	rating int, isRelevant *bool, comment string,
) (string, error) {
	rec := feedback.RelevanceFeedback{
		ID:                  uuid.NewString(),
		SearchInteractionID: interactionID,
		DocumentID:          documentID,
		Rating:              rating,
		IsRelevant:          isRelevant,
		Comment:             comment,
		CreatedAt:           s.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.InsertFeedback(ctx, rec); err != nil {
		return "", fmt.Errorf("track feedback: %w", err)
	}
	return rec.ID, nil
}

// GetSearchMetrics returns the windowed quality aggregate. An empty userID
// aggregates across all users.
func (s *Service) GetSearchMetrics(ctx context.Context, from, to time.Time, userID string) (feedback.SearchMetrics, error) {
	if !to.After(from) {
		return feedback.SearchMetrics{}, domain.NewValidation("window", "to must be after from")
	}
	return s.repo.SearchMetrics(ctx, from, to, userID)
}

// TopClickedDocuments returns the most clicked documents in the window.
func (s *Service) TopClickedDocuments(ctx context.Context, from, to time.Time, limit int) ([]feedback.DocumentClicks, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopClickedDocuments(ctx, from, to, limit)
}

// CreateABTest validates and stores a new experiment.
func (s *Service) CreateABTest(ctx context.Context, in CreateABTestInput) (feedback.ABTestConfig, error) {
	cfg := feedback.ABTestConfig{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Variants:     in.Variants,
		TrafficSplit: in.TrafficSplit,
		StartsAt:     in.StartsAt,
		EndsAt:       in.EndsAt,
		CreatedAt:    s.now().UTC(),
	}
	if err := cfg.Validate(); err != nil {
		return feedback.ABTestConfig{}, err
	}
	if err := s.repo.InsertABTest(ctx, cfg); err != nil {
		return feedback.ABTestConfig{}, fmt.Errorf("create ab test: %w", err)
	}
	s.logger.Info("A/B test created",
		zap.String("id", cfg.ID), zap.String("name", cfg.Name), zap.Strings("variants", cfg.Variants))
	return cfg, nil
}

// AssignUserToABTest returns the user's sticky variant, creating the
// assignment on first call. The variant is a pure function of (user, test),
// so a lost insert race still converges on the same answer.
func (s *Service) AssignUserToABTest(ctx context.Context, userID, testID string) (string, error) {
	if userID == "" {
		return "", domain.NewValidation("userId", "required")
	}

	existing, err := s.repo.GetAssignment(ctx, testID, userID)
	if err == nil {
		return existing.Variant, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("assign user: %w", err)
	}

	cfg, err := s.repo.GetABTest(ctx, testID)
	if err != nil {
		return "", fmt.Errorf("assign user: %w", err)
	}

	variant := pickVariant(userID, testID, cfg)
	assignment := feedback.ABAssignment{
		TestID:    testID,
		UserID:    userID,
		Variant:   variant,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertAssignment(ctx, assignment); err != nil {
		return "", fmt.Errorf("assign user: %w", err)
	}
	return variant, nil
}

// GetABTestResults aggregates per-variant outcomes.
func (s *Service) GetABTestResults(ctx context.Context, testID string) ([]feedback.VariantMetrics, error) {
	if _, err := s.repo.GetABTest(ctx, testID); err != nil {
		return nil, fmt.Errorf("ab test results: %w", err)
	}
	return s.repo.ABTestResults(ctx, testID)
}
