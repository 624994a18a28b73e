package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/feedback"
)

// Repo persists search telemetry and experiment records in Postgres.
// Interactions, clicks, and feedback are append-only; the single exception
// is a click's dwell time, which may be set once after the fact.
type Repo struct {
	db *sql.DB
}

// New creates an analytics repository over an open connection pool.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// InsertInteraction records one search call.
func (r *Repo) InsertInteraction(ctx context.Context, in feedback.SearchInteraction) error {
	filters, err := json.Marshal(in.Filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO search_interactions
		(id, user_id, query, results_count, filters, session_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		in.ID, in.UserID, in.Query, in.ResultsCount, filters, in.SessionID, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// InsertClick records one click on a search result.
func (r *Repo) InsertClick(ctx context.Context, c feedback.ClickEvent) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO click_events
		(id, search_interaction_id, document_id, position, relevance_score_at_click, dwell_time_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.SearchInteractionID, c.DocumentID, c.Position,
		c.RelevanceScoreAtClick, c.DwellTimeMs, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// SetDwellTime fills a click's dwell time. Succeeds at most once per click:
// a second call returns domain.ErrAlreadySet, an unknown click
// domain.ErrNotFound.
func (r *Repo) SetDwellTime(ctx context.Context, clickID string, dwellMs int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE click_events SET dwell_time_ms = $1 WHERE id = $2 AND dwell_time_ms IS NULL`,
		dwellMs, clickID)
	if err != nil {
		return fmt.Errorf("set dwell time: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set dwell time: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM click_events WHERE id = $1)`, clickID).Scan(&exists); err != nil {
		return fmt.Errorf("set dwell time: %w", err)
	}
	if !exists {
		return fmt.Errorf("click %s: %w", clickID, domain.ErrNotFound)
	}
	return fmt.Errorf("click %s dwell time: %w", clickID, domain.ErrAlreadySet)
}

// InsertFeedback records one relevance judgment.
func (r *Repo) InsertFeedback(ctx context.Context, f feedback.RelevanceFeedback) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO relevance_feedback
		(id, search_interaction_id, document_id, rating, is_relevant, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		f.ID, f.SearchInteractionID, f.DocumentID, f.Rating, f.IsRelevant, f.Comment, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// SearchMetrics aggregates interaction quality over [from, to), optionally
// scoped to one user (empty userID means all users).
// Ratings of 4 and up (or an explicit relevant flag) count as relevant,
// 2 and down (or an explicit irrelevant flag) as irrelevant.
func (r *Repo) SearchMetrics(ctx context.Context, from, to time.Time, userID string) (feedback.SearchMetrics, error) {
	var m feedback.SearchMetrics
	var totalClicks int
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(DISTINCT si.id),
			COUNT(DISTINCT si.id) FILTER (WHERE ce.id IS NOT NULL),
			COUNT(ce.id),
			COALESCE(AVG(ce.position), 0)
		FROM search_interactions si
		LEFT JOIN click_events ce ON ce.search_interaction_id = si.id
		WHERE si.created_at >= $1 AND si.created_at < $2
			AND ($3 = '' OR si.user_id = $3)`, from, to, userID).
		Scan(&m.TotalSearches, &m.SearchesWithClick, &totalClicks, &m.AvgClickPosition)
	if err != nil {
		return feedback.SearchMetrics{}, fmt.Errorf("search metrics: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `SELECT
			COUNT(*) FILTER (WHERE rf.rating >= 4 OR rf.is_relevant IS TRUE),
			COUNT(*) FILTER (WHERE rf.rating <= 2 OR rf.is_relevant IS FALSE)
		FROM relevance_feedback rf
		JOIN search_interactions si ON si.id = rf.search_interaction_id
		WHERE si.created_at >= $1 AND si.created_at < $2
			AND ($3 = '' OR si.user_id = $3)`, from, to, userID).
		Scan(&m.RelevantCount, &m.IrrelevantCount)
	if err != nil {
		return feedback.SearchMetrics{}, fmt.Errorf("feedback metrics: %w", err)
	}

	if m.TotalSearches > 0 {
		m.ClickThroughRate = float64(m.SearchesWithClick) / float64(m.TotalSearches)
		m.AvgClicksPerSearch = float64(totalClicks) / float64(m.TotalSearches)
	}
	if judged := m.RelevantCount + m.IrrelevantCount; judged > 0 {
		m.RelevanceRate = float64(m.RelevantCount) / float64(judged)
	}
	return m, nil
}

// TopClickedDocuments returns the most clicked documents over [from, to).
func (r *Repo) TopClickedDocuments(ctx context.Context, from, to time.Time, limit int) ([]feedback.DocumentClicks, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document_id, COUNT(*), AVG(position)
		FROM click_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY document_id
		ORDER BY COUNT(*) DESC, document_id
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("top clicked: %w", err)
	}
	defer rows.Close()

	var out []feedback.DocumentClicks
	for rows.Next() {
		var dc feedback.DocumentClicks
		if err := rows.Scan(&dc.DocumentID, &dc.Clicks, &dc.AvgPosition); err != nil {
			return nil, fmt.Errorf("top clicked scan: %w", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top clicked rows: %w", err)
	}
	return out, nil
}

// InsertABTest stores a new experiment definition.
func (r *Repo) InsertABTest(ctx context.Context, t feedback.ABTestConfig) error {
	split, err := json.Marshal(t.TrafficSplit)
	if err != nil {
		return fmt.Errorf("marshal traffic split: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO ab_tests
		(id, name, variants, traffic_split, starts_at, ends_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.Name, pq.Array(t.Variants), split, t.StartsAt, t.EndsAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ab test: %w", err)
	}
	return nil
}

// GetABTest loads one experiment definition.
func (r *Repo) GetABTest(ctx context.Context, testID string) (feedback.ABTestConfig, error) {
	var t feedback.ABTestConfig
	var split []byte
	err := r.db.QueryRowContext(ctx, `SELECT id, name, variants, traffic_split, starts_at, ends_at, created_at
		FROM ab_tests WHERE id = $1`, testID).
		Scan(&t.ID, &t.Name, pq.Array(&t.Variants), &split, &t.StartsAt, &t.EndsAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return feedback.ABTestConfig{}, fmt.Errorf("ab test %s: %w", testID, domain.ErrNotFound)
	}
	if err != nil {
		return feedback.ABTestConfig{}, fmt.Errorf("get ab test: %w", err)
	}
	if err := json.Unmarshal(split, &t.TrafficSplit); err != nil {
		return feedback.ABTestConfig{}, fmt.Errorf("unmarshal traffic split: %w", err)
	}
	return t, nil
}

// GetAssignment loads the sticky variant for one user in one test.
func (r *Repo) GetAssignment(ctx context.Context, testID, userID string) (feedback.ABAssignment, error) {
	var a feedback.ABAssignment
	err := r.db.QueryRowContext(ctx, `SELECT test_id, user_id, variant, created_at
		FROM ab_assignments WHERE test_id = $1 AND user_id = $2`, testID, userID).
		Scan(&a.TestID, &a.UserID, &a.Variant, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return feedback.ABAssignment{}, fmt.Errorf("assignment %s/%s: %w", testID, userID, domain.ErrNotFound)
	}
	if err != nil {
		return feedback.ABAssignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// InsertAssignment stores a sticky assignment. Concurrent inserts for the
// same user collapse onto one row; the variant is deterministic per user, so
// whichever writer wins, the mapping is the same.
func (r *Repo) InsertAssignment(ctx context.Context, a feedback.ABAssignment) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO ab_assignments
		(test_id, user_id, variant, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (test_id, user_id) DO NOTHING`,
		a.TestID, a.UserID, a.Variant, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// ABTestResults aggregates per-variant outcomes, windowed to the test's
// active period.
func (r *Repo) ABTestResults(ctx context.Context, testID string) ([]feedback.VariantMetrics, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
			a.variant,
			COUNT(DISTINCT a.user_id),
			COUNT(DISTINCT si.id),
			COUNT(DISTINCT ce.search_interaction_id),
			COALESCE(AVG(rf.rating), 0),
			COUNT(rf.id) FILTER (WHERE rf.rating >= 4 OR rf.is_relevant IS TRUE),
			COUNT(rf.id)
		FROM ab_assignments a
		JOIN ab_tests t ON t.id = a.test_id
		LEFT JOIN search_interactions si
			ON si.user_id = a.user_id AND si.created_at >= t.starts_at AND si.created_at < t.ends_at
		LEFT JOIN click_events ce ON ce.search_interaction_id = si.id
		LEFT JOIN relevance_feedback rf ON rf.search_interaction_id = si.id
		WHERE a.test_id = $1
		GROUP BY a.variant
		ORDER BY a.variant`, testID)
	if err != nil {
		return nil, fmt.Errorf("ab test results: %w", err)
	}
	defer rows.Close()

	var out []feedback.VariantMetrics
	for rows.Next() {
		var vm feedback.VariantMetrics
		var withClick, relevant, rated int
		if err := rows.Scan(&vm.Variant, &vm.Users, &vm.Searches, &withClick,
			&vm.AvgRating, &relevant, &rated); err != nil {
			return nil, fmt.Errorf("ab test results scan: %w", err)
		}
		if vm.Searches > 0 {
			vm.CTR = float64(withClick) / float64(vm.Searches)
		}
		if rated > 0 {
			vm.RelevanceRate = float64(relevant) / float64(rated)
		}
		out = append(out, vm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ab test results rows: %w", err)
	}
	return out, nil
}
