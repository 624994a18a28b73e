package analytics

import (
	"context"
	"fmt"
)

// schemaStatements are applied in order; every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS search_interactions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		results_count INT NOT NULL,
		filters JSONB NOT NULL DEFAULT '{}',
		session_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_interactions_created
		ON search_interactions (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_search_interactions_user
		ON search_interactions (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS click_events (
		id UUID PRIMARY KEY,
		search_interaction_id UUID NOT NULL REFERENCES search_interactions(id),
		document_id TEXT NOT NULL,
		position INT NOT NULL,
		relevance_score_at_click DOUBLE PRECISION NOT NULL DEFAULT 0,
		dwell_time_ms BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_interaction
		ON click_events (search_interaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_document
		ON click_events (document_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS relevance_feedback (
		id UUID PRIMARY KEY,
		search_interaction_id UUID NOT NULL REFERENCES search_interactions(id),
		document_id TEXT NOT NULL,
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		is_relevant BOOLEAN,
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_relevance_feedback_interaction
		ON relevance_feedback (search_interaction_id)`,
	`CREATE TABLE IF NOT EXISTS ab_tests (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		variants TEXT[] NOT NULL,
		traffic_split JSONB NOT NULL,
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ab_assignments (
		test_id UUID NOT NULL REFERENCES ab_tests(id),
		user_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (test_id, user_id)
	)`,
}

// EnsureSchema creates the analytics tables and indexes if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure analytics schema: %w", err)
		}
	}
	return nil
}
