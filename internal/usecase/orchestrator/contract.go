package orchestrator

import (
	"context"
	"time"

	"github.com/iuslabs/lexdex/internal/cache"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
	"github.com/iuslabs/lexdex/internal/usecase/analytics"
	"github.com/iuslabs/lexdex/internal/usecase/query"
	"github.com/iuslabs/lexdex/internal/usecase/retrieval"
)

// Understander is the query understanding stage.
type Understander interface {
	Transform(ctx context.Context, q string) (query.Result, error)
	ValidateFilters(f filter.Filters) filter.ValidationResult
}

// Retriever is the candidate generation stage.
type Retriever interface {
	Retrieve(ctx context.Context, in retrieval.Input) (retrieval.Result, error)
}

// Ranker is the score fusion and ordering stage.
type Ranker interface {
	Rank(cands []candidate.Candidate, sortMode mode.Sort) ([]candidate.Candidate, time.Duration)
}

// Cache is the cascading tier manager.
type Cache interface {
	Get(ctx context.Context, key cache.Key) ([]byte, cache.Tier)
	Set(ctx context.Context, key cache.Key, value []byte)
	Clear(ctx context.Context) error
	Stats() cache.Stats
}

// Tracker records interactions off the response path.
type Tracker interface {
	TrackSearch(ctx context.Context, in analytics.TrackSearchInput) (string, error)
}

// Suggester backs the prefix suggestion operation.
type Suggester interface {
	Suggest(prefix string, limit int) []string
}

// cachePayload is the tier-stored representation of one computed page.
type cachePayload struct {
	Documents  []candidate.Candidate `json:"documents"`
	TotalCount int                   `json:"totalCount"`
}
