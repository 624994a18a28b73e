package retrieval

import (
	"context"
	"time"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/repository/corpus"
)

// Repository is the candidate-source contract over partitioned corpus
// indexes.
type Repository interface {
	SemanticSearch(
		ctx context.Context, p corpus.Partition,
		vector []float32, filters filter.Filters, topK int,
	) ([]candidate.Candidate, error)

	LexicalSearch(
		ctx context.Context, p corpus.Partition,
		terms []string, filters filter.Filters, topK int,
	) ([]candidate.Candidate, error)
}

// Embedder vectorizes the query for the semantic source.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Input is one retrieval request. CaseID widens the search to that case's
// private partition alongside the shared library.
type Input struct {
	Query   string
	Terms   []string
	CaseID  string
	Filters filter.Filters
}

// Result carries merged candidates plus per-source degradation metadata.
// A failed source contributes nothing but never aborts retrieval.
type Result struct {
	Candidates []candidate.Candidate

	SemanticFailed   bool
	LexicalFailed    bool
	SemanticDuration time.Duration
	LexicalDuration  time.Duration
}

// Degraded reports whether any source failed.
func (r Result) Degraded() bool {
	return r.SemanticFailed || r.LexicalFailed
}
