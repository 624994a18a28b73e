package corpus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iuslabs/lexdex/internal/db"
	"github.com/iuslabs/lexdex/internal/db/redis"
	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// store is the consumer interface for corpus search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Partition addresses one searchable slice of the corpus: the shared library
// or a single case workspace. It fixes both the index to query and the
// provenance stamped on every candidate it yields.
type Partition struct {
	name   string
	source candidate.Source
}

// Library is the shared normative corpus partition.
func Library() Partition {
	return Partition{name: "library", source: candidate.GlobalLibrary}
}

// Case is the private partition of one case workspace.
func Case(caseID string) Partition {
	return Partition{name: "case:" + caseID, source: candidate.CaseLocal}
}

// Name returns the partition key segment.
func (p Partition) Name() string { return p.name }

// Source returns the provenance label for candidates from this partition.
func (p Partition) Source() candidate.Source { return p.source }

func (p Partition) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, p.name)
}

func (p Partition) docPrefix() string {
	return fmt.Sprintf("%s%s:doc:", domain.KeyPrefix, p.name)
}

// Repo implements retrieval's candidate sources over the search store.
type Repo struct {
	store store
}

// New creates a corpus repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// candidateFields are the hash fields every candidate needs for ranking.
var candidateFields = []string{
	redis.FieldContent,
	redis.FieldPopularity,
	redis.FieldAuthority,
	redis.FieldPubDate,
}

// SemanticSearch performs a KNN vector search on one partition with filter
// pre-filtering. Entry scores arrive as cosine similarity.
func (r *Repo) SemanticSearch(
	ctx context.Context, p Partition,
	vector []float32, filters filter.Filters, topK int,
) ([]candidate.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    p.indexName(),
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: candidateFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		// A case workspace with no ingested documents has no index yet.
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("semantic search %s: %w", p.Name(), err)
	}

	return parseCandidates(sr, p, true), nil
}

// LexicalSearch performs a BM25 keyword search on one partition. Entry
// scores arrive as BM25 rank.
func (r *Repo) LexicalSearch(
	ctx context.Context, p Partition,
	terms []string, filters filter.Filters, topK int,
) ([]candidate.Candidate, error) {
	q := &db.TextQuery{
		IndexName:    p.indexName(),
		Terms:        terms,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: candidateFields,
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lexical search %s: %w", p.Name(), err)
	}

	return parseCandidates(sr, p, false), nil
}

// parseCandidates converts db.SearchResult entries into ranking candidates.
// The entry score lands in SemanticSimilarity or TextRank by search kind.
func parseCandidates(sr *db.SearchResult, p Partition, semantic bool) []candidate.Candidate {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	prefix := p.docPrefix()
	out := make([]candidate.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		c := candidate.Candidate{
			DocumentID: strings.TrimPrefix(entry.Key, prefix),
			Source:     p.Source(),
		}
		if semantic {
			c.SemanticSimilarity = entry.Score
		} else {
			c.TextRank = entry.Score
		}

		for k, v := range entry.Fields {
			switch k {
			case redis.FieldContent:
				c.Content = v
			case redis.FieldPopularity:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					c.Popularity = f
				}
			case redis.FieldAuthority:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					c.AuthorityScore = f
				}
			case redis.FieldPubDate:
				if sec, err := strconv.ParseInt(v, 10, 64); err == nil && sec > 0 {
					ts := time.Unix(sec, 0).UTC()
					c.PublishedAt = &ts
				}
			}
		}
		out = append(out, c)
	}
	return out
}
