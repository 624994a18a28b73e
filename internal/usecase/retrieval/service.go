package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iuslabs/lexdex/internal/config"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/metrics"
	"github.com/iuslabs/lexdex/internal/repository/corpus"
)

// Service fans out over the semantic and lexical sources concurrently and
// merges their candidates by document.
type Service struct {
	repo   Repository
	embed  Embedder
	cfg    config.RetrievalConfig
	logger *zap.Logger
}

// New creates a retrieval coordinator.
func New(repo Repository, embed Embedder, cfg config.RetrievalConfig, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, cfg: cfg, logger: logger}
}

// Retrieve runs both sources concurrently and merges. A failing source
// degrades to an empty set for that source only; the error return is
// reserved for context cancellation.
func (s *Service) Retrieve(ctx context.Context, in Input) (Result, error) {
	partitions := []corpus.Partition{corpus.Library()}
	if in.CaseID != "" {
		partitions = append(partitions, corpus.Case(in.CaseID))
	}

	var (
		semantic []candidate.Candidate
		lexical  []candidate.Candidate
		res      Result
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		cands, err := s.retrieveSemantic(gctx, in, partitions)
		res.SemanticDuration = time.Since(start)
		if err != nil {
			res.SemanticFailed = true
			metrics.RetrievalSourceFailures.WithLabelValues("semantic").Inc()
			s.logger.Warn("Semantic source degraded", zap.Error(err))
			return nil
		}
		semantic = cands
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		cands, err := s.retrieveLexical(gctx, in, partitions)
		res.LexicalDuration = time.Since(start)
		if err != nil {
			res.LexicalFailed = true
			metrics.RetrievalSourceFailures.WithLabelValues("lexical").Inc()
			s.logger.Warn("Lexical source degraded", zap.Error(err))
			return nil
		}
		lexical = cands
		return nil
	})

	// Source errors are swallowed above; Wait only relays ctx errors.
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res.Candidates = s.merge(semantic, lexical)
	return res, nil
}

func (s *Service) retrieveSemantic(ctx context.Context, in Input, parts []corpus.Partition) ([]candidate.Candidate, error) {
	emb, err := s.embed.Embed(ctx, in.Query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	var out []candidate.Candidate
	for _, p := range parts {
		cands, err := s.repo.SemanticSearch(ctx, p, emb.Embedding, in.Filters, s.cfg.SourceLimit)
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", p.Name(), err)
		}
		out = append(out, cands...)
	}
	return out, nil
}

func (s *Service) retrieveLexical(ctx context.Context, in Input, parts []corpus.Partition) ([]candidate.Candidate, error) {
	terms := in.Terms
	if len(terms) == 0 {
		terms = []string{in.Query}
	}

	var out []candidate.Candidate
	for _, p := range parts {
		cands, err := s.repo.LexicalSearch(ctx, p, terms, in.Filters, s.cfg.SourceLimit)
		if err != nil {
			return nil, fmt.Errorf("partition %s: %w", p.Name(), err)
		}
		out = append(out, cands...)
	}
	return out, nil
}

// merge keys candidates by document id. A document seen by both sources
// gets its similarity boosted (saturating at 1.0) and multi-source
// provenance; convergent evidence outranks either source alone.
func (s *Service) merge(semantic, lexical []candidate.Candidate) []candidate.Candidate {
	boost := s.cfg.MultiSourceBoost
	if boost < 1 {
		boost = 1
	}

	merged := make(map[string]candidate.Candidate, len(semantic)+len(lexical))
	order := make([]string, 0, len(semantic)+len(lexical))

	for _, c := range semantic {
		if _, ok := merged[c.DocumentID]; !ok {
			order = append(order, c.DocumentID)
		}
		merged[c.DocumentID] = c
	}

	for _, lc := range lexical {
		sc, ok := merged[lc.DocumentID]
		if !ok {
			merged[lc.DocumentID] = lc
			order = append(order, lc.DocumentID)
			continue
		}

		sim := sc.SemanticSimilarity
		if lc.SemanticSimilarity > sim {
			sim = lc.SemanticSimilarity
		}
		sim *= boost
		if sim > 1 {
			sim = 1
		}

		sc.SemanticSimilarity = sim
		if lc.TextRank > sc.TextRank {
			sc.TextRank = lc.TextRank
		}
		if sc.Content == "" {
			sc.Content = lc.Content
		}
		if sc.PublishedAt == nil {
			sc.PublishedAt = lc.PublishedAt
		}
		sc.Source = candidate.MultiSource
		merged[lc.DocumentID] = sc
	}

	out := make([]candidate.Candidate, 0, len(merged))
	for _, id := range order {
		out = append(out, merged[id])
	}
	// Stable output order keeps downstream ranking deterministic before
	// scores are fused.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}
