package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/config"
	"github.com/iuslabs/lexdex/internal/dictionary"
	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/entity"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// LowConfidenceThreshold marks a transformation the caller should treat
// with caution. The result is still returned.
const LowConfidenceThreshold = 0.3

// extractionThreshold is the fuzzy floor for window-scan entity extraction.
// Stricter than interactive lookup: a wrong entity poisons filter synthesis.
const extractionThreshold = 0.85

// maxWindow bounds the n-gram scan; no seeded entity name is longer.
const maxWindow = 6

// Service is the query understanding pipeline:
// spell-check → expansion → entity extraction → filter synthesis → validation.
type Service struct {
	dict   Dictionary
	sim    dictionary.Similarity
	cfg    config.QueryConfig
	logger *zap.Logger
}

// New creates a query understanding service.
func New(dict Dictionary, sim dictionary.Similarity, cfg config.QueryConfig, logger *zap.Logger) *Service {
	if sim == nil {
		sim = dictionary.EditDistance{}
	}
	return &Service{dict: dict, sim: sim, cfg: cfg, logger: logger}
}

// Transform runs the understanding pipeline under the configured budget.
// Exceeding the budget returns domain.ErrTimeout via TimeoutError; every
// other input produces a best-effort Result, low confidence included.
func (s *Service) Transform(ctx context.Context, query string) (Result, error) {
	budget := time.Duration(s.cfg.BudgetMS) * time.Millisecond
	if budget <= 0 {
		budget = 2 * time.Second
	}

	done := make(chan Result, 1)
	go func() {
		done <- s.transform(query)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.LowConfidence {
			s.logger.Warn("Low-confidence query transformation",
				zap.String("query", query), zap.Float64("confidence", res.Confidence))
		}
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
		return Result{}, domain.NewTimeout("understanding", budget)
	}
}

// ValidateFilters checks filters standalone, usable pre-search.
func (s *Service) ValidateFilters(f filter.Filters) filter.ValidationResult {
	return f.Validate()
}

func (s *Service) transform(query string) Result {
	tokens := tokenize(query)

	corrections := 0
	if s.enabled(s.cfg.SpellCheck) {
		tokens, corrections = spellCheck(tokens, s.dict.Vocabulary(), s.sim)
	}
	corrected := strings.Join(tokens, " ")

	terms := tokens
	if s.enabled(s.cfg.Expansion) {
		terms = expandTerms(tokens)
	}

	var entities []dictionary.Match
	if s.enabled(s.cfg.EntityExtraction) {
		entities = s.extractEntities(query, tokens)
	}

	res := Result{
		CorrectedText: corrected,
		ExpandedTerms: terms,
		Filters:       synthesizeFilters(entities),
		Entities:      entities,
	}
	res.Confidence = confidence(tokens, corrections, entities, s.vocabSet())
	res.LowConfidence = res.Confidence < LowConfidenceThreshold
	res.RefinementSuggestions = s.refinements(tokens, entities)
	return res
}

func (s *Service) enabled(flag *bool) bool {
	return flag == nil || *flag
}

func (s *Service) vocabSet() map[string]struct{} {
	vocab := s.dict.Vocabulary()
	set := make(map[string]struct{}, len(vocab))
	for _, w := range vocab {
		set[w] = struct{}{}
	}
	return set
}

// extractEntities combines pattern hits over the raw query with a sliding
// window scan over corrected tokens. Deduplicated by entity id, keeping the
// strongest match.
func (s *Service) extractEntities(raw string, tokens []string) []dictionary.Match {
	byID := make(map[string]dictionary.Match)
	keep := func(m dictionary.Match) {
		id := m.Entity.ID()
		if prev, ok := byID[id]; ok && prev.Score >= m.Score {
			return
		}
		byID[id] = m
	}

	for _, e := range s.dict.FindByPattern(raw) {
		keep(dictionary.Match{Entity: e, Score: dictionary.ScoreExact, Kind: dictionary.MatchExact})
	}

	for width := maxWindow; width >= 1; width-- {
		for i := 0; i+width <= len(tokens); i++ {
			window := strings.Join(tokens[i:i+width], " ")
			m := s.dict.FindEntity(window, dictionary.FindOptions{FuzzyThreshold: extractionThreshold})
			if m == nil {
				continue
			}
			// Single tokens only bind on strong evidence: substring hits
			// on one word produce junk entities.
			if width == 1 && m.Kind == dictionary.MatchSubstring {
				continue
			}
			keep(*m)
		}
	}

	out := make([]dictionary.Match, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entity.ID() < out[j].Entity.ID()
	})
	return out
}

// synthesizeFilters derives structured predicates from extracted entities.
func synthesizeFilters(entities []dictionary.Match) filter.Filters {
	var f filter.Filters
	seenNT := make(map[filter.NormType]struct{})
	seenJur := make(map[string]struct{})
	seenTopic := make(map[string]struct{})

	for _, m := range entities {
		e := m.Entity
		switch e.Type() {
		case entity.Constitution, entity.Code, entity.Law, entity.Regulation:
			nt := normTypeFor(e.Type())
			if _, ok := seenNT[nt]; !ok {
				seenNT[nt] = struct{}{}
				f.NormTypes = append(f.NormTypes, nt)
			}
		case entity.Jurisdiction:
			if _, ok := seenJur[e.Name()]; !ok {
				seenJur[e.Name()] = struct{}{}
				f.Jurisdictions = append(f.Jurisdictions, e.Name())
			}
		case entity.Concept:
			if _, ok := seenTopic[e.Name()]; !ok {
				seenTopic[e.Name()] = struct{}{}
				f.Topics = append(f.Topics, e.Name())
			}
		}
	}
	return f
}

func normTypeFor(t entity.Type) filter.NormType {
	switch t {
	case entity.Constitution:
		return filter.Constitution
	case entity.Code:
		return filter.Code
	case entity.Regulation:
		return filter.Regulation
	default:
		return filter.Law
	}
}

// confidence scores how well the pipeline understood the query: vocabulary
// coverage dominates, recognized entities add, corrections subtract.
func confidence(tokens []string, corrections int, entities []dictionary.Match, vocab map[string]struct{}) float64 {
	if len(tokens) == 0 {
		return 0
	}

	known := 0
	for _, tok := range tokens {
		if _, ok := vocab[tok]; ok {
			known++
		}
	}

	c := 0.2 + 0.5*float64(known)/float64(len(tokens))
	if len(entities) > 0 {
		c += 0.25
	}
	c -= 0.05 * float64(corrections)

	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// refinements suggests catalog terms for tokens the pipeline could not bind.
func (s *Service) refinements(tokens []string, entities []dictionary.Match) []string {
	covered := make(map[string]struct{})
	for _, m := range entities {
		for _, w := range tokenize(m.Entity.Name()) {
			covered[w] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, tok := range tokens {
		if len(tok) < minCorrectableLen {
			continue
		}
		if _, ok := covered[tok]; ok {
			continue
		}
		for _, sug := range s.dict.Suggest(tok, 2) {
			if _, ok := seen[sug]; ok {
				continue
			}
			seen[sug] = struct{}{}
			out = append(out, sug)
		}
	}
	return out
}
