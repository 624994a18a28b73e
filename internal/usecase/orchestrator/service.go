package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/cache"
	"github.com/iuslabs/lexdex/internal/config"
	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/request"
	"github.com/iuslabs/lexdex/internal/domain/search/result"
	"github.com/iuslabs/lexdex/internal/metrics"
	"github.com/iuslabs/lexdex/internal/usecase/analytics"
	"github.com/iuslabs/lexdex/internal/usecase/query"
	"github.com/iuslabs/lexdex/internal/usecase/retrieval"
)

// trackTimeout bounds the fire-and-forget analytics write.
const trackTimeout = 5 * time.Second

// Service sequences one search call: understanding → cache probe → on miss
// retrieve → rank → cache populate → paginate, with asynchronous tracking.
type Service struct {
	understander Understander
	retriever    Retriever
	ranker       Ranker
	cache        Cache
	tracker      Tracker
	suggester    Suggester
	cfg          config.SearchConfig
	logger       *zap.Logger
}

// New creates a search orchestrator.
func New(
	understander Understander, retriever Retriever, ranker Ranker,
	c Cache, tracker Tracker, suggester Suggester,
	cfg config.SearchConfig, logger *zap.Logger,
) *Service {
	return &Service{
		understander: understander,
		retriever:    retriever,
		ranker:       ranker,
		cache:        c,
		tracker:      tracker,
		suggester:    suggester,
		cfg:          cfg,
		logger:       logger,
	}
}

// Search executes one search call. Cache population happens strictly after
// ranking and strictly before the response returns, so an immediately
// repeated identical call hits L1. Analytics never blocks or fails the
// response.
func (s *Service) Search(ctx context.Context, req *request.Request) (*result.Response, error) {
	start := time.Now()
	var timings result.Timings
	var degraded []string

	limit := req.Limit()
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	// Understanding. A budget overrun degrades to the raw query; the
	// search itself proceeds.
	stageStart := time.Now()
	tr, err := s.understander.Transform(ctx, req.Query())
	timings.Understanding = time.Since(stageStart)
	if err != nil {
		if !errors.Is(err, domain.ErrTimeout) {
			metrics.SearchesTotal.WithLabelValues(string(req.Sort()), "error").Inc()
			return nil, err
		}
		degraded = append(degraded, "understanding_timeout")
		tr = query.Result{CorrectedText: req.Query()}
		s.logger.Warn("Understanding stage timed out, using raw query",
			zap.String("query", req.Query()))
	}
	metrics.SearchStageDuration.WithLabelValues("understanding").Observe(timings.Understanding.Seconds())

	filters := mergeFilters(req.Filters(), tr.Filters)
	key := cache.NewKey(tr.CorrectedText, req.CaseID(), filters, req.Offset(), limit, req.Sort())

	debug := result.DebugInfo{
		CorrectedQuery: tr.CorrectedText,
		ExpandedTerms:  tr.ExpandedTerms,
		Confidence:     tr.Confidence,
		LowConfidence:  tr.LowConfidence,
	}
	for _, m := range tr.Entities {
		debug.Entities = append(debug.Entities, m.Entity.ID())
	}

	// Cache probe.
	stageStart = time.Now()
	data, tier := s.cache.Get(ctx, key)
	timings.CacheProbe = time.Since(stageStart)
	metrics.SearchStageDuration.WithLabelValues("cache_probe").Observe(timings.CacheProbe.Seconds())

	if tier != cache.TierMiss {
		var payload cachePayload
		if err := json.Unmarshal(data, &payload); err == nil {
			timings.Total = time.Since(start)
			debug.CacheTier = string(tier)
			debug.Degraded = degraded
			resp := &result.Response{
				Documents:  payload.Documents,
				TotalCount: payload.TotalCount,
				Timings:    timings,
				Debug:      debug,
			}
			metrics.SearchesTotal.WithLabelValues(string(req.Sort()), "cache_hit").Inc()
			s.trackAsync(ctx, req, filters, len(payload.Documents))
			return resp, nil
		}
		s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key.String()))
	}

	// Retrieval.
	stageStart = time.Now()
	rres, err := s.retriever.Retrieve(ctx, retrieval.Input{
		Query:   tr.CorrectedText,
		Terms:   tr.ExpandedTerms,
		CaseID:  req.CaseID(),
		Filters: filters,
	})
	timings.Retrieval = time.Since(stageStart)
	metrics.SearchStageDuration.WithLabelValues("retrieval").Observe(timings.Retrieval.Seconds())
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(string(req.Sort()), "error").Inc()
		return nil, err
	}
	if rres.SemanticFailed {
		degraded = append(degraded, "semantic_source")
	}
	if rres.LexicalFailed {
		degraded = append(degraded, "lexical_source")
	}

	// Ranking.
	ranked, rankDur := s.ranker.Rank(rres.Candidates, req.Sort())
	timings.Ranking = rankDur
	metrics.SearchStageDuration.WithLabelValues("ranking").Observe(rankDur.Seconds())

	totalCount := len(ranked)
	page := paginate(ranked, req.Offset(), limit)

	// Populate before returning: the next identical call must hit.
	if payload, err := json.Marshal(cachePayload{Documents: page, TotalCount: totalCount}); err == nil {
		s.cache.Set(ctx, key, payload)
	}

	timings.Total = time.Since(start)
	debug.CacheTier = string(cache.TierMiss)
	debug.Degraded = degraded

	outcome := "success"
	if len(degraded) > 0 {
		outcome = "degraded"
	}
	metrics.SearchesTotal.WithLabelValues(string(req.Sort()), outcome).Inc()

	s.trackAsync(ctx, req, filters, len(page))

	return &result.Response{
		Documents:  page,
		TotalCount: totalCount,
		Timings:    timings,
		Debug:      debug,
	}, nil
}

// Suggestions returns ranked prefix completions from the entity catalog.
func (s *Service) Suggestions(prefix string, limit int) []string {
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return s.suggester.Suggest(prefix, limit)
}

// ValidateFilters checks filters without running a search.
func (s *Service) ValidateFilters(f filter.Filters) filter.ValidationResult {
	return s.understander.ValidateFilters(f)
}

// CacheStats exposes tier counters for the admin surface.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every cached page across all tiers.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// trackAsync records the interaction off the response path. Panics and
// errors are contained; the search result is already on its way out.
func (s *Service) trackAsync(ctx context.Context, req *request.Request, filters filter.Filters, resultsCount int) {
	in := analytics.TrackSearchInput{
		UserID:       req.UserID(),
		Query:        req.Query(),
		ResultsCount: resultsCount,
		Filters:      filters,
		SessionID:    req.SessionID(),
	}

	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackTimeout)
	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				metrics.AnalyticsTrackingFailures.Inc()
				s.logger.Error("Analytics tracking panicked", zap.Any("panic", r))
			}
		}()
		if _, err := s.tracker.TrackSearch(trackCtx, in); err != nil {
			metrics.AnalyticsTrackingFailures.Inc()
			s.logger.Warn("Analytics tracking failed", zap.Error(err))
		}
	}()
}

// mergeFilters unions caller filters with synthesized ones; caller values
// come first and duplicates collapse.
func mergeFilters(base, synth filter.Filters) filter.Filters {
	out := base

	seenNT := make(map[filter.NormType]struct{}, len(base.NormTypes))
	for _, nt := range base.NormTypes {
		seenNT[nt] = struct{}{}
	}
	for _, nt := range synth.NormTypes {
		if _, ok := seenNT[nt]; !ok {
			out.NormTypes = append(out.NormTypes, nt)
		}
	}

	seenJur := make(map[string]struct{}, len(base.Jurisdictions))
	for _, j := range base.Jurisdictions {
		seenJur[j] = struct{}{}
	}
	for _, j := range synth.Jurisdictions {
		if _, ok := seenJur[j]; !ok {
			out.Jurisdictions = append(out.Jurisdictions, j)
		}
	}

	seenTopic := make(map[string]struct{}, len(base.Topics))
	for _, t := range base.Topics {
		seenTopic[t] = struct{}{}
	}
	for _, t := range synth.Topics {
		if _, ok := seenTopic[t]; !ok {
			out.Topics = append(out.Topics, t)
		}
	}

	if out.DateRange == nil {
		out.DateRange = synth.DateRange
	}
	if out.MinAuthority == nil {
		out.MinAuthority = synth.MinAuthority
	}
	if out.MinPopularity == nil {
		out.MinPopularity = synth.MinPopularity
	}
	return out
}

func paginate(cands []candidate.Candidate, offset, limit int) []candidate.Candidate {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(cands) {
		return nil
	}
	end := len(cands)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return cands[offset:end]
}
