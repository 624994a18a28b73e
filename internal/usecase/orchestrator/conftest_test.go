package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/cache"
	"github.com/iuslabs/lexdex/internal/config"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
	"github.com/iuslabs/lexdex/internal/usecase/analytics"
	"github.com/iuslabs/lexdex/internal/usecase/query"
	"github.com/iuslabs/lexdex/internal/usecase/retrieval"
)

type mockUnderstander struct {
	transformFn func(ctx context.Context, q string) (query.Result, error)
	validateFn  func(f filter.Filters) filter.ValidationResult
}

func (m *mockUnderstander) Transform(ctx context.Context, q string) (query.Result, error) {
	if m.transformFn != nil {
		return m.transformFn(ctx, q)
	}
	return query.Result{CorrectedText: q, Confidence: 0.9}, nil
}

func (m *mockUnderstander) ValidateFilters(f filter.Filters) filter.ValidationResult {
	if m.validateFn != nil {
		return m.validateFn(f)
	}
	return f.Validate()
}

type mockRetriever struct {
	retrieveFn func(ctx context.Context, in retrieval.Input) (retrieval.Result, error)
	calls      int
	mu         sync.Mutex
}

func (m *mockRetriever) Retrieve(ctx context.Context, in retrieval.Input) (retrieval.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, in)
	}
	return retrieval.Result{}, nil
}

func (m *mockRetriever) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRanker struct {
	rankFn func(cands []candidate.Candidate, sortMode mode.Sort) ([]candidate.Candidate, time.Duration)
}

func (m *mockRanker) Rank(cands []candidate.Candidate, sortMode mode.Sort) ([]candidate.Candidate, time.Duration) {
	if m.rankFn != nil {
		return m.rankFn(cands, sortMode)
	}
	return cands, time.Millisecond
}

// mockCache is an in-memory single-tier stand-in for the tier manager.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key cache.Key) ([]byte, cache.Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.entries[key.String()]; ok {
		return v, cache.TierL1
	}
	return nil, cache.TierMiss
}

func (m *mockCache) Set(_ context.Context, key cache.Key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key.String()] = value
	m.sets++
}

func (m *mockCache) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

func (m *mockCache) Stats() cache.Stats { return cache.Stats{} }

func (m *mockCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// mockTracker signals on tracked so tests can wait for the async write.
type mockTracker struct {
	mu      sync.Mutex
	inputs  []analytics.TrackSearchInput
	tracked chan struct{}
	err     error
}

func newMockTracker() *mockTracker {
	return &mockTracker{tracked: make(chan struct{}, 16)}
}

func (m *mockTracker) TrackSearch(_ context.Context, in analytics.TrackSearchInput) (string, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()
	m.tracked <- struct{}{}
	return "interaction-1", m.err
}

func (m *mockTracker) lastInput() analytics.TrackSearchInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return analytics.TrackSearchInput{}
	}
	return m.inputs[len(m.inputs)-1]
}

type mockSuggester struct {
	suggestFn func(prefix string, limit int) []string
}

func (m *mockSuggester) Suggest(prefix string, limit int) []string {
	if m.suggestFn != nil {
		return m.suggestFn(prefix, limit)
	}
	return nil
}

type testDeps struct {
	understander *mockUnderstander
	retriever    *mockRetriever
	ranker       *mockRanker
	cache        *mockCache
	tracker      *mockTracker
	suggester    *mockSuggester
}

func newTestService() (*Service, *testDeps) {
	deps := &testDeps{
		understander: &mockUnderstander{},
		retriever:    &mockRetriever{},
		ranker:       &mockRanker{},
		cache:        newMockCache(),
		tracker:      newMockTracker(),
		suggester:    &mockSuggester{},
	}
	cfg := config.SearchConfig{DefaultPageSize: 20, MaxPageSize: 100}
	svc := New(
		deps.understander, deps.retriever, deps.ranker,
		deps.cache, deps.tracker, deps.suggester,
		cfg, zap.NewNop(),
	)
	return svc, deps
}

func testCandidates(n int) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidate.Candidate{
			DocumentID:         string(rune('a' + i)),
			Source:             candidate.GlobalLibrary,
			SemanticSimilarity: 1 - float64(i)*0.05,
			CombinedScore:      1 - float64(i)*0.05,
		})
	}
	return out
}
