package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
	"github.com/iuslabs/lexdex/internal/domain/search/request"
	"github.com/iuslabs/lexdex/internal/usecase/query"
	"github.com/iuslabs/lexdex/internal/usecase/retrieval"
)

func mustRequest(t *testing.T, q string, offset, limit int) *request.Request {
	t.Helper()
	req, err := request.New(q, "", filter.Filters{}, offset, limit, mode.Relevance, "sess-1", "user-1")
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func waitTracked(t *testing.T, tr *mockTracker) {
	t.Helper()
	select {
	case <-tr.tracked:
	case <-time.After(2 * time.Second):
		t.Fatal("analytics tracking never fired")
	}
}

func TestSearchMissThenHit(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(3)}, nil
	}

	ctx := context.Background()
	req := mustRequest(t, "codigo civil", 0, 10)

	first, err := svc.Search(ctx, req)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	waitTracked(t, deps.tracker)
	if len(first.Documents) != 3 || first.TotalCount != 3 {
		t.Fatalf("got %d docs total %d, want 3/3", len(first.Documents), first.TotalCount)
	}
	if first.Debug.CacheTier != "MISS" {
		t.Fatalf("first call cache tier = %q, want MISS", first.Debug.CacheTier)
	}
	if deps.cache.setCount() != 1 {
		t.Fatalf("cache sets = %d, want 1 before first return", deps.cache.setCount())
	}

	second, err := svc.Search(ctx, req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	waitTracked(t, deps.tracker)
	if second.Debug.CacheTier != "L1" {
		t.Fatalf("second call cache tier = %q, want L1", second.Debug.CacheTier)
	}
	if deps.retriever.callCount() != 1 {
		t.Fatalf("retriever called %d times, want 1", deps.retriever.callCount())
	}
	if len(second.Documents) != 3 || second.TotalCount != 3 {
		t.Fatalf("cached page lost data: %d docs total %d", len(second.Documents), second.TotalCount)
	}
	if second.Documents[0].DocumentID != first.Documents[0].DocumentID {
		t.Fatal("cached page differs from computed page")
	}
}

func TestSearchPagination(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(7)}, nil
	}

	req := mustRequest(t, "despido intempestivo", 2, 3)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)

	if resp.TotalCount != 7 {
		t.Fatalf("TotalCount = %d, want pre-pagination 7", resp.TotalCount)
	}
	if len(resp.Documents) != 3 {
		t.Fatalf("page size = %d, want 3", len(resp.Documents))
	}
	if resp.Documents[0].DocumentID != "c" {
		t.Fatalf("page starts at %q, want offset 2 = %q", resp.Documents[0].DocumentID, "c")
	}
}

func TestSearchOffsetPastEnd(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(2)}, nil
	}

	req := mustRequest(t, "codigo civil", 50, 10)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)
	if len(resp.Documents) != 0 {
		t.Fatalf("got %d docs past the end, want 0", len(resp.Documents))
	}
	if resp.TotalCount != 2 {
		t.Fatalf("TotalCount = %d, want 2", resp.TotalCount)
	}
}

func TestSearchLimitClampedToMaxPageSize(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(5)}, nil
	}

	req := mustRequest(t, "codigo civil", 0, 5000)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)
	if len(resp.Documents) != 5 {
		t.Fatalf("got %d docs, want all 5 under the clamp", len(resp.Documents))
	}
}

func TestSearchUnderstandingTimeoutDegrades(t *testing.T) {
	svc, deps := newTestService()
	deps.understander.transformFn = func(_ context.Context, _ string) (query.Result, error) {
		return query.Result{}, domain.NewTimeout("understanding", 10*time.Millisecond)
	}
	var gotInput retrieval.Input
	deps.retriever.retrieveFn = func(_ context.Context, in retrieval.Input) (retrieval.Result, error) {
		gotInput = in
		return retrieval.Result{Candidates: testCandidates(1)}, nil
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search should degrade, got %v", err)
	}
	waitTracked(t, deps.tracker)

	if gotInput.Query != "codigo civil" {
		t.Fatalf("retrieval query = %q, want raw query on timeout", gotInput.Query)
	}
	found := false
	for _, d := range resp.Debug.Degraded {
		if d == "understanding_timeout" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Degraded = %v, want understanding_timeout entry", resp.Debug.Degraded)
	}
}

func TestSearchUnderstandingHardErrorFails(t *testing.T) {
	svc, deps := newTestService()
	boom := errors.New("dictionary unavailable")
	deps.understander.transformFn = func(_ context.Context, _ string) (query.Result, error) {
		return query.Result{}, boom
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	if _, err := svc.Search(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the understanding error", err)
	}
	if deps.retriever.callCount() != 0 {
		t.Fatal("retrieval ran after a hard understanding failure")
	}
}

func TestSearchDegradedSourcesReported(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(1), SemanticFailed: true}, nil
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)

	if len(resp.Debug.Degraded) != 1 || resp.Debug.Degraded[0] != "semantic_source" {
		t.Fatalf("Degraded = %v, want [semantic_source]", resp.Debug.Degraded)
	}
	if len(resp.Documents) != 1 {
		t.Fatal("degraded search dropped surviving results")
	}
}

func TestSearchRetrievalErrorPropagates(t *testing.T) {
	svc, deps := newTestService()
	boom := errors.New("redis down")
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{}, boom
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	if _, err := svc.Search(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want retrieval error", err)
	}
	if deps.cache.setCount() != 0 {
		t.Fatal("failed search populated the cache")
	}
}

func TestSearchTracksInteractionAsync(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(2)}, nil
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)

	in := deps.tracker.lastInput()
	if in.UserID != "user-1" || in.SessionID != "sess-1" {
		t.Fatalf("tracked identifiers = %q/%q", in.UserID, in.SessionID)
	}
	if in.Query != "codigo civil" {
		t.Fatalf("tracked query = %q", in.Query)
	}
	if in.ResultsCount != 2 {
		t.Fatalf("tracked results count = %d, want 2", in.ResultsCount)
	}
}

func TestSearchTrackingFailureDoesNotAffectResponse(t *testing.T) {
	svc, deps := newTestService()
	deps.tracker.err = errors.New("postgres down")
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(1)}, nil
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)
	if len(resp.Documents) != 1 {
		t.Fatal("tracking failure changed the response")
	}
}

func TestSearchMergesSynthesizedFilters(t *testing.T) {
	svc, deps := newTestService()
	deps.understander.transformFn = func(_ context.Context, q string) (query.Result, error) {
		return query.Result{
			CorrectedText: q,
			Filters: filter.Filters{
				NormTypes:     []filter.NormType{filter.Code},
				Jurisdictions: []string{"Ecuador"},
			},
			Confidence: 0.9,
		}, nil
	}
	var gotInput retrieval.Input
	deps.retriever.retrieveFn = func(_ context.Context, in retrieval.Input) (retrieval.Result, error) {
		gotInput = in
		return retrieval.Result{}, nil
	}

	req, err := request.New("codigo civil", "", filter.Filters{
		NormTypes: []filter.NormType{filter.Code, filter.Law},
	}, 0, 10, mode.Relevance, "", "")
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	if _, err := svc.Search(context.Background(), &req); err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)

	if len(gotInput.Filters.NormTypes) != 2 {
		t.Fatalf("merged norm types = %v, want deduped [code law]", gotInput.Filters.NormTypes)
	}
	if len(gotInput.Filters.Jurisdictions) != 1 || gotInput.Filters.Jurisdictions[0] != "Ecuador" {
		t.Fatalf("merged jurisdictions = %v", gotInput.Filters.Jurisdictions)
	}
}

func TestSearchSetsTimings(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(1)}, nil
	}

	req := mustRequest(t, "codigo civil", 0, 10)
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)

	if resp.Timings.Total <= 0 {
		t.Fatal("Total timing not set")
	}
	if resp.Timings.Ranking <= 0 {
		t.Fatal("Ranking timing not set")
	}
	if resp.Timings.Total < resp.Timings.Retrieval {
		t.Fatal("Total timing below a stage timing")
	}
}

func TestSuggestionsDefaultsAndClampsLimit(t *testing.T) {
	svc, deps := newTestService()
	var gotLimit int
	deps.suggester.suggestFn = func(_ string, limit int) []string {
		gotLimit = limit
		return []string{"Código Civil"}
	}

	svc.Suggestions("cód", 0)
	if gotLimit != 20 {
		t.Fatalf("defaulted limit = %d, want 20", gotLimit)
	}
	svc.Suggestions("cód", 5000)
	if gotLimit != 100 {
		t.Fatalf("clamped limit = %d, want 100", gotLimit)
	}
}

func TestClearCache(t *testing.T) {
	svc, deps := newTestService()
	deps.retriever.retrieveFn = func(_ context.Context, _ retrieval.Input) (retrieval.Result, error) {
		return retrieval.Result{Candidates: testCandidates(1)}, nil
	}
	ctx := context.Background()
	req := mustRequest(t, "codigo civil", 0, 10)

	if _, err := svc.Search(ctx, req); err != nil {
		t.Fatalf("search: %v", err)
	}
	waitTracked(t, deps.tracker)
	if err := svc.ClearCache(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	resp, err := svc.Search(ctx, req)
	if err != nil {
		t.Fatalf("search after clear: %v", err)
	}
	waitTracked(t, deps.tracker)
	if resp.Debug.CacheTier != "MISS" {
		t.Fatalf("cache tier after clear = %q, want MISS", resp.Debug.CacheTier)
	}
}
