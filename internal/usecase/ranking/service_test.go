package ranking

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/config"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.RankingConfig{
		SemanticWeight:   0.40,
		TextRankWeight:   0.25,
		PopularityWeight: 0.15,
		AuthorityWeight:  0.10,
		RecencyWeight:    0.10,
		RecencyHalfLife:  10,
	}
	return New(cfg, zap.NewNop())
}

func datePtr(y, m, d int) *time.Time {
	ts := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &ts
}

func TestRank_RelevanceOrdersByCombinedScore(t *testing.T) {
	svc := newTestService(t)

	cands := []candidate.Candidate{
		{DocumentID: "weak", SemanticSimilarity: 0.2, AuthorityScore: 0.1},
		{DocumentID: "strong", SemanticSimilarity: 0.9, TextRank: 3.0, Popularity: 500, AuthorityScore: 0.9, PublishedAt: datePtr(2023, 1, 1)},
		{DocumentID: "middle", SemanticSimilarity: 0.5, TextRank: 1.0, Popularity: 50, AuthorityScore: 0.5},
	}

	ranked, elapsed := svc.Rank(cands, mode.Relevance)
	if elapsed < 0 {
		t.Errorf("expected non-negative processing time, got %v", elapsed)
	}
	if ranked[0].DocumentID != "strong" || ranked[2].DocumentID != "weak" {
		t.Fatalf("unexpected order: %s, %s, %s",
			ranked[0].DocumentID, ranked[1].DocumentID, ranked[2].DocumentID)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].CombinedScore > ranked[i-1].CombinedScore {
			t.Errorf("combined scores not non-increasing at %d", i)
		}
	}
	// Input must stay untouched.
	if cands[0].CombinedScore != 0 || cands[0].DocumentID != "weak" {
		t.Error("input slice was mutated")
	}
}

func TestRank_RelevanceTieBreaksByDocumentID(t *testing.T) {
	svc := newTestService(t)

	cands := []candidate.Candidate{
		{DocumentID: "zeta", SemanticSimilarity: 0.5},
		{DocumentID: "alfa", SemanticSimilarity: 0.5},
	}

	ranked, _ := svc.Rank(cands, mode.Relevance)
	if ranked[0].DocumentID != "alfa" {
		t.Fatalf("expected ascending id tie-break, got %s first", ranked[0].DocumentID)
	}
}

func TestRank_DateMissingDatesSortLast(t *testing.T) {
	svc := newTestService(t)

	cands := []candidate.Candidate{
		// High semantic score must not rescue an undated candidate.
		{DocumentID: "undated", SemanticSimilarity: 0.99},
		{DocumentID: "old", PublishedAt: datePtr(1990, 5, 1)},
		{DocumentID: "new", PublishedAt: datePtr(2024, 2, 10)},
	}

	ranked, _ := svc.Rank(cands, mode.Date)
	if ranked[0].DocumentID != "new" || ranked[1].DocumentID != "old" {
		t.Fatalf("expected date descending, got %s, %s", ranked[0].DocumentID, ranked[1].DocumentID)
	}
	if ranked[2].DocumentID != "undated" {
		t.Fatalf("undated candidate must sort last, got %s", ranked[2].DocumentID)
	}
}

func TestRank_Popularity(t *testing.T) {
	svc := newTestService(t)

	cands := []candidate.Candidate{
		{DocumentID: "a", Popularity: 10},
		{DocumentID: "b", Popularity: 300},
		{DocumentID: "c", Popularity: 40},
	}

	ranked, _ := svc.Rank(cands, mode.Popularity)
	if ranked[0].DocumentID != "b" || ranked[1].DocumentID != "c" || ranked[2].DocumentID != "a" {
		t.Fatalf("unexpected popularity order: %+v", ranked)
	}
}

func TestRank_Authority(t *testing.T) {
	svc := newTestService(t)

	cands := []candidate.Candidate{
		{DocumentID: "a", AuthorityScore: 0.3},
		{DocumentID: "b", AuthorityScore: 0.95},
	}

	ranked, _ := svc.Rank(cands, mode.Authority)
	if ranked[0].DocumentID != "b" {
		t.Fatalf("unexpected authority order: %+v", ranked)
	}
}

func TestRank_RecencyFavorsNewerOnEqualSignals(t *testing.T) {
	svc := newTestService(t)

	cands := []candidate.Candidate{
		{DocumentID: "older", SemanticSimilarity: 0.5, PublishedAt: datePtr(2000, 1, 1)},
		{DocumentID: "newer", SemanticSimilarity: 0.5, PublishedAt: datePtr(2025, 1, 1)},
	}

	ranked, _ := svc.Rank(cands, mode.Relevance)
	if ranked[0].DocumentID != "newer" {
		t.Fatalf("expected recency to favor the newer document, got %s", ranked[0].DocumentID)
	}
	if ranked[0].CombinedScore <= ranked[1].CombinedScore {
		t.Errorf("expected strictly higher score for newer document")
	}
}

func TestRank_EmptyInput(t *testing.T) {
	svc := newTestService(t)

	ranked, _ := svc.Rank(nil, mode.Relevance)
	if len(ranked) != 0 {
		t.Fatalf("expected empty output, got %d", len(ranked))
	}
}
