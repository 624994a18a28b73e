package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iuslabs/lexdex/internal/db"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// --- SemanticSearch ---

func TestSemanticSearch_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "lexdex:library:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 10 {
			t.Errorf("unexpected K: %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "lexdex:library:doc:ley-001",
					Score: 0.91,
					Fields: map[string]string{
						"content":    "Art. 1 del Código Civil",
						"popularity": "412",
						"authority":  "0.9",
						"pub_date":   "1433116800",
					},
				},
				{
					Key:   "lexdex:library:doc:ley-002",
					Score: 0.64,
					Fields: map[string]string{
						"content": "Reglamento de aplicación",
					},
				},
			},
		}, nil
	}

	got, err := repo.SemanticSearch(ctx, Library(), testVector(), filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	c := got[0]
	if c.DocumentID != "ley-001" {
		t.Errorf("expected document id ley-001, got %s", c.DocumentID)
	}
	if c.Source != candidate.GlobalLibrary {
		t.Errorf("expected source %s, got %s", candidate.GlobalLibrary, c.Source)
	}
	if c.SemanticSimilarity != 0.91 {
		t.Errorf("expected similarity 0.91, got %f", c.SemanticSimilarity)
	}
	if c.TextRank != 0 {
		t.Errorf("text rank must stay zero for semantic hits, got %f", c.TextRank)
	}
	if c.Popularity != 412 || c.AuthorityScore != 0.9 {
		t.Errorf("unexpected signals: pop=%f auth=%f", c.Popularity, c.AuthorityScore)
	}
	if c.PublishedAt == nil || !c.PublishedAt.Equal(time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected published date: %v", c.PublishedAt)
	}
	if got[1].PublishedAt != nil {
		t.Errorf("missing pub_date must stay nil, got %v", got[1].PublishedAt)
	}
}

func TestSemanticSearch_CasePartition(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "lexdex:case:case-7:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				{Key: "lexdex:case:case-7:doc:escrito-3", Score: 0.8},
			},
		}, nil
	}

	got, err := repo.SemanticSearch(ctx, Case("case-7"), testVector(), filter.Filters{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].DocumentID != "escrito-3" {
		t.Errorf("expected document id escrito-3, got %s", got[0].DocumentID)
	}
	if got[0].Source != candidate.CaseLocal {
		t.Errorf("expected source %s, got %s", candidate.CaseLocal, got[0].Source)
	}
}

func TestSemanticSearch_EmptyResults(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 0}, nil
	}

	got, err := repo.SemanticSearch(context.Background(), Library(), testVector(), filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestSemanticSearch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	storeErr := errors.New("index missing")

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, storeErr
	}

	_, err := repo.SemanticSearch(context.Background(), Library(), testVector(), filter.Filters{}, 10)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

// --- LexicalSearch ---

func TestLexicalSearch_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchTextFn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.IndexName != "lexdex:library:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if len(q.Terms) != 2 {
			t.Errorf("unexpected terms: %v", q.Terms)
		}
		return &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				{
					Key:   "lexdex:library:doc:coip-44",
					Score: 3.2,
					Fields: map[string]string{
						"content":   "De la tentativa",
						"authority": "0.85",
					},
				},
			},
		}, nil
	}

	got, err := repo.LexicalSearch(ctx, Library(), []string{"tentativa", "delito"}, filter.Filters{}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].TextRank != 3.2 {
		t.Errorf("expected text rank 3.2, got %f", got[0].TextRank)
	}
	if got[0].SemanticSimilarity != 0 {
		t.Errorf("similarity must stay zero for lexical hits, got %f", got[0].SemanticSimilarity)
	}
}

func TestLexicalSearch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	storeErr := errors.New("timeout")

	ms.searchTextFn = func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return nil, storeErr
	}

	_, err := repo.LexicalSearch(context.Background(), Case("c1"), []string{"plazo"}, filter.Filters{}, 10)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSearch_MissingIndexIsEmptyPartition(t *testing.T) {
	repo, ms := newTestRepo(t)
	missing := &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, missing
	}
	ms.searchTextFn = func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return nil, missing
	}

	got, err := repo.SemanticSearch(context.Background(), Case("fresh"), testVector(), filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("missing index must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}

	got, err = repo.LexicalSearch(context.Background(), Case("fresh"), []string{"plazo"}, filter.Filters{}, 10)
	if err != nil {
		t.Fatalf("missing index must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}
}
