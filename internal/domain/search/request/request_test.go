package request

import (
	"strings"
	"testing"

	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
)

func TestNew_DefaultsSortToRelevance(t *testing.T) {
	r, err := New("derecho laboral", "", filter.Filters{}, 0, 10, "", "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Sort() != mode.Relevance {
		t.Fatalf("expected relevance, got %s", r.Sort())
	}
}

func TestNew_Invalid(t *testing.T) {
	cases := []struct {
		name          string
		query         string
		offset, limit int
		sort          mode.Sort
	}{
		{"empty query", "  ", 0, 10, mode.Relevance},
		{"long query", strings.Repeat("a", MaxQueryLength+1), 0, 10, mode.Relevance},
		{"negative offset", "q", -1, 10, mode.Relevance},
		{"zero limit", "q", 0, 0, mode.Relevance},
		{"bad sort", "q", 0, 10, mode.Sort("random")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.query, "", filter.Filters{}, tc.offset, tc.limit, tc.sort, "", ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_RejectsInvalidFilters(t *testing.T) {
	f := filter.Filters{NormTypes: []filter.NormType{"treaty"}}
	if _, err := New("q", "", f, 0, 10, mode.Relevance, "", ""); err == nil {
		t.Fatal("expected error")
	}
}
