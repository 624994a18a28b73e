package dictionary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/search/query"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/entity"
)

var errDuplicateEntity = fmt.Errorf("entity already exists: %w", domain.ErrAlreadyExists)

// indexedEntity is the document shape fed to the bleve index.
type indexedEntity struct {
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms"`
}

// buildSnapshot constructs a complete immutable snapshot, including the
// bleve index and the compiled pattern registry. Never mutates a live one.
func buildSnapshot(entities []entity.Entity) (*snapshot, error) {
	snap := &snapshot{
		byID:   make(map[string]entity.Entity, len(entities)),
		byNorm: make(map[string]string, len(entities)),
		bySyn:  make(map[string]string),
		byType: make(map[entity.Type][]string),
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	vocabSet := make(map[string]struct{})

	for _, e := range entities {
		snap.byID[e.ID()] = e
		snap.byNorm[e.Normalized()] = e.ID()
		for _, syn := range e.Synonyms() {
			snap.bySyn[entity.Normalize(syn)] = e.ID()
		}
		snap.byType[e.Type()] = append(snap.byType[e.Type()], e.ID())
		snap.ordered = append(snap.ordered, e.ID())

		if p := e.Pattern(); p != "" {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("entity %q pattern: %w", e.ID(), err)
			}
			snap.patterns = append(snap.patterns, patternEntry{re: re, id: e.ID()})
		}

		if err := idx.Index(e.ID(), indexedEntity{
			Name:     strings.ToLower(e.Normalized()),
			Synonyms: lowerNormalized(e.Synonyms()),
		}); err != nil {
			return nil, fmt.Errorf("index entity %q: %w", e.ID(), err)
		}

		for _, w := range strings.Fields(strings.ToLower(e.Normalized())) {
			vocabSet[w] = struct{}{}
		}
		for _, syn := range e.Synonyms() {
			for _, w := range strings.Fields(strings.ToLower(entity.Normalize(syn))) {
				vocabSet[w] = struct{}{}
			}
		}
	}

	weightOrder := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool {
			a, b := snap.byID[ids[i]], snap.byID[ids[j]]
			if a.Weight() != b.Weight() {
				return a.Weight() > b.Weight()
			}
			return a.Name() < b.Name()
		})
	}
	weightOrder(snap.ordered)
	for _, ids := range snap.byType {
		weightOrder(ids)
	}

	for w := range vocabSet {
		snap.vocab = append(snap.vocab, w)
	}
	sort.Strings(snap.vocab)

	snap.fuzzy = idx
	return snap, nil
}

// fuzzyCandidateIDs queries the bleve index for approximate matches on the
// name and synonym fields. Per-term fuzziness piggybacks on bleve's
// Levenshtein automata; precise scoring happens in the caller.
func fuzzyCandidateIDs(idx bleve.Index, norm string) []string {
	terms := strings.Fields(strings.ToLower(norm))
	if len(terms) == 0 {
		return nil
	}

	var subqueries []query.Query
	for _, term := range terms {
		for _, field := range []string{"name", "synonyms"} {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(field)
			fq.SetFuzziness(2)
			subqueries = append(subqueries, fq)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(subqueries...), fuzzyCandidates, 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids
}

func lowerNormalized(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(entity.Normalize(s))
	}
	return out
}
