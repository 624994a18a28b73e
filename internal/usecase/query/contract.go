package query

import (
	"github.com/iuslabs/lexdex/internal/dictionary"
	"github.com/iuslabs/lexdex/internal/domain/entity"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// Dictionary is the entity catalog contract for query understanding.
type Dictionary interface {
	FindEntity(text string, opts dictionary.FindOptions) *dictionary.Match
	FindByPattern(text string) []entity.Entity
	Suggest(prefix string, limit int) []string
	Vocabulary() []string
}

// Result is the outcome of the understanding pipeline. The pipeline never
// hard-fails on a strange query: a low-confidence result still carries the
// best-effort transformation.
type Result struct {
	CorrectedText         string
	ExpandedTerms         []string
	Filters               filter.Filters
	Entities              []dictionary.Match
	Confidence            float64
	LowConfidence         bool
	RefinementSuggestions []string
}
