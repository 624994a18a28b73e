package db

import "github.com/iuslabs/lexdex/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search over one corpus partition.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Filters
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search over one corpus partition.
type TextQuery struct {
	IndexName    string
	Terms        []string
	Filters      filter.Filters
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single chunk hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
