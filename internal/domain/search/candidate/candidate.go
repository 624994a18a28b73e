package candidate

import "time"

// Source marks which corpus a candidate came from.
type Source string

// Provenance constants.
const (
	// CaseLocal marks chunks from the user's case documents.
	CaseLocal Source = "case-local"
	// GlobalLibrary marks chunks from the shared reference corpus.
	GlobalLibrary Source = "global-library"
	// MultiSource marks chunks retrieved by both the semantic and the
	// lexical source in one call.
	MultiSource Source = "multi-source"
)

// Candidate is a retrieved chunk with its relevance signals. The ranking
// engine fills CombinedScore; everything else is set at retrieval time.
// Exists only within one search call.
type Candidate struct {
	DocumentID         string
	Source             Source
	Content            string
	SemanticSimilarity float64
	TextRank           float64
	Popularity         float64
	AuthorityScore     float64
	PublishedAt        *time.Time
	CombinedScore      float64
}
