package result

import (
	"time"

	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
)

// Timings is the per-stage breakdown of one search call.
type Timings struct {
	Understanding time.Duration
	CacheProbe    time.Duration
	Retrieval     time.Duration
	Ranking       time.Duration
	Total         time.Duration
}

// DebugInfo exposes what query understanding did to the raw query.
type DebugInfo struct {
	CorrectedQuery string
	ExpandedTerms  []string
	Entities       []string
	Confidence     float64
	LowConfidence  bool
	CacheTier      string
	Degraded       []string
}

// Response is the assembled outcome of one search call.
// Documents holds the requested page; TotalCount the pre-pagination size.
type Response struct {
	Documents  []candidate.Candidate
	TotalCount int
	Timings    Timings
	Debug      DebugInfo
}
