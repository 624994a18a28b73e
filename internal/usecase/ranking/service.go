package ranking

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/config"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
)

// Service fuses relevance signals and orders candidates per sort mode.
// Pure CPU work: no I/O, no context.
type Service struct {
	cfg    config.RankingConfig
	logger *zap.Logger
}

// New creates a ranking service.
func New(cfg config.RankingConfig, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Rank orders candidates by the requested sort mode and reports processing
// time. Relevance mode writes CombinedScore on every candidate; the other
// modes sort on a single raw signal. The input slice is not mutated.
func (s *Service) Rank(cands []candidate.Candidate, sortMode mode.Sort) ([]candidate.Candidate, time.Duration) {
	start := time.Now()

	out := make([]candidate.Candidate, len(cands))
	copy(out, cands)

	switch sortMode {
	case mode.Date:
		sortByDate(out)
	case mode.Popularity:
		sortBySignal(out, func(c candidate.Candidate) float64 { return c.Popularity })
	case mode.Authority:
		sortBySignal(out, func(c candidate.Candidate) float64 { return c.AuthorityScore })
	default:
		s.rankByRelevance(out)
	}

	return out, time.Since(start)
}

// rankByRelevance computes the fused score and sorts descending, document
// id ascending on ties for reproducibility.
func (s *Service) rankByRelevance(cands []candidate.Candidate) {
	maxText, maxPop := 0.0, 0.0
	for _, c := range cands {
		if c.TextRank > maxText {
			maxText = c.TextRank
		}
		if c.Popularity > maxPop {
			maxPop = c.Popularity
		}
	}

	now := time.Now()
	for i := range cands {
		cands[i].CombinedScore = s.combinedScore(cands[i], maxText, maxPop, now)
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].CombinedScore != cands[j].CombinedScore {
			return cands[i].CombinedScore > cands[j].CombinedScore
		}
		return cands[i].DocumentID < cands[j].DocumentID
	})
}

// combinedScore is the deterministic weighted fusion. Every term is
// normalized into [0,1] before weighting: text rank and popularity against
// the batch maximum (popularity log-scaled to tame heavy tails), recency by
// exponential half-life decay.
func (s *Service) combinedScore(c candidate.Candidate, maxText, maxPop float64, now time.Time) float64 {
	textNorm := 0.0
	if maxText > 0 {
		textNorm = c.TextRank / maxText
	}

	popNorm := 0.0
	if maxPop > 0 {
		popNorm = math.Log1p(c.Popularity) / math.Log1p(maxPop)
	}

	return s.cfg.SemanticWeight*c.SemanticSimilarity +
		s.cfg.TextRankWeight*textNorm +
		s.cfg.PopularityWeight*popNorm +
		s.cfg.AuthorityWeight*c.AuthorityScore +
		s.cfg.RecencyWeight*s.recency(c.PublishedAt, now)
}

// recency decays by half per configured period. Undated candidates score
// zero; they are never boosted into dated company.
func (s *Service) recency(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return 0
	}
	halfLife := float64(s.cfg.RecencyHalfLife)
	if halfLife <= 0 {
		halfLife = 10
	}
	ageYears := now.Sub(*publishedAt).Hours() / (24 * 365.25)
	if ageYears < 0 {
		ageYears = 0
	}
	return math.Pow(0.5, ageYears/halfLife)
}

// sortByDate orders by publication date descending. Candidates without a
// date sort after every dated one regardless of any other signal.
func sortByDate(cands []candidate.Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		di, dj := cands[i].PublishedAt, cands[j].PublishedAt
		switch {
		case di == nil && dj == nil:
			return cands[i].DocumentID < cands[j].DocumentID
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.After(*dj)
		default:
			return cands[i].DocumentID < cands[j].DocumentID
		}
	})
}

func sortBySignal(cands []candidate.Candidate, signal func(candidate.Candidate) float64) {
	sort.Slice(cands, func(i, j int) bool {
		si, sj := signal(cands[i]), signal(cands[j])
		if si != sj {
			return si > sj
		}
		return cands[i].DocumentID < cands[j].DocumentID
	})
}
