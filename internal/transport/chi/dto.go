package chi

import (
	"fmt"
	"time"

	"github.com/iuslabs/lexdex/internal/domain/entity"
	"github.com/iuslabs/lexdex/internal/domain/search/candidate"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/result"
)

// searchRequestDTO is the POST /search body.
type searchRequestDTO struct {
	Query     string      `json:"query"`
	CaseID    string      `json:"case_id,omitempty"`
	Filters   *filtersDTO `json:"filters,omitempty"`
	Offset    int         `json:"offset,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	Sort      string      `json:"sort,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
}

type filtersDTO struct {
	NormTypes     []string      `json:"norm_types,omitempty"`
	Jurisdictions []string      `json:"jurisdictions,omitempty"`
	Topics        []string      `json:"topics,omitempty"`
	DateRange     *dateRangeDTO `json:"date_range,omitempty"`
	MinAuthority  *float64      `json:"min_authority,omitempty"`
	MinPopularity *float64      `json:"min_popularity,omitempty"`
}

type dateRangeDTO struct {
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
	Type string  `json:"type,omitempty"`
}

func filtersFromDTO(dto *filtersDTO) (filter.Filters, error) {
	if dto == nil {
		return filter.Filters{}, nil
	}

	f := filter.Filters{
		Jurisdictions: dto.Jurisdictions,
		Topics:        dto.Topics,
		MinAuthority:  dto.MinAuthority,
		MinPopularity: dto.MinPopularity,
	}
	for _, nt := range dto.NormTypes {
		f.NormTypes = append(f.NormTypes, filter.NormType(nt))
	}

	if dto.DateRange != nil {
		dr := &filter.DateRange{Type: filter.DateType(dto.DateRange.Type)}
		var err error
		if dr.From, err = parseDate(dto.DateRange.From); err != nil {
			return filter.Filters{}, fmt.Errorf("date_range.from: %w", err)
		}
		if dr.To, err = parseDate(dto.DateRange.To); err != nil {
			return filter.Filters{}, fmt.Errorf("date_range.to: %w", err)
		}
		f.DateRange = dr
	}
	return f, nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	return &t, nil
}

// searchResponseDTO is the POST /search reply.
type searchResponseDTO struct {
	Documents  []documentDTO `json:"documents"`
	TotalCount int           `json:"total_count"`
	Timings    timingsDTO    `json:"timings"`
	Debug      debugDTO      `json:"debug"`
}

type documentDTO struct {
	DocumentID         string   `json:"document_id"`
	Source             string   `json:"source"`
	Content            string   `json:"content,omitempty"`
	SemanticSimilarity float64  `json:"semantic_similarity"`
	TextRank           float64  `json:"text_rank"`
	Popularity         float64  `json:"popularity"`
	AuthorityScore     float64  `json:"authority_score"`
	PublishedAt        *string  `json:"published_at,omitempty"`
	CombinedScore      float64  `json:"combined_score"`
}

type timingsDTO struct {
	UnderstandingMs float64 `json:"understanding_ms"`
	CacheProbeMs    float64 `json:"cache_probe_ms"`
	RetrievalMs     float64 `json:"retrieval_ms"`
	RankingMs       float64 `json:"ranking_ms"`
	TotalMs         float64 `json:"total_ms"`
}

type debugDTO struct {
	CorrectedQuery string   `json:"corrected_query"`
	ExpandedTerms  []string `json:"expanded_terms,omitempty"`
	Entities       []string `json:"entities,omitempty"`
	Confidence     float64  `json:"confidence"`
	LowConfidence  bool     `json:"low_confidence"`
	CacheTier      string   `json:"cache_tier"`
	Degraded       []string `json:"degraded,omitempty"`
}

func searchResponseToDTO(resp *result.Response) searchResponseDTO {
	docs := make([]documentDTO, len(resp.Documents))
	for i := range resp.Documents {
		docs[i] = documentToDTO(&resp.Documents[i])
	}
	return searchResponseDTO{
		Documents:  docs,
		TotalCount: resp.TotalCount,
		Timings: timingsDTO{
			UnderstandingMs: durationMs(resp.Timings.Understanding),
			CacheProbeMs:    durationMs(resp.Timings.CacheProbe),
			RetrievalMs:     durationMs(resp.Timings.Retrieval),
			RankingMs:       durationMs(resp.Timings.Ranking),
			TotalMs:         durationMs(resp.Timings.Total),
		},
		Debug: debugDTO{
			CorrectedQuery: resp.Debug.CorrectedQuery,
			ExpandedTerms:  resp.Debug.ExpandedTerms,
			Entities:       resp.Debug.Entities,
			Confidence:     resp.Debug.Confidence,
			LowConfidence:  resp.Debug.LowConfidence,
			CacheTier:      resp.Debug.CacheTier,
			Degraded:       resp.Debug.Degraded,
		},
	}
}

func documentToDTO(c *candidate.Candidate) documentDTO {
	dto := documentDTO{
		DocumentID:         c.DocumentID,
		Source:             string(c.Source),
		Content:            c.Content,
		SemanticSimilarity: c.SemanticSimilarity,
		TextRank:           c.TextRank,
		Popularity:         c.Popularity,
		AuthorityScore:     c.AuthorityScore,
		CombinedScore:      c.CombinedScore,
	}
	if c.PublishedAt != nil {
		s := c.PublishedAt.UTC().Format("2006-01-02")
		dto.PublishedAt = &s
	}
	return dto
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// validateFiltersResponseDTO is the filter validation reply.
type validateFiltersResponseDTO struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// clickRequestDTO is the POST /clicks body.
type clickRequestDTO struct {
	SearchInteractionID string  `json:"search_interaction_id"`
	DocumentID          string  `json:"document_id"`
	Position            int     `json:"position"`
	RelevanceScore      float64 `json:"relevance_score"`
}

// dwellRequestDTO is the PATCH /clicks/{clickId}/dwell body.
type dwellRequestDTO struct {
	DwellTimeMs int64 `json:"dwell_time_ms"`
}

// feedbackRequestDTO is the POST /feedback body.
type feedbackRequestDTO struct {
	SearchInteractionID string `json:"search_interaction_id"`
	DocumentID          string `json:"document_id"`
	Rating              int    `json:"rating"`
	IsRelevant          *bool  `json:"is_relevant,omitempty"`
	Comment             string `json:"comment,omitempty"`
}

// abTestRequestDTO is the POST /ab-tests body.
type abTestRequestDTO struct {
	Name         string             `json:"name"`
	Variants     []string           `json:"variants"`
	TrafficSplit map[string]float64 `json:"traffic_split"`
	StartsAt     time.Time          `json:"starts_at"`
	EndsAt       time.Time          `json:"ends_at"`
}

// assignmentRequestDTO is the POST /ab-tests/{testId}/assignments body.
type assignmentRequestDTO struct {
	UserID string `json:"user_id"`
}

// entityRequestDTO is the POST /entities body.
type entityRequestDTO struct {
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	Synonyms       []string `json:"synonyms,omitempty"`
	Pattern        string   `json:"pattern,omitempty"`
	Weight         int      `json:"weight"`
	HierarchyLevel int      `json:"hierarchy_level,omitempty"`
	Status         string   `json:"status,omitempty"`
	Abbreviations  []string `json:"abbreviations,omitempty"`
}

type entityDTO struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
	Weight   int      `json:"weight"`
}

func entityToDTO(e entity.Entity) entityDTO {
	return entityDTO{
		ID:       e.ID(),
		Type:     string(e.Type()),
		Name:     e.Name(),
		Synonyms: e.Synonyms(),
		Pattern:  e.Pattern(),
		Weight:   e.Weight(),
	}
}
