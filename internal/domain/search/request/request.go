package request

import (
	"fmt"
	"strings"

	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
)

// MaxQueryLength bounds the raw query text.
const MaxQueryLength = 1024

// Request is a validated search call.
type Request struct {
	query     string
	caseID    string
	filters   filter.Filters
	offset    int
	limit     int
	sort      mode.Sort
	sessionID string
	userID    string
}

// New validates and creates a search request. An empty sort defaults to
// relevance; limit must be positive.
func New(
	query, caseID string, filters filter.Filters,
	offset, limit int, sort mode.Sort, sessionID, userID string,
) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query exceeds %d characters", MaxQueryLength)
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must be non-negative")
	}
	if limit <= 0 {
		return Request{}, fmt.Errorf("limit must be positive")
	}
	if sort == "" {
		sort = mode.Relevance
	}
	if !sort.IsValid() {
		return Request{}, fmt.Errorf("unsupported sort mode %q", string(sort))
	}
	if v := filters.Validate(); !v.IsValid {
		return Request{}, fmt.Errorf("invalid filters: %s", strings.Join(v.Errors, "; "))
	}
	return Request{
		query: query, caseID: caseID, filters: filters,
		offset: offset, limit: limit, sort: sort,
		sessionID: sessionID, userID: userID,
	}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// CaseID returns the case partition id ("" = library only).
func (r *Request) CaseID() string { return r.caseID }

// Filters returns the structured predicates.
func (r *Request) Filters() filter.Filters { return r.filters }

// Offset returns the pagination offset.
func (r *Request) Offset() int { return r.offset }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Sort returns the sort mode.
func (r *Request) Sort() mode.Sort { return r.sort }

// SessionID returns the optional session correlation id.
func (r *Request) SessionID() string { return r.sessionID }

// UserID returns the optional user id for analytics.
func (r *Request) UserID() string { return r.userID }
