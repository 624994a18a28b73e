package cache

import (
	"fmt"
	"strings"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/entity"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
)

// keyPrefix namespaces every cache key under the engine prefix.
const keyPrefix = domain.KeyPrefix + "cache:"

// Key is the deterministic composition of one search call's inputs.
// It stays human-readable so that pattern invalidation by substring
// (e.g. a document's query terms after a mutation) can match it.
type Key struct {
	composed string
}

// NewKey builds a cache key from the normalized query, canonical filters,
// pagination, and sort mode. Identical logical inputs always compose to the
// same key, across processes.
func NewKey(query, caseID string, f filter.Filters, offset, limit int, sort mode.Sort) Key {
	q := strings.ToLower(entity.Normalize(query))
	q = strings.ReplaceAll(q, " ", "+")

	scope := "library"
	if caseID != "" {
		scope = "case=" + caseID
	}

	composed := fmt.Sprintf("%s|%s|%s|p%d,%d|%s", q, scope, f.Canonical(), offset, limit, sort)
	return Key{composed: composed}
}

// String returns the tierless key body.
func (k Key) String() string { return k.composed }

// tierKey namespaces the key for one tier.
func (k Key) tierKey(t Tier) string {
	return keyPrefix + strings.ToLower(string(t)) + ":" + k.composed
}
