package dictionary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve"
	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/domain/entity"
)

// Match score constants, in cascade priority order.
const (
	ScoreExact     = 100.0
	ScoreSynonym   = 95.0
	ScorePrefix    = 80.0
	ScoreSubstring = 60.0
	// Fuzzy matches score similarity × ScoreFuzzyScale, so they always rank
	// below any direct match.
	ScoreFuzzyScale = 50.0
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy match.
const DefaultFuzzyThreshold = 0.75

// fuzzyCandidates bounds how many index hits feed the similarity rescoring.
const fuzzyCandidates = 25

// MatchKind tags which cascade step produced a match.
type MatchKind string

// Match kinds.
const (
	MatchExact     MatchKind = "exact"
	MatchSynonym   MatchKind = "synonym"
	MatchPrefix    MatchKind = "prefix"
	MatchSubstring MatchKind = "substring"
	MatchFuzzy     MatchKind = "fuzzy"
)

// Match is one dictionary hit.
type Match struct {
	Entity entity.Entity
	Score  float64
	Kind   MatchKind
}

// FindOptions narrow a single-best-match lookup.
type FindOptions struct {
	Type          entity.Type // "" = any
	FuzzyThreshold float64    // 0 = DefaultFuzzyThreshold
}

// SearchOptions control multi-match search.
type SearchOptions struct {
	Fuzzy          bool
	FuzzyThreshold float64 // 0 = DefaultFuzzyThreshold
	MaxResults     int     // 0 = 10
	EntityType     entity.Type
	CaseSensitive  bool
}

// snapshot is an immutable view of the catalog. AddEntity builds a full
// replacement and swaps the pointer, so readers never observe a partially
// rebuilt index.
type snapshot struct {
	byID     map[string]entity.Entity
	byNorm   map[string]string // normalized name → id
	bySyn    map[string]string // normalized synonym → id
	byType   map[entity.Type][]string
	ordered  []string // ids sorted by weight desc, name asc
	patterns []patternEntry
	fuzzy    bleve.Index
	vocab    []string
}

type patternEntry struct {
	re *regexp.Regexp
	id string
}

// Dictionary is the catalog of canonical legal entities with pattern and
// fuzzy matching. Self-initializes lazily and idempotently on first use;
// safe for concurrent readers.
type Dictionary struct {
	sim    Similarity
	logger *zap.Logger

	initOnce sync.Once
	initErr  error
	writeMu  sync.Mutex // serializes AddEntity rebuilds
	snap     atomic.Pointer[snapshot]
}

// New creates a dictionary with the given similarity strategy.
// A nil strategy falls back to normalized edit distance.
func New(sim Similarity, logger *zap.Logger) *Dictionary {
	if sim == nil {
		sim = EditDistance{}
	}
	return &Dictionary{sim: sim, logger: logger}
}

// ensure seeds the catalog on first use. Concurrent first callers block on
// the same build; later callers pay an atomic load.
func (d *Dictionary) ensure() (*snapshot, error) {
	d.initOnce.Do(func() {
		entities, err := seedEntities()
		if err != nil {
			d.initErr = fmt.Errorf("seed dictionary: %w", err)
			return
		}
		snap, err := buildSnapshot(entities)
		if err != nil {
			d.initErr = fmt.Errorf("build dictionary index: %w", err)
			return
		}
		d.snap.Store(snap)
		d.logger.Info("Entity dictionary initialized", zap.Int("entities", len(entities)))
	})
	if d.initErr != nil {
		return nil, d.initErr
	}
	return d.snap.Load(), nil
}

// FindEntity returns the single best match for text, or nil.
// Priority: exact > synonym > prefix > substring > fuzzy. Lookup failures
// are nil, never errors.
func (d *Dictionary) FindEntity(text string, opts FindOptions) *Match {
	snap, err := d.ensure()
	if err != nil {
		d.logger.Error("Dictionary unavailable", zap.Error(err))
		return nil
	}

	norm := entity.Normalize(text)
	if norm == "" {
		return nil
	}

	typeOK := func(id string) bool {
		return opts.Type == "" || snap.byID[id].Type() == opts.Type
	}

	if id, ok := snap.byNorm[norm]; ok && typeOK(id) {
		return &Match{Entity: snap.byID[id], Score: ScoreExact, Kind: MatchExact}
	}
	if id, ok := snap.bySyn[norm]; ok && typeOK(id) {
		return &Match{Entity: snap.byID[id], Score: ScoreSynonym, Kind: MatchSynonym}
	}

	// Prefix and substring walk weight order so ties break on priority.
	for _, id := range snap.ordered {
		if typeOK(id) && strings.HasPrefix(snap.byID[id].Normalized(), norm) {
			return &Match{Entity: snap.byID[id], Score: ScorePrefix, Kind: MatchPrefix}
		}
	}
	for _, id := range snap.ordered {
		if typeOK(id) && strings.Contains(snap.byID[id].Normalized(), norm) {
			return &Match{Entity: snap.byID[id], Score: ScoreSubstring, Kind: MatchSubstring}
		}
	}

	threshold := opts.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	best := d.bestFuzzy(snap, norm, threshold, opts.Type)
	if best == nil {
		return nil
	}
	return best
}

// FindByPattern returns the entities whose registered pattern matches text,
// sorted by weight descending.
func (d *Dictionary) FindByPattern(text string) []entity.Entity {
	snap, err := d.ensure()
	if err != nil {
		d.logger.Error("Dictionary unavailable", zap.Error(err))
		return nil
	}

	var out []entity.Entity
	for _, p := range snap.patterns {
		if p.re.MatchString(text) {
			out = append(out, snap.byID[p.id])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight() != out[j].Weight() {
			return out[i].Weight() > out[j].Weight()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// SearchEntities returns deduplicated matches sorted by score descending,
// capped at MaxResults. Direct matches (exact/prefix/substring) are computed
// first; fuzzy results only fill whatever budget remains.
func (d *Dictionary) SearchEntities(query string, opts SearchOptions) []Match {
	snap, err := d.ensure()
	if err != nil {
		d.logger.Error("Dictionary unavailable", zap.Error(err))
		return nil
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	norm := entity.Normalize(query)
	if norm == "" {
		return nil
	}

	matched := make(map[string]Match)
	add := func(id string, score float64, kind MatchKind) {
		if opts.EntityType != "" && snap.byID[id].Type() != opts.EntityType {
			return
		}
		if existing, ok := matched[id]; ok && existing.Score >= score {
			return
		}
		matched[id] = Match{Entity: snap.byID[id], Score: score, Kind: kind}
	}

	for _, id := range snap.ordered {
		e := snap.byID[id]
		name, q := e.Normalized(), norm
		if opts.CaseSensitive {
			name, q = e.Name(), strings.TrimSpace(query)
		}
		switch {
		case name == q:
			add(id, ScoreExact, MatchExact)
		case strings.HasPrefix(name, q):
			add(id, ScorePrefix, MatchPrefix)
		case strings.Contains(name, q):
			add(id, ScoreSubstring, MatchSubstring)
		}
	}
	for syn, id := range snap.bySyn {
		if syn == norm {
			add(id, ScoreSynonym, MatchSynonym)
		}
	}

	// Fuzzy fills the remaining budget only.
	if opts.Fuzzy && len(matched) < maxResults {
		threshold := opts.FuzzyThreshold
		if threshold <= 0 {
			threshold = DefaultFuzzyThreshold
		}
		for _, fm := range d.fuzzyMatches(snap, norm, threshold, opts.EntityType) {
			if _, ok := matched[fm.Entity.ID()]; ok {
				continue
			}
			matched[fm.Entity.ID()] = fm
			if len(matched) >= maxResults {
				break
			}
		}
	}

	out := make([]Match, 0, len(matched))
	for _, m := range matched {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Entity.Weight() != out[j].Entity.Weight() {
			return out[i].Entity.Weight() > out[j].Entity.Weight()
		}
		return out[i].Entity.ID() < out[j].Entity.ID()
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// AddEntity inserts an entity and atomically rebuilds the fuzzy index and
// pattern registry. Readers keep serving the previous snapshot until the
// replacement is fully built.
func (d *Dictionary) AddEntity(e entity.Entity) error {
	snap, err := d.ensure()
	if err != nil {
		return err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	// Re-load under the write lock: another writer may have swapped.
	snap = d.snap.Load()
	if _, ok := snap.byID[e.ID()]; ok {
		return fmt.Errorf("entity %q: %w", e.ID(), errDuplicateEntity)
	}

	entities := make([]entity.Entity, 0, len(snap.byID)+1)
	for _, id := range snap.ordered {
		entities = append(entities, snap.byID[id])
	}
	entities = append(entities, e)

	next, err := buildSnapshot(entities)
	if err != nil {
		return fmt.Errorf("rebuild dictionary index: %w", err)
	}
	d.snap.Store(next)

	d.logger.Info("Entity added to dictionary",
		zap.String("id", e.ID()), zap.String("type", string(e.Type())))
	return nil
}

// GetEntityByID returns the entity or nil.
func (d *Dictionary) GetEntityByID(id string) *entity.Entity {
	snap, err := d.ensure()
	if err != nil {
		return nil
	}
	if e, ok := snap.byID[id]; ok {
		return &e
	}
	return nil
}

// AllEntities returns the full catalog, ordered by id.
func (d *Dictionary) AllEntities() []entity.Entity {
	snap, err := d.ensure()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(snap.byID))
	for id := range snap.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, snap.byID[id])
	}
	return out
}

// GetEntitiesByType returns all entities of a type, weight descending.
func (d *Dictionary) GetEntitiesByType(t entity.Type) []entity.Entity {
	snap, err := d.ensure()
	if err != nil {
		return nil
	}
	ids := snap.byType[t]
	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, snap.byID[id])
	}
	return out
}

// Suggest returns up to limit canonical names with the given prefix,
// highest weight first. Backs the public suggestion endpoint.
func (d *Dictionary) Suggest(prefix string, limit int) []string {
	snap, err := d.ensure()
	if err != nil {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	norm := entity.Normalize(prefix)
	if norm == "" {
		return nil
	}

	var out []string
	for _, id := range snap.ordered {
		e := snap.byID[id]
		if strings.HasPrefix(e.Normalized(), norm) {
			out = append(out, e.Name())
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Vocabulary returns every normalized word known to the catalog. The query
// understanding service uses it as the spell-check reference.
func (d *Dictionary) Vocabulary() []string {
	snap, err := d.ensure()
	if err != nil {
		return nil
	}
	return snap.vocab
}

func (d *Dictionary) bestFuzzy(snap *snapshot, norm string, threshold float64, t entity.Type) *Match {
	matches := d.fuzzyMatches(snap, norm, threshold, t)
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	return &best
}

// fuzzyMatches queries the bleve index for candidates, rescored with the
// similarity strategy and sorted by score descending.
func (d *Dictionary) fuzzyMatches(snap *snapshot, norm string, threshold float64, t entity.Type) []Match {
	ids := fuzzyCandidateIDs(snap.fuzzy, norm)

	var out []Match
	for _, id := range ids {
		e, ok := snap.byID[id]
		if !ok || (t != "" && e.Type() != t) {
			continue
		}
		sim := d.sim.Score(norm, e.Normalized())
		for _, syn := range e.Synonyms() {
			if s := d.sim.Score(norm, entity.Normalize(syn)); s > sim {
				sim = s
			}
		}
		if sim >= threshold {
			out = append(out, Match{Entity: e, Score: sim * ScoreFuzzyScale, Kind: MatchFuzzy})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entity.Weight() > out[j].Entity.Weight()
	})
	return out
}
