package entity

import (
	"strings"
)

// Type classifies a catalog entity. Closed set: filter synthesis and scoring
// switch over it exhaustively.
type Type string

// Entity type constants.
const (
	Law          Type = "law"
	Code         Type = "code"
	Constitution Type = "constitution"
	Regulation   Type = "regulation"
	Jurisdiction Type = "jurisdiction"
	Ministry     Type = "ministry"
	Agency       Type = "agency"
	Court        Type = "court"
	Concept      Type = "concept"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case Law, Code, Constitution, Regulation, Jurisdiction, Ministry, Agency, Court, Concept:
		return true
	}
	return false
}

// Metadata carries auxiliary catalog attributes.
type Metadata struct {
	HierarchyLevel int
	Status         string
	Abbreviations  []string
}

// Entity is a canonical legal entity in the dictionary catalog.
// ID is a deterministic slug of the canonical name and re-derivable from it.
type Entity struct {
	id         string
	entityType Type
	name       string
	normalized string
	synonyms   []string
	pattern    string
	weight     int
	meta       Metadata
}

// New creates an entity, deriving its id and normalized name from name.
func New(entityType Type, name string, synonyms []string, pattern string, weight int, meta Metadata) (Entity, error) {
	if name == "" {
		return Entity{}, errEmptyName
	}
	if !entityType.IsValid() {
		return Entity{}, &InvalidTypeError{Type: entityType}
	}
	return Entity{
		id:         SlugID(name),
		entityType: entityType,
		name:       name,
		normalized: Normalize(name),
		synonyms:   synonyms,
		pattern:    pattern,
		weight:     weight,
		meta:       meta,
	}, nil
}

// ID returns the deterministic slug identifier.
func (e Entity) ID() string { return e.id }

// Type returns the entity type.
func (e Entity) Type() Type { return e.entityType }

// Name returns the canonical name.
func (e Entity) Name() string { return e.name }

// Normalized returns the uppercase accent-stripped name.
func (e Entity) Normalized() string { return e.normalized }

// Synonyms returns the synonym list.
func (e Entity) Synonyms() []string { return e.synonyms }

// Pattern returns the registered match pattern (may be empty).
func (e Entity) Pattern() string { return e.pattern }

// Weight returns the tie-break priority.
func (e Entity) Weight() int { return e.weight }

// Meta returns the auxiliary metadata.
func (e Entity) Meta() Metadata { return e.meta }

// accentReplacer strips the Spanish diacritics that appear in the corpus.
// Normalization must be idempotent: output characters are never inputs.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U",
	"ñ", "n", "Ñ", "N",
)

// Normalize uppercases, strips accents, and collapses whitespace.
func Normalize(s string) string {
	s = accentReplacer.Replace(strings.TrimSpace(s))
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// SlugID derives the stable entity id from a canonical name.
func SlugID(name string) string {
	norm := strings.ToLower(Normalize(name))
	return strings.ReplaceAll(norm, " ", "-")
}
