package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NormType classifies a legal document. Closed set: filter compilation and
// ranking switch over it exhaustively.
type NormType string

// Norm type constants, ordered by hierarchy.
const (
	Constitution NormType = "constitution"
	Code         NormType = "code"
	Law          NormType = "law"
	Regulation   NormType = "regulation"
	Decree       NormType = "decree"
	Resolution   NormType = "resolution"
	Ordinance    NormType = "ordinance"
	Agreement    NormType = "agreement"
)

// IsValid checks if the norm type is one of the supported values.
func (t NormType) IsValid() bool {
	switch t {
	case Constitution, Code, Law, Regulation, Decree, Resolution, Ordinance, Agreement:
		return true
	}
	return false
}

// DateType tags which document date a range applies to.
type DateType string

// Date type constants.
const (
	Publication DateType = "publication"
	Enactment   DateType = "enactment"
	Reform      DateType = "reform"
)

// IsValid checks if the date type is one of the supported values.
func (t DateType) IsValid() bool {
	return t == Publication || t == Enactment || t == Reform
}

// DateRange bounds documents by one of their dates.
type DateRange struct {
	From *time.Time
	To   *time.Time
	Type DateType
}

// Filters is the structured predicate set of one search call.
// Ephemeral: produced per query, validated independently.
type Filters struct {
	NormTypes     []NormType
	Jurisdictions []string
	Topics        []string
	DateRange     *DateRange
	MinAuthority  *float64
	MinPopularity *float64
}

// IsEmpty reports whether no predicate is set.
func (f Filters) IsEmpty() bool {
	return len(f.NormTypes) == 0 && len(f.Jurisdictions) == 0 && len(f.Topics) == 0 &&
		f.DateRange == nil && f.MinAuthority == nil && f.MinPopularity == nil
}

// ValidationResult reports filter well-formedness with advisory detail.
type ValidationResult struct {
	IsValid     bool
	Errors      []string
	Warnings    []string
	Suggestions []string
}

// Validate checks enumerations, date ranges, and contradictory predicates.
// Usable standalone or as a pre-search gate.
func (f Filters) Validate() ValidationResult {
	res := ValidationResult{IsValid: true}

	for _, nt := range f.NormTypes {
		if !nt.IsValid() {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown norm type %q", string(nt)))
		}
	}
	for _, j := range f.Jurisdictions {
		if strings.TrimSpace(j) == "" {
			res.Errors = append(res.Errors, "empty jurisdiction")
		}
	}
	for _, t := range f.Topics {
		if strings.TrimSpace(t) == "" {
			res.Errors = append(res.Errors, "empty topic")
		}
	}

	if dr := f.DateRange; dr != nil {
		if dr.Type != "" && !dr.Type.IsValid() {
			res.Errors = append(res.Errors, fmt.Sprintf("unknown date type %q", string(dr.Type)))
		}
		if dr.From == nil && dr.To == nil {
			res.Errors = append(res.Errors, "date range has no boundaries")
		}
		if dr.From != nil && dr.To != nil && dr.From.After(*dr.To) {
			res.Errors = append(res.Errors, "date range start is after its end")
			res.Suggestions = append(res.Suggestions, "swap the date range boundaries")
		}
		if dr.To != nil && dr.To.After(time.Now().AddDate(1, 0, 0)) {
			res.Warnings = append(res.Warnings, "date range ends more than a year in the future")
		}
	}

	if f.MinAuthority != nil && (*f.MinAuthority < 0 || *f.MinAuthority > 1) {
		res.Errors = append(res.Errors, "min authority must be within [0,1]")
	}
	if f.MinPopularity != nil && *f.MinPopularity < 0 {
		res.Errors = append(res.Errors, "min popularity must be non-negative")
	}
	if f.MinAuthority != nil && *f.MinAuthority > 0.95 {
		res.Warnings = append(res.Warnings, "min authority above 0.95 matches almost nothing")
		res.Suggestions = append(res.Suggestions, "lower the authority threshold")
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// Canonical serializes the filters deterministically for cache keys.
// Collections are sorted so logically equal filters share one key.
func (f Filters) Canonical() string {
	if f.IsEmpty() {
		return "none"
	}

	var parts []string
	if len(f.NormTypes) > 0 {
		nts := make([]string, len(f.NormTypes))
		for i, nt := range f.NormTypes {
			nts[i] = string(nt)
		}
		sort.Strings(nts)
		parts = append(parts, "nt:"+strings.Join(nts, ","))
	}
	if len(f.Jurisdictions) > 0 {
		js := make([]string, len(f.Jurisdictions))
		for i, j := range f.Jurisdictions {
			js[i] = strings.ToLower(strings.TrimSpace(j))
		}
		sort.Strings(js)
		parts = append(parts, "jur:"+strings.Join(js, ","))
	}
	if len(f.Topics) > 0 {
		ts := make([]string, len(f.Topics))
		for i, t := range f.Topics {
			ts[i] = strings.ToLower(strings.TrimSpace(t))
		}
		sort.Strings(ts)
		parts = append(parts, "top:"+strings.Join(ts, ","))
	}
	if dr := f.DateRange; dr != nil {
		from, to := "*", "*"
		if dr.From != nil {
			from = dr.From.UTC().Format("2006-01-02")
		}
		if dr.To != nil {
			to = dr.To.UTC().Format("2006-01-02")
		}
		dt := dr.Type
		if dt == "" {
			dt = Publication
		}
		parts = append(parts, fmt.Sprintf("dr:%s:%s..%s", dt, from, to))
	}
	if f.MinAuthority != nil {
		parts = append(parts, fmt.Sprintf("mina:%.3f", *f.MinAuthority))
	}
	if f.MinPopularity != nil {
		parts = append(parts, fmt.Sprintf("minp:%.3f", *f.MinPopularity))
	}
	return strings.Join(parts, "|")
}
