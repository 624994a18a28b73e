package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/iuslabs/lexdex/internal/db"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
)

// Corpus hash field names shared with the ingestion pipeline.
const (
	FieldContent      = "content"
	FieldNormType     = "norm_type"
	FieldJurisdiction = "jurisdiction"
	FieldTopics       = "topics"
	FieldPubDate      = "pub_date"
	FieldEnactDate    = "enact_date"
	FieldReformDate   = "reform_date"
	FieldPopularity   = "popularity"
	FieldAuthority    = "authority"
	fieldVectorScore  = "__vector_score"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Scores are returned as cosine similarity (1 - distance), clamped to [0,1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	filterStr := buildFilter(q.Filters)

	knnPart := fmt.Sprintf("[KNN %d @vector $BLOB]", q.K)
	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, fieldVectorScore)
	}

	args = append(args,
		"SORTBY", fieldVectorScore,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return parseKNNResult(raw)
}

// SearchText runs a BM25 text search via FT.SEARCH.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Terms) == 0 {
		return nil, fmt.Errorf("search terms are required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	filterStr := buildFilter(q.Filters)

	escaped := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if t = strings.TrimSpace(t); t != "" {
			escaped = append(escaped, escapeQuery(t))
		}
	}
	textPart := fmt.Sprintf("@%s:(%s)", FieldContent, strings.Join(escaped, "|"))

	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("%s %s", filterStr, textPart)
	} else {
		queryStr = textPart
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return parseTextResult(raw)
}

// searchErr maps the server's missing-index error to the sentinel so
// callers can tell an unprovisioned partition from a transport failure.
// The message differs across RediSearch versions.
func searchErr(err error) error {
	if re, ok := rueidis.IsRedisErr(err); ok {
		msg := strings.ToLower(re.Error())
		if strings.Contains(msg, "no such index") || strings.Contains(msg, "unknown index name") {
			return &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if scoreStr, ok := entry.Fields[fieldVectorScore]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
			delete(entry.Fields, fieldVectorScore)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseTextResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter compilation ---

// dateField maps the filter date type to the indexed numeric field.
func dateField(t filter.DateType) string {
	switch t {
	case filter.Enactment:
		return FieldEnactDate
	case filter.Reform:
		return FieldReformDate
	default:
		return FieldPubDate
	}
}

// buildFilter translates filter.Filters into an FT.SEARCH pre-filter string.
// Values within one predicate OR together; predicates AND together.
func buildFilter(f filter.Filters) string {
	if f.IsEmpty() {
		return ""
	}

	var parts []string

	if len(f.NormTypes) > 0 {
		vals := make([]string, len(f.NormTypes))
		for i, nt := range f.NormTypes {
			vals[i] = tagEscaper.Replace(string(nt))
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", FieldNormType, strings.Join(vals, "|")))
	}
	if len(f.Jurisdictions) > 0 {
		vals := make([]string, len(f.Jurisdictions))
		for i, j := range f.Jurisdictions {
			vals[i] = tagEscaper.Replace(j)
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", FieldJurisdiction, strings.Join(vals, "|")))
	}
	if len(f.Topics) > 0 {
		vals := make([]string, len(f.Topics))
		for i, t := range f.Topics {
			vals[i] = tagEscaper.Replace(t)
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", FieldTopics, strings.Join(vals, "|")))
	}

	if dr := f.DateRange; dr != nil {
		minBound, maxBound := "-inf", "+inf"
		if dr.From != nil {
			minBound = strconv.FormatInt(dr.From.Unix(), 10)
		}
		if dr.To != nil {
			maxBound = strconv.FormatInt(dr.To.Unix(), 10)
		}
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", dateField(dr.Type), minBound, maxBound))
	}

	if f.MinAuthority != nil {
		parts = append(parts, fmt.Sprintf("@%s:[%g +inf]", FieldAuthority, *f.MinAuthority))
	}
	if f.MinPopularity != nil {
		parts = append(parts, fmt.Sprintf("@%s:[%g +inf]", FieldPopularity, *f.MinPopularity))
	}

	return strings.Join(parts, " ")
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
