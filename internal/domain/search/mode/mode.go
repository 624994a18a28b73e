package mode

// Sort is the result ordering strategy.
type Sort string

// Sort mode constants.
const (
	// Relevance orders by the fused combined score (default).
	Relevance Sort = "relevance"
	// Date orders by publication date descending; undated documents sort last.
	Date       Sort = "date"
	Popularity Sort = "popularity"
	Authority  Sort = "authority"
)

// IsValid checks if the sort mode is one of the supported values.
func (s Sort) IsValid() bool {
	return s == Relevance || s == Date || s == Popularity || s == Authority
}
