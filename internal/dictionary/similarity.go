package dictionary

// Similarity scores how close two strings are, in [0,1].
// The dictionary treats the algorithm as a pluggable strategy; matching
// behavior is part of the contract, the metric itself is not.
type Similarity interface {
	Score(a, b string) float64
}

// EditDistance is the default Similarity: normalized Damerau-Levenshtein.
type EditDistance struct{}

// Score returns 1 - distance/maxLen, clamped to [0,1].
func (EditDistance) Score(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	d := damerauLevenshtein(a, b)
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	s := 1 - float64(d)/float64(maxLen)
	if s < 0 {
		return 0
	}
	return s
}

// damerauLevenshtein computes the edit distance with adjacent transpositions,
// over bytes (inputs are normalized ASCII by the time they get here).
func damerauLevenshtein(a, b string) int {
	la, lb := len(a), len(b)

	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)

	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := prev2[j-2] + 1; t < curr[j] {
					curr[j] = t
				}
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}

	return prev[lb]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
