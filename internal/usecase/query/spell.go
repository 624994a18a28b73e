package query

import (
	"strings"

	"github.com/iuslabs/lexdex/internal/dictionary"
)

// spellThreshold is the minimum similarity for accepting a vocabulary
// correction. Below it a token is left as typed.
const spellThreshold = 0.8

// minCorrectableLen skips short tokens: articles and prepositions correct
// into random vocabulary words otherwise.
const minCorrectableLen = 4

// spellCheck replaces out-of-vocabulary tokens with their closest
// vocabulary word. Returns the corrected text and how many tokens changed.
func spellCheck(tokens []string, vocab []string, sim dictionary.Similarity) ([]string, int) {
	if len(vocab) == 0 {
		return tokens, 0
	}

	known := make(map[string]struct{}, len(vocab))
	for _, w := range vocab {
		known[w] = struct{}{}
	}

	out := make([]string, len(tokens))
	corrected := 0
	for i, tok := range tokens {
		out[i] = tok
		if len(tok) < minCorrectableLen {
			continue
		}
		if _, ok := known[tok]; ok {
			continue
		}
		if best, score := closestWord(tok, vocab, sim); score >= spellThreshold {
			out[i] = best
			corrected++
		}
	}
	return out, corrected
}

func closestWord(tok string, vocab []string, sim dictionary.Similarity) (string, float64) {
	best, bestScore := "", 0.0
	for _, w := range vocab {
		// Length gates keep the scan cheap: a similarity above the
		// threshold is impossible past this gap.
		if d := len(w) - len(tok); d > 2 || d < -2 {
			continue
		}
		if s := sim.Score(tok, w); s > bestScore {
			best, bestScore = w, s
		}
	}
	return best, bestScore
}

// tokenize lowercases, strips accents, and splits on whitespace.
func tokenize(s string) []string {
	return strings.Fields(normalizeLower(s))
}
