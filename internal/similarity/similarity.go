// Package similarity implements the string-similarity functions used to
// re-rank a query's top candidates against their NameEntry text
// (spec.md §4.7). Both functions are built on github.com/hbollon/go-edlib
// rather than a hand-rolled edit-distance implementation.
package similarity

import (
	"github.com/hbollon/go-edlib"
)

// Kind selects which similarity function re-ranking applies.
type Kind int

const (
	None Kind = iota
	Levenshtein
	Jaccard
)

// ParseKind maps a config/query string to a Kind, defaulting to None for
// anything unrecognized.
func ParseKind(s string) Kind {
	switch s {
	case "levenshtein":
		return Levenshtein
	case "jaccard":
		return Jaccard
	default:
		return None
	}
}

// Score computes the similarity of a and b under kind, in [0, 1]. None
// always returns 1, so a convex combination with relevance collapses to
// pure relevance ranking (spec.md §4.7) when the caller opts out.
func Score(kind Kind, a, b string) float64 {
	if a == b {
		return 1
	}
	switch kind {
	case Levenshtein:
		sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
		if err != nil {
			return 0
		}
		return float64(sim)
	case Jaccard:
		sim, err := edlib.StringsSimilarity(a, b, edlib.Jaccard)
		if err != nil {
			return 0
		}
		return float64(sim)
	default:
		return 1
	}
}

// Blend computes the convex combination `α · relevance + (1 − α) ·
// similarity` spec.md §4.7 defines as the final re-ranked score.
func Blend(relevance, similarity, alpha float64) float64 {
	return alpha*relevance + (1-alpha)*similarity
}
