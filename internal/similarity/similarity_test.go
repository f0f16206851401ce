package similarity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreIdenticalStringsIsOne(t *testing.T) {
	require.InDelta(t, 1.0, Score(Levenshtein, "batman", "batman"), 1e-9)
	require.InDelta(t, 1.0, Score(Jaccard, "batman", "batman"), 1e-9)
}

func TestScoreNoneIsAlwaysOne(t *testing.T) {
	require.InDelta(t, 1.0, Score(None, "batman", "superman"), 1e-9)
}

func TestScoreDisjointStringsIsLow(t *testing.T) {
	require.Less(t, Score(Levenshtein, "batman", "zzzzzzzz"), 0.5)
	require.Less(t, Score(Jaccard, "batman", "zzzzzzzz"), 0.5)
}

func TestParseKind(t *testing.T) {
	require.Equal(t, Levenshtein, ParseKind("levenshtein"))
	require.Equal(t, Jaccard, ParseKind("jaccard"))
	require.Equal(t, None, ParseKind("none"))
	require.Equal(t, None, ParseKind("bogus"))
}

func TestBlend(t *testing.T) {
	require.InDelta(t, 0.75, Blend(1.0, 0.5, 0.5), 1e-9)
	require.InDelta(t, 1.0, Blend(1.0, 0.0, 1.0), 1e-9)
	require.InDelta(t, 0.0, Blend(1.0, 0.0, 0.0), 1e-9)
}
