package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/store"
)

func buildReader(t *testing.T, names []string) (*invindex.Reader, func()) {
	t.Helper()
	dir := t.TempDir()

	nw, err := store.NewNameWriter(dir)
	require.NoError(t, err)
	for _, n := range names {
		_, err := nw.Append(store.NameEntry{TitleID: "tt0000001", Name: n, ScoreBoost: store.BoostPrimary})
		require.NoError(t, err)
	}
	require.NoError(t, nw.Close(dir))

	ns, err := store.OpenNameStore(dir)
	require.NoError(t, err)
	defer ns.Close()

	b := invindex.NewBuilder(invindex.BuildOptions{NGramSize: 3})
	_, err = b.Build(context.Background(), dir, ns)
	require.NoError(t, err)

	r, err := invindex.Open(dir)
	require.NoError(t, err)
	return r, func() { r.Close() }
}

func TestGenerateAndScoreRanksExactMatchHighest(t *testing.T) {
	r, closeFn := buildReader(t, []string{"batman begins", "batman returns", "the dark knight"})
	defer closeFn()

	cands, err := GenerateAndScore(r, "batman begins", 3, BM25, DefaultMinOverlap)
	require.NoError(t, err)
	require.NotEmpty(t, cands)

	best := cands[0]
	for _, c := range cands[1:] {
		if c.Relevance > best.Relevance {
			best = c
		}
	}
	require.Equal(t, uint32(0), best.ID)
}

func TestMinOverlapCutoffExcludesWeakMatches(t *testing.T) {
	r, closeFn := buildReader(t, []string{"batman begins", "completely unrelated title"})
	defer closeFn()

	cands, err := GenerateAndScore(r, "batman begins", 3, BM25, 1.0)
	require.NoError(t, err)
	for _, c := range cands {
		require.NotEqual(t, uint32(1), c.ID)
	}
}

func TestEmptyQueryYieldsNoCandidates(t *testing.T) {
	r, closeFn := buildReader(t, []string{"batman begins"})
	defer closeFn()

	cands, err := GenerateAndScore(r, "", 3, BM25, DefaultMinOverlap)
	require.NoError(t, err)
	require.Empty(t, cands)
}

func TestAllKindsProduceNonNegativeScores(t *testing.T) {
	r, closeFn := buildReader(t, []string{"batman begins", "batman returns"})
	defer closeFn()

	for _, kind := range []Kind{BM25, TFIDF, Jaccard, QGram} {
		cands, err := GenerateAndScore(r, "batman", 3, kind, DefaultMinOverlap)
		require.NoError(t, err)
		for _, c := range cands {
			require.GreaterOrEqual(t, c.Relevance, 0.0)
		}
	}
}

func TestParseKind(t *testing.T) {
	require.Equal(t, TFIDF, ParseKind("tf-idf"))
	require.Equal(t, Jaccard, ParseKind("jaccard"))
	require.Equal(t, QGram, ParseKind("qgram"))
	require.Equal(t, BM25, ParseKind("okapi-bm25"))
	require.Equal(t, BM25, ParseKind("bogus"))
}
