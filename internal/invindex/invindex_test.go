package invindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-search/imdb-index/internal/store"
	"github.com/distributed-search/imdb-index/internal/tokenizer"
)

func buildTestIndex(t *testing.T, names []string, opts BuildOptions) (*Reader, func()) {
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

	b := NewBuilder(opts)
	_, err = b.Build(context.Background(), dir, ns)
	require.NoError(t, err)

	r, err := Open(dir)
	require.NoError(t, err)
	return r, func() { r.Close() }
}

func TestBuildAndQueryRoundTrip(t *testing.T) {
	names := []string{"batman begins", "batman returns", "the dark knight"}
	r, closeFn := buildTestIndex(t, names, BuildOptions{NGramSize: 3})
	defer closeFn()

	require.Equal(t, len(names), r.NumDocs())

	tokens := tokenizer.Tokenize("batman", 3)
	require.NotEmpty(t, tokens)

	postings, err := r.Postings(tokens[0].Term)
	require.NoError(t, err)
	// "batman begins" (id 0) and "batman returns" (id 1) both start with
	// "batman"; "the dark knight" (id 2) does not.
	require.Len(t, postings, 2)
	require.Equal(t, uint32(0), postings[0].ID)
	require.Equal(t, uint32(1), postings[1].ID)
}

func TestPostingsAscendingAndDedupedByID(t *testing.T) {
	names := []string{"star wars", "star trek", "starship troopers"}
	r, closeFn := buildTestIndex(t, names, BuildOptions{NGramSize: 3})
	defer closeFn()

	for _, gram := range tokenizer.Tokenize("star", 3) {
		postings, err := r.Postings(gram.Term)
		require.NoError(t, err)
		for i := 1; i < len(postings); i++ {
			require.Less(t, postings[i-1].ID, postings[i].ID, "postings must be strictly ascending with no duplicate ids")
		}
	}
}

func TestDocLenMatchesTokenCount(t *testing.T) {
	names := []string{"alien", "aliens"}
	r, closeFn := buildTestIndex(t, names, BuildOptions{NGramSize: 3})
	defer closeFn()

	for id, name := range names {
		want := 0
		for _, tok := range tokenizer.Tokenize(name, 3) {
			want += tok.TF
		}
		require.Equal(t, want, r.DocLen(uint32(id)))
	}
}

func TestUnknownTokenIsEmptyNotError(t *testing.T) {
	r, closeFn := buildTestIndex(t, []string{"the matrix"}, BuildOptions{NGramSize: 3})
	defer closeFn()

	postings, err := r.Postings("\x01zz\x01")
	require.NoError(t, err)
	require.Empty(t, postings)
	require.Zero(t, r.DocFreq("\x01zz\x01"))
}

func TestSmallSpillBudgetForcesMultipleSpillFiles(t *testing.T) {
	names := []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}
	r, closeFn := buildTestIndex(t, names, BuildOptions{NGramSize: 3, SpillBudgetBytes: 1, SpillWorkers: 2})
	defer closeFn()

	require.Equal(t, len(names), r.NumDocs())
	postings, err := r.Postings(tokenizer.Tokenize("one", 3)[0].Term)
	require.NoError(t, err)
	require.NotEmpty(t, postings)
}
