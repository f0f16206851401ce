package imdbindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-search/imdb-index/internal/ingest"
	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/query"
	"github.com/distributed-search/imdb-index/internal/record"
)

const titlesTSV = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
	"tt0096697\ttvSeries\tThe Simpsons\tThe Simpsons\t0\t1989\t\\N\t22\tAnimation,Comedy\n" +
	"tt0773646\ttvEpisode\tHomer Loves Flanders\tHomer Loves Flanders\t0\t1994\t\\N\t22\t\\N\n" +
	"tt0800369\tmovie\tThor\tThor\t0\t2011\t\\N\t115\tAction\n"

const episodesTSV = "tconst\tparentTconst\tseasonNumber\tepisodeNumber\n" +
	"tt0773646\ttt0096697\t5\t16\n"

const akasTSV = "titleId\tordering\ttitle\tregion\tlanguage\ttypes\tattributes\tisOriginalTitle\n" +
	"tt0800369\t1\tThor: God of Thunder\tUS\t\\N\t\\N\t\\N\t0\n"

const ratingsTSV = "tconst\taverageRating\tnumVotes\n" +
	"tt0800369\t7.0\t800000\n"

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func buildFixtureIndex(t *testing.T) *Index {
	t.Helper()
	srcDir := t.TempDir()
	indexDir := t.TempDir()

	sources := ingest.Sources{
		Titles:   writeFixture(t, srcDir, "title.basics.tsv", titlesTSV),
		Episodes: writeFixture(t, srcDir, "title.episode.tsv", episodesTSV),
		Akas:     writeFixture(t, srcDir, "title.akas.tsv", akasTSV),
		Ratings:  writeFixture(t, srcDir, "title.ratings.tsv", ratingsTSV),
	}

	stats, err := Build(context.Background(), indexDir, sources, BuildOptions{
		BuildOptions: invindex.BuildOptions{NGramSize: 3},
	})
	require.NoError(t, err)
	require.EqualValues(t, 6, stats.RowsSeen)
	require.Empty(t, stats.RowsRejected)

	idx, err := Open(indexDir)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBuildThenOpenRoundTrip(t *testing.T) {
	idx := buildFixtureIndex(t)

	title, err := idx.Title("tt0800369")
	require.NoError(t, err)
	require.Equal(t, "Thor", title.PrimaryName)

	rating, err := idx.Rating("tt0800369")
	require.NoError(t, err)
	require.InDelta(t, 7.0, rating.Rating, 0.001)

	var names []string
	require.NoError(t, idx.AlternateNames("tt0800369", func(a record.AlternateName) bool {
		names = append(names, a.Name)
		return true
	}))
	require.Equal(t, []string{"Thor: God of Thunder"}, names)
}

func TestOpenWithoutBuildIsIncomplete(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.Error(t, err)
}

func TestFacadeSearchResolvesEpisode(t *testing.T) {
	idx := buildFixtureIndex(t)

	results, err := idx.Search(query.DefaultQuery("homer loves flanders"))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "tt0773646", results[0].TitleID)

	ep, err := idx.Episode("tt0096697", 5, 16)
	require.NoError(t, err)
	require.Equal(t, "tt0773646", ep.ID)
}

func TestInterpretFilenameViaFacade(t *testing.T) {
	h := InterpretFilename("Thor.Ragnarok.2017.1080p.WEB-DL.DD5.1.H264-FGT.mkv")
	require.Equal(t, "thor ragnarok", h.Text)
	require.NotNil(t, h.Year)
	require.Equal(t, uint16(2017), *h.Year)
}
