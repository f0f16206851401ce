package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/record"
	"github.com/distributed-search/imdb-index/internal/store"
)

type fixtureTitle struct {
	id        string
	kind      record.TitleKind
	name      string
	startYear uint16
}

func buildFixture(t *testing.T, titles []fixtureTitle, episodes []record.Episode) *Engine {
	t.Helper()
	dir := t.TempDir()

	tw, err := store.NewTitleWriter(dir)
	require.NoError(t, err)
	for _, ft := range titles {
		year := ft.startYear
		err := tw.Append(record.Title{ID: ft.id, Kind: ft.kind, PrimaryName: ft.name, StartYear: &year})
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close(dir))

	ew, err := store.NewEpisodeWriter(dir)
	require.NoError(t, err)
	for _, ep := range episodes {
		require.NoError(t, ew.Append(ep))
	}
	require.NoError(t, ew.Close(dir))

	nw, err := store.NewNameWriter(dir)
	require.NoError(t, err)
	for _, ft := range titles {
		_, err := nw.Append(store.NameEntry{TitleID: ft.id, Name: ft.name, ScoreBoost: store.BoostPrimary})
		require.NoError(t, err)
	}
	require.NoError(t, nw.Close(dir))

	ns, err := store.OpenNameStore(dir)
	require.NoError(t, err)

	b := invindex.NewBuilder(invindex.BuildOptions{NGramSize: 3})
	_, err = b.Build(context.Background(), dir, ns)
	require.NoError(t, err)

	idx, err := invindex.Open(dir)
	require.NoError(t, err)

	ts, err := store.OpenTitleStore(dir)
	require.NoError(t, err)
	es, err := store.OpenEpisodeStore(dir)
	require.NoError(t, err)

	return &Engine{Index: idx, Names: ns, Titles: ts, Episodes: es}
}

func TestSearchExactTVEpisodeLookup(t *testing.T) {
	season, episode := uint32(5), uint32(16)
	e := buildFixture(t,
		[]fixtureTitle{
			{id: "tt0096697", kind: record.KindTVSeries, name: "The Simpsons", startYear: 1989},
			{id: "tt0773646", kind: record.KindTVEpisode, name: "Homer Loves Flanders", startYear: 1994},
			{id: "tt0000001", kind: record.KindMovie, name: "Unrelated Movie", startYear: 2000},
		},
		[]record.Episode{
			{ID: "tt0773646", TVShowID: "tt0096697", Season: &season, Episode: &episode},
		},
	)

	results, err := e.Search(DefaultQuery("homey loves flanders"))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "tt0773646", results[0].TitleID)
}

func TestSearchYearDisambiguation(t *testing.T) {
	e := buildFixture(t,
		[]fixtureTitle{
			{id: "tt0800369", kind: record.KindMovie, name: "Thor", startYear: 2011},
			{id: "tt9999991", kind: record.KindMovie, name: "Thor", startYear: 2010},
		},
		nil,
	)

	y2011 := uint16(2011)
	q := DefaultQuery("thor")
	q.Year = &y2011
	results, err := e.Search(q)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "tt0800369", results[0].TitleID)

	y2010 := uint16(2010)
	q.Year = &y2010
	results, err = e.Search(q)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "tt9999991", results[0].TitleID)
}

func TestSearchEmptyQueryIsError(t *testing.T) {
	e := buildFixture(t, []fixtureTitle{{id: "tt0000001", kind: record.KindMovie, name: "Something", startYear: 2000}}, nil)
	_, err := e.Search(DefaultQuery(""))
	require.ErrorIs(t, err, indexerr.ErrEmptyQuery)
}

func TestSearchUnknownParentIsError(t *testing.T) {
	e := buildFixture(t, []fixtureTitle{{id: "tt0000001", kind: record.KindMovie, name: "Something", startYear: 2000}}, nil)
	q := DefaultQuery("something")
	q.TVShowID = "tt9999999"
	_, err := e.Search(q)
	require.ErrorIs(t, err, indexerr.ErrUnknownParent)
}

func TestSearchStabilityAcrossRepeatedCalls(t *testing.T) {
	e := buildFixture(t,
		[]fixtureTitle{
			{id: "tt0800369", kind: record.KindMovie, name: "Thor", startYear: 2011},
			{id: "tt9999991", kind: record.KindMovie, name: "Thor", startYear: 2010},
		},
		nil,
	)
	q := DefaultQuery("thor")
	first, err := e.Search(q)
	require.NoError(t, err)
	second, err := e.Search(q)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
