package filename

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/distributed-search/imdb-index/internal/record"
)

func TestInterpretSeasonEpisode(t *testing.T) {
	h := Interpret("S18E04.mkv")
	require.Equal(t, "", h.Text)
	require.NotNil(t, h.Season)
	require.Equal(t, uint32(18), *h.Season)
	require.NotNil(t, h.Episode)
	require.Equal(t, uint32(4), *h.Episode)
	require.NotNil(t, h.KindGuess)
	require.Equal(t, record.KindTVEpisode, *h.KindGuess)
}

func TestInterpretNoiseStripping(t *testing.T) {
	h := Interpret("Thor.Ragnarok.2017.1080p.WEB-DL.DD5.1.H264-FGT.mkv")
	require.Equal(t, "thor ragnarok", h.Text)
	require.NotNil(t, h.Year)
	require.Equal(t, uint16(2017), *h.Year)
	require.Nil(t, h.Season)
	require.Nil(t, h.Episode)
}

func TestInterpretPlainTitleNoYearOrEpisode(t *testing.T) {
	h := Interpret("The Dark Knight.mkv")
	require.Equal(t, "the dark knight", h.Text)
	require.Nil(t, h.Year)
	require.Nil(t, h.Season)
}

func TestInterpretYearOnly(t *testing.T) {
	h := Interpret("Blade.Runner.1982.BluRay.x264-GROUP.mkv")
	require.NotNil(t, h.Year)
	require.Equal(t, uint16(1982), *h.Year)
	require.Equal(t, "blade runner", h.Text)
}
