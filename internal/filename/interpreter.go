// Package filename implements the filename interpreter (spec.md §4.9):
// extracting season/episode, year, and residual query text from a
// filesystem path's basename.
package filename

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/distributed-search/imdb-index/internal/record"
)

// Hints is the output of the filename interpreter (spec.md §4.9).
type Hints struct {
	Text      string
	Year      *uint16
	Season    *uint32
	Episode   *uint32
	KindGuess *record.TitleKind
}

var (
	seasonEpisodeRe = regexp.MustCompile(`[Ss](\d{1,2})[._ ]?[Ee](\d{1,3})`)
	yearRe          = regexp.MustCompile(`(?:^|[^0-9])([12]\d{3})(?:[^0-9]|$)`)
	separatorRe     = regexp.MustCompile(`[._-]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// minPlausibleYear/maxPlausibleYear bound which [12]\d{3} runs are
// treated as a release year rather than a resolution tag like "1080p"
// or "2160p", which also match the bare 4-digit pattern spec.md §4.9
// describes. Scene-release convention always places the year before
// such tags, but "rightmost" alone can't tell them apart, so the search
// additionally requires the value to fall in a plausible release-year
// range.
const (
	minPlausibleYear = 1870
	maxPlausibleYear = 2030
)

// Interpret extracts Hints from path in this order: season/episode, year,
// release-group suffix, noise stripping, then separator normalization,
// with whatever remains becoming Text. Noise stripping runs before the
// separators are normalized (see noisePatterns).
func Interpret(path string) Hints {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var hints Hints

	if m := seasonEpisodeRe.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		episode, _ := strconv.Atoi(base[m[4]:m[5]])
		s, e := uint32(season), uint32(episode)
		hints.Season = &s
		hints.Episode = &e
		kind := record.KindTVEpisode
		hints.KindGuess = &kind
		base = base[:m[0]] + " " + base[m[1]:]
	}

	if lo, hi, y, ok := rightmostPlausibleYear(base); ok {
		yy := uint16(y)
		hints.Year = &yy
		base = base[:lo] + " " + base[hi:]
	}

	base = releaseGroupSuffix.ReplaceAllString(base, " ")
	base = stripNoise(base)
	base = separatorRe.ReplaceAllString(base, " ")
	base = whitespaceRe.ReplaceAllString(base, " ")
	hints.Text = strings.ToLower(strings.TrimSpace(base))

	return hints
}

// rightmostPlausibleYear scans s for every [12]\d{3} run not adjacent to
// other digits and returns the rightmost one whose value is a plausible
// release year.
func rightmostPlausibleYear(s string) (lo, hi, year int, ok bool) {
	matches := yearRe.FindAllStringSubmatchIndex(s, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		y, err := strconv.Atoi(s[m[2]:m[3]])
		if err != nil {
			continue
		}
		if y < minPlausibleYear || y > maxPlausibleYear {
			continue
		}
		return m[2], m[3], y, true
	}
	return 0, 0, 0, false
}
