// Package ingest drives the record-parser stage of a build: it streams
// the four IMDb TSV dumps into their record stores and derives the
// NameEntry set the inverted index is built over (spec.md §3,
// "NameEntry — the searchable unit").
package ingest

import (
	"fmt"
	"os"

	"github.com/distributed-search/imdb-index/internal/record"
	"github.com/distributed-search/imdb-index/internal/store"
)

// Sources locates the four IMDb TSV dumps an ingest reads. Episodes,
// akas, and ratings are optional: a build over titles alone is valid,
// just unable to resolve episode or rating lookups.
type Sources struct {
	Titles   string
	Episodes string
	Akas     string
	Ratings  string
}

// Stats accumulates the row counters spec.md §2 item 9 asks a build to
// report. RowsRejected is keyed by source file ("titles", "episodes",
// "akas", "ratings") rather than by the underlying parse error, which
// varies row to row (DESIGN.md records why the coarser bucket was chosen).
type Stats struct {
	RowsSeen     int64
	RowsRejected store.RejectCounts
}

func (s *Stats) reject(source string) {
	if s.RowsRejected == nil {
		s.RowsRejected = make(store.RejectCounts)
	}
	s.RowsRejected[source]++
}

// Run parses every configured source into its record store under dir and
// returns the opened NameStore derived from the titles and alternate
// names just written. Callers are responsible for running the inverted
// index build over the returned store and for releasing it.
func Run(dir string, src Sources, stats *Stats) (*store.NameStore, error) {
	if err := ingestTitles(dir, src.Titles, stats); err != nil {
		return nil, err
	}
	if src.Episodes != "" {
		if err := ingestEpisodes(dir, src.Episodes, stats); err != nil {
			return nil, err
		}
	} else if err := writeEmptyEpisodes(dir); err != nil {
		return nil, err
	}
	if src.Akas != "" {
		if err := ingestAkas(dir, src.Akas, stats); err != nil {
			return nil, err
		}
	} else if err := writeEmptyAkas(dir); err != nil {
		return nil, err
	}
	if src.Ratings != "" {
		if err := ingestRatings(dir, src.Ratings, stats); err != nil {
			return nil, err
		}
	} else if err := writeEmptyRatings(dir); err != nil {
		return nil, err
	}

	return deriveNames(dir)
}

func openTSV(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

func ingestTitles(dir, path string, stats *Stats) error {
	f, err := openTSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := store.NewTitleWriter(dir)
	if err != nil {
		return err
	}
	var writeErr error
	err = record.ParseTitles(f,
		func(t record.Title) {
			stats.RowsSeen++
			if writeErr == nil {
				writeErr = w.Append(t)
			}
		},
		func(record.RejectedRow) {
			stats.RowsSeen++
			stats.reject("titles")
		},
	)
	if err == nil {
		err = writeErr
	}
	if err != nil {
		return fmt.Errorf("parsing titles: %w", err)
	}
	return w.Close(dir)
}

func ingestEpisodes(dir, path string, stats *Stats) error {
	f, err := openTSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := store.NewEpisodeWriter(dir)
	if err != nil {
		return err
	}
	var writeErr error
	err = record.ParseEpisodes(f,
		func(e record.Episode) {
			stats.RowsSeen++
			if writeErr == nil {
				writeErr = w.Append(e)
			}
		},
		func(record.RejectedRow) {
			stats.RowsSeen++
			stats.reject("episodes")
		},
	)
	if err == nil {
		err = writeErr
	}
	if err != nil {
		return fmt.Errorf("parsing episodes: %w", err)
	}
	return w.Close(dir)
}

func ingestAkas(dir, path string, stats *Stats) error {
	f, err := openTSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := store.NewAkaWriter(dir)
	if err != nil {
		return err
	}
	var writeErr error
	err = record.ParseAkas(f,
		func(a record.AlternateName) {
			stats.RowsSeen++
			if writeErr == nil {
				writeErr = w.Append(a)
			}
		},
		func(record.RejectedRow) {
			stats.RowsSeen++
			stats.reject("akas")
		},
	)
	if err == nil {
		err = writeErr
	}
	if err != nil {
		return fmt.Errorf("parsing akas: %w", err)
	}
	return w.Close(dir)
}

func ingestRatings(dir, path string, stats *Stats) error {
	f, err := openTSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := store.NewRatingWriter(dir)
	if err != nil {
		return err
	}
	var writeErr error
	err = record.ParseRatings(f,
		func(r record.Rating) {
			stats.RowsSeen++
			if writeErr == nil {
				writeErr = w.Append(r)
			}
		},
		func(record.RejectedRow) {
			stats.RowsSeen++
			stats.reject("ratings")
		},
	)
	if err == nil {
		err = writeErr
	}
	if err != nil {
		return fmt.Errorf("parsing ratings: %w", err)
	}
	return w.Close(dir)
}

func writeEmptyEpisodes(dir string) error {
	w, err := store.NewEpisodeWriter(dir)
	if err != nil {
		return err
	}
	return w.Close(dir)
}

func writeEmptyAkas(dir string) error {
	w, err := store.NewAkaWriter(dir)
	if err != nil {
		return err
	}
	return w.Close(dir)
}

func writeEmptyRatings(dir string) error {
	w, err := store.NewRatingWriter(dir)
	if err != nil {
		return err
	}
	return w.Close(dir)
}

// deriveNames builds names.bin from the just-written titles and akas
// stores: one NameEntry per primary name, one per original name if it
// differs, and one per alternate name (spec.md §3).
func deriveNames(dir string) (*store.NameStore, error) {
	titles, err := store.OpenTitleStore(dir)
	if err != nil {
		return nil, err
	}
	defer titles.Close()

	akas, err := store.OpenAkaStore(dir)
	if err != nil {
		return nil, err
	}
	defer akas.Close()

	nw, err := store.NewNameWriter(dir)
	if err != nil {
		return nil, err
	}

	var failure error
	iterErr := titles.Iter(func(t record.Title) bool {
		if _, err := nw.Append(store.NameEntry{TitleID: t.ID, Name: t.PrimaryName, ScoreBoost: store.BoostPrimary}); err != nil {
			failure = err
			return false
		}
		if t.OriginalName != "" && t.OriginalName != t.PrimaryName {
			if _, err := nw.Append(store.NameEntry{TitleID: t.ID, Name: t.OriginalName, ScoreBoost: store.BoostOriginal}); err != nil {
				failure = err
				return false
			}
		}
		if err := akas.Of(t.ID, func(a record.AlternateName) bool {
			if _, err := nw.Append(store.NameEntry{TitleID: t.ID, Name: a.Name, ScoreBoost: store.BoostAlternate}); err != nil {
				failure = err
				return false
			}
			return true
		}); err != nil {
			failure = err
			return false
		}
		return failure == nil
	})
	if iterErr != nil {
		return nil, iterErr
	}
	if failure != nil {
		return nil, failure
	}

	if err := nw.Close(dir); err != nil {
		return nil, err
	}
	return store.OpenNameStore(dir)
}
