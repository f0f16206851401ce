// Package imdbindex is the public facade over the title search core: open
// a built index directory, run searches, resolve titles and episodes, and
// interpret scene-release filenames. Nothing in this package logs or
// touches the network (spec.md §1, §7) — it is an embeddable library.
package imdbindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/distributed-search/imdb-index/internal/filename"
	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/ingest"
	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/query"
	"github.com/distributed-search/imdb-index/internal/record"
	"github.com/distributed-search/imdb-index/internal/store"
)

// Index is a handle on one opened, immutable index directory. It owns
// every file handle and index structure derived from that directory and
// takes no lock on it; there is no package-level state (spec.md §9).
type Index struct {
	dir      string
	reader   *invindex.Reader
	names    *store.NameStore
	titles   *store.TitleStore
	episodes *store.EpisodeStore
	ratings  *store.RatingStore
	akas     *store.AkaStore
	engine   *query.Engine
	config   store.BuildConfig
}

// Open opens a previously built, READY index directory. It returns
// indexerr.ErrIndexIncomplete if dir has no READY marker (a build never
// finished, or is still in progress) and indexerr.ErrIndexFormat if any
// file in dir fails its header check.
func Open(dir string) (*Index, error) {
	if !store.IsReady(dir) {
		return nil, indexerr.Newf(indexerr.ErrIndexIncomplete, indexerr.ExitIndexUnavailable, "%s has no READY marker", dir)
	}

	cfg, err := store.ReadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("reading index config: %w", err)
	}

	reader, err := invindex.Open(dir)
	if err != nil {
		return nil, err
	}
	names, err := store.OpenNameStore(dir)
	if err != nil {
		reader.Close()
		return nil, err
	}
	titles, err := store.OpenTitleStore(dir)
	if err != nil {
		reader.Close()
		names.Close()
		return nil, err
	}
	episodes, err := store.OpenEpisodeStore(dir)
	if err != nil {
		reader.Close()
		names.Close()
		titles.Close()
		return nil, err
	}
	ratings, err := store.OpenRatingStore(dir)
	if err != nil {
		reader.Close()
		names.Close()
		titles.Close()
		episodes.Close()
		return nil, err
	}
	akas, err := store.OpenAkaStore(dir)
	if err != nil {
		reader.Close()
		names.Close()
		titles.Close()
		episodes.Close()
		ratings.Close()
		return nil, err
	}

	return &Index{
		dir:      dir,
		reader:   reader,
		names:    names,
		titles:   titles,
		episodes: episodes,
		ratings:  ratings,
		akas:     akas,
		config:   cfg,
		engine:   &query.Engine{Index: reader, Names: names, Titles: titles, Episodes: episodes},
	}, nil
}

// Close releases every file handle the Index holds.
func (ix *Index) Close() error {
	var firstErr error
	for _, c := range []func() error{ix.akas.Close, ix.ratings.Close, ix.episodes.Close, ix.titles.Close, ix.names.Close, ix.reader.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Config returns the build metadata recorded in this index's config.toml.
func (ix *Index) Config() store.BuildConfig {
	return ix.config
}

// Healthy reports whether the backing index directory is still present and
// still carries its READY marker, so a front end can wire it into a
// readiness probe without re-opening every store handle on each check.
func (ix *Index) Healthy() error {
	info, err := os.Stat(ix.dir)
	if err != nil {
		return fmt.Errorf("index directory %s: %w", ix.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("index directory %s is not a directory", ix.dir)
	}
	if !store.IsReady(ix.dir) {
		return fmt.Errorf("index directory %s lost its READY marker", ix.dir)
	}
	return nil
}

// Search runs q against the index (spec.md §4.8).
func (ix *Index) Search(q query.Query) ([]query.SearchResult, error) {
	return ix.engine.Search(q)
}

// Title resolves a title id to its full record.
func (ix *Index) Title(id string) (record.Title, error) {
	return ix.titles.Get(id)
}

// EpisodesOf yields every episode of seriesID in (season, episode) order.
func (ix *Index) EpisodesOf(seriesID string, fn func(record.Episode) bool) error {
	return ix.episodes.EpisodesOf(seriesID, fn)
}

// Episode resolves (seriesID, season, episode) to its Episode record.
func (ix *Index) Episode(seriesID string, season, episode uint32) (record.Episode, error) {
	return ix.episodes.Episode(seriesID, season, episode)
}

// Rating returns the rating record for a title id, if IMDb published one.
func (ix *Index) Rating(id string) (record.Rating, error) {
	return ix.ratings.Get(id)
}

// AlternateNames yields every alternate name recorded for a title id.
func (ix *Index) AlternateNames(titleID string, fn func(record.AlternateName) bool) error {
	return ix.akas.Of(titleID, fn)
}

// InterpretFilename extracts search hints from a scene-release filename
// or path (spec.md §4.9).
func InterpretFilename(path string) filename.Hints {
	return filename.Interpret(path)
}

// BuildOptions configures a from-scratch index build.
type BuildOptions struct {
	invindex.BuildOptions
}

// Build runs the full ingest pipeline into dir: parses the configured TSV
// sources into record stores, builds the inverted index over the derived
// NameEntries, records build statistics into config.toml, and writes the
// READY marker last (spec.md §4.4's atomicity rule). dir must not already
// hold a READY index; callers should remove a stale directory themselves
// if they intend to rebuild it.
func Build(ctx context.Context, dir string, sources ingest.Sources, opts BuildOptions) (store.BuildStats, error) {
	lock, err := store.AcquireBuildLock(dir)
	if err != nil {
		return store.BuildStats{}, err
	}
	defer lock.Release()

	var stats ingest.Stats
	names, err := ingest.Run(dir, sources, &stats)
	if err != nil {
		return store.BuildStats{}, err
	}
	defer names.Close()

	builder := invindex.NewBuilder(opts.BuildOptions)
	buildStats, err := builder.Build(ctx, dir, names)
	if err != nil {
		return store.BuildStats{}, fmt.Errorf("building inverted index: %w", err)
	}

	hash, err := datasetHash(sources)
	if err != nil {
		return store.BuildStats{}, fmt.Errorf("hashing dataset sources: %w", err)
	}

	finalStats := store.BuildStats{
		RowsSeen:     stats.RowsSeen,
		RowsRejected: stats.RowsRejected,
		SpillFiles:   int64(buildStats.SpillFiles),
		MergePasses:  int64(buildStats.MergePasses),
	}
	cfg := store.BuildConfig{
		NGramSize:   builder.Options().NGramSize,
		BuiltAt:     time.Now().UTC(),
		DatasetHash: hash,
		Stats:       finalStats,
	}
	if err := store.WriteConfig(dir, cfg); err != nil {
		return store.BuildStats{}, err
	}
	if err := store.WriteReady(dir); err != nil {
		return store.BuildStats{}, err
	}
	return finalStats, nil
}

// datasetHash fingerprints the configured source files by path, size, and
// modification time, so config.toml can record which dataset snapshot a
// build ran over without re-reading gigabytes of TSV on every open.
func datasetHash(sources ingest.Sources) (string, error) {
	h := sha256.New()
	for _, path := range []string{sources.Titles, sources.Episodes, sources.Akas, sources.Ratings} {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s:%d:%d\n", path, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
