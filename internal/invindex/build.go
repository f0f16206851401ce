package invindex

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/distributed-search/imdb-index/internal/store"
	"github.com/distributed-search/imdb-index/internal/tokenizer"
)

// DefaultSpillBudgetBytes is the default Stage 1 in-memory buffer size
// before a spill is flushed to disk (spec.md §4.4).
const DefaultSpillBudgetBytes = 128 << 20

// DefaultSpillWorkers bounds how many spill-file writes may run
// concurrently during Stage 1 (each buffer is sorted on the calling
// goroutine before it is handed off).
const DefaultSpillWorkers = 4

// BuildOptions configures an index build.
type BuildOptions struct {
	NGramSize        int
	SpillBudgetBytes int
	SpillWorkers     int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.NGramSize < 1 {
		o.NGramSize = tokenizer.DefaultSize
	}
	if o.SpillBudgetBytes <= 0 {
		o.SpillBudgetBytes = DefaultSpillBudgetBytes
	}
	if o.SpillWorkers <= 0 {
		o.SpillWorkers = DefaultSpillWorkers
	}
	return o
}

// Stats reports what a Build call did, for the build-statistics section
// of config.toml (spec.md §2 item 9).
type Stats struct {
	SpillFiles  int
	MergePasses int
}

// Builder drives the three-stage external sort/merge build of the
// inverted index (spec.md §4.4) over a NameStore. Build is the only
// entry point; Builder otherwise holds no state between calls.
type Builder struct {
	opts BuildOptions
}

// NewBuilder constructs a Builder with the given options, applying
// defaults for any zero-valued field.
func NewBuilder(opts BuildOptions) *Builder {
	return &Builder{opts: opts.withDefaults()}
}

// Options returns the options this Builder actually runs with, defaults
// already resolved, so a caller can record what was used rather than
// what was requested.
func (b *Builder) Options() BuildOptions {
	return b.opts
}

// Build tokenizes every NameEntry in names (in id order, 0..n-1), spills
// sorted (token, id, tf) tuples bounded by the configured memory budget,
// k-way merges the spills, and writes terms.bin/postings.bin/lengths.bin
// into dir. It does not write the READY marker; callers do that last,
// after any other index-directory artifacts (e.g. config.toml) are in
// place, per spec.md §4.4's atomicity rule.
func (b *Builder) Build(ctx context.Context, dir string, names *store.NameStore) (Stats, error) {
	spillDir, err := os.MkdirTemp(dir, "spill-")
	if err != nil {
		return Stats{}, fmt.Errorf("creating spill directory: %w", err)
	}
	defer os.RemoveAll(spillDir)

	lengths := make([]uint32, names.Len())
	buf := &spillBuffer{}
	var spillPaths []string
	var mu sync.Mutex

	sem := semaphore.NewWeighted(int64(b.opts.SpillWorkers))
	g, gctx := errgroup.WithContext(ctx)

	flush := func(tuples []tuple) {
		if len(tuples) == 0 {
			return
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			return
		}
		g.Go(func() error {
			defer sem.Release(1)
			path, err := writeSpillFile(spillDir, tuples)
			if err != nil {
				return err
			}
			mu.Lock()
			spillPaths = append(spillPaths, path)
			mu.Unlock()
			return nil
		})
	}

	for id := uint32(0); id < uint32(names.Len()); id++ {
		if err := gctx.Err(); err != nil {
			break
		}
		entry, err := names.Get(id)
		if err != nil {
			return Stats{}, fmt.Errorf("reading name entry %d: %w", id, err)
		}
		tokens := tokenizer.Tokenize(entry.Name, b.opts.NGramSize)
		var docLen int
		for _, t := range tokens {
			buf.add(t.Term, id, t.TF)
			docLen += t.TF
		}
		lengths[id] = uint32(docLen)

		if buf.bytes >= b.opts.SpillBudgetBytes {
			flush(buf.sortedCopy())
			buf.reset()
		}
	}

	// Stage 1's tail: whatever never crossed the spill threshold merges
	// directly from memory rather than paying for one more file round trip.
	tail := buf.sortedCopy()

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("spilling index tuples: %w", err)
	}

	sources := make([]mergeSource, 0, len(spillPaths)+1)
	for _, p := range spillPaths {
		r, err := openSpillReader(p)
		if err != nil {
			return Stats{}, err
		}
		defer r.close()
		sources = append(sources, r)
	}
	if len(tail) > 0 {
		sources = append(sources, &sliceSource{tuples: tail})
	}

	w, err := newIndexWriter(dir)
	if err != nil {
		return Stats{}, err
	}
	if err := mergeAll(sources, w.writeTerm); err != nil {
		return Stats{}, fmt.Errorf("merging index spills: %w", err)
	}
	if err := w.finish(lengths); err != nil {
		return Stats{}, fmt.Errorf("finishing index build: %w", err)
	}
	return Stats{SpillFiles: len(spillPaths), MergePasses: 1}, nil
}
