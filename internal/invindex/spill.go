package invindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// tuple is one (token, name_entry_id, tf) triple produced by Stage 1
// tokenization, before Stage 2 collapses duplicates across spills
// (spec.md §4.4).
type tuple struct {
	Term string
	ID   uint32
	TF   int
}

// spillBuffer accumulates tuples in memory until the configured byte
// budget is exceeded, at which point the caller sorts and flushes it to a
// spill file. Size accounting is approximate (term bytes plus a fixed
// per-tuple overhead) since the exact runtime footprint of a Go slice
// element isn't worth tracking precisely for a soft memory budget.
type spillBuffer struct {
	tuples []tuple
	bytes  int
}

const tupleOverhead = 24

func (b *spillBuffer) add(term string, id uint32, tf int) {
	b.tuples = append(b.tuples, tuple{Term: term, ID: id, TF: tf})
	b.bytes += len(term) + tupleOverhead
}

func (b *spillBuffer) reset() {
	b.tuples = b.tuples[:0]
	b.bytes = 0
}

// sortedCopy returns b's tuples sorted by (Term, ID), leaving b untouched.
func (b *spillBuffer) sortedCopy() []tuple {
	out := make([]tuple, len(b.tuples))
	copy(out, b.tuples)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Term != out[j].Term {
			return out[i].Term < out[j].Term
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// writeSpillFile gob-encodes tuples, already sorted, as a sequence of
// individual records (rather than one encoded slice) so spillReader can
// stream them back one at a time during the k-way merge instead of
// loading an entire spill into memory.
func writeSpillFile(dir string, tuples []tuple) (string, error) {
	path := filepath.Join(dir, "spill-"+uuid.NewString()+".tmp")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating spill file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := gob.NewEncoder(w)
	for _, t := range tuples {
		if err := enc.Encode(t); err != nil {
			return "", fmt.Errorf("encoding spill tuple: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", err
	}
	return path, nil
}

// spillReader streams tuples back out of a spill file in the order they
// were written (already sorted by (Term, ID)), one Decode call at a time.
type spillReader struct {
	f   *os.File
	dec *gob.Decoder
}

func openSpillReader(path string) (*spillReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spill file: %w", err)
	}
	return &spillReader{f: f, dec: gob.NewDecoder(bufio.NewReader(f))}, nil
}

// next decodes the following tuple, returning io.EOF once exhausted.
func (r *spillReader) next() (tuple, error) {
	var t tuple
	if err := r.dec.Decode(&t); err != nil {
		return tuple{}, err
	}
	return t, nil
}

func (r *spillReader) close() error {
	return r.f.Close()
}
