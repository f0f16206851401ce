package invindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/distributed-search/imdb-index/internal/store"
)

const (
	TermsFile    = "terms.bin"
	PostingsFile = "postings.bin"
	LengthsFile  = "lengths.bin"
)

// termEntry is one row of the in-memory terms dictionary: term text plus
// where its posting list lives in postings.bin (spec.md §4.4).
type termEntry struct {
	Term           string `json:"term"`
	PostingsOffset int64  `json:"postings_offset"`
	PostingsLength int64  `json:"postings_length"`
	DocFreq        int    `json:"doc_freq"`
}

// indexWriter accumulates postings.bin and the terms dictionary as
// mergeAll delivers terms in ascending order, then flushes both files
// plus lengths.bin atomically (temp name, fsync, rename).
type indexWriter struct {
	dir         string
	postingsTmp *os.File
	postingsBuf *bufio.Writer
	postingsOff int64
	terms       []termEntry
}

func newIndexWriter(dir string) (*indexWriter, error) {
	tmpPath := filepath.Join(dir, PostingsFile+".tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating postings temp file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := store.WriteHeader(w, store.MagicPostings); err != nil {
		f.Close()
		return nil, err
	}
	return &indexWriter{dir: dir, postingsTmp: f, postingsBuf: w, postingsOff: store.HeaderSize}, nil
}

// writeTerm encodes one term's collapsed posting list as a run of
// variable-byte (id_delta, tf) pairs and records its terms-dictionary
// entry. Must be called in ascending term order (mergeAll guarantees this).
func (w *indexWriter) writeTerm(mt mergedTerm) error {
	start := w.postingsOff
	var buf []byte
	var prevID uint32
	for i, p := range mt.Postings {
		delta := p.ID
		if i > 0 {
			delta = p.ID - prevID
		}
		buf = putUvarint(buf, uint64(delta))
		buf = putUvarint(buf, uint64(p.TF))
		prevID = p.ID
	}
	n, err := w.postingsBuf.Write(buf)
	if err != nil {
		return fmt.Errorf("writing postings for %q: %w", mt.Term, err)
	}
	w.postingsOff += int64(n)
	w.terms = append(w.terms, termEntry{
		Term:           mt.Term,
		PostingsOffset: start,
		PostingsLength: w.postingsOff - start,
		DocFreq:        len(mt.Postings),
	})
	return nil
}

// finish flushes postings.bin, writes terms.bin and lengths.bin, and
// renames every temp file into place in the fixed order spec.md §4.4
// requires (postings, terms, lengths), ahead of the READY marker the
// caller writes last.
func (w *indexWriter) finish(lengths []uint32) error {
	if err := w.postingsBuf.Flush(); err != nil {
		return err
	}
	if err := w.postingsTmp.Sync(); err != nil {
		return err
	}
	if err := w.postingsTmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(w.dir, PostingsFile+".tmp"), filepath.Join(w.dir, PostingsFile)); err != nil {
		return fmt.Errorf("finalizing postings file: %w", err)
	}

	if err := writeTermsFile(w.dir, w.terms); err != nil {
		return err
	}
	return writeLengthsFile(w.dir, lengths)
}

func writeTermsFile(dir string, terms []termEntry) error {
	tmpPath := filepath.Join(dir, TermsFile+".tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating terms temp file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := store.WriteHeader(bw, store.MagicTerms); err != nil {
		f.Close()
		return err
	}
	payload, err := json.Marshal(terms)
	if err != nil {
		f.Close()
		return fmt.Errorf("marshaling terms dictionary: %w", err)
	}
	if _, err := bw.Write(payload); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(dir, TermsFile))
}

func writeLengthsFile(dir string, lengths []uint32) error {
	tmpPath := filepath.Join(dir, LengthsFile+".tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating lengths temp file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := store.WriteHeader(bw, store.MagicLengths); err != nil {
		f.Close()
		return err
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(lengths)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		f.Close()
		return err
	}
	var lenBuf [4]byte
	for _, l := range lengths {
		binary.LittleEndian.PutUint32(lenBuf[:], l)
		if _, err := bw.Write(lenBuf[:]); err != nil {
			f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(dir, LengthsFile))
}
