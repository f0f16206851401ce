// Package invindex implements the inverted index described by spec.md
// §4.4/§4.5: an external multi-way merge sort build producing three
// files (terms, postings, lengths), and a read-only, memory-mapped-style
// query interface over them.
package invindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/store"
)

// Posting is one (name_entry_id, tf) pair decoded from a term's posting
// list.
type Posting struct {
	ID uint32
	TF int
}

// Reader is a read-only handle on a built inverted index. The terms
// dictionary is small enough (one entry per distinct n-gram) to hold
// entirely in memory and binary-search directly, matching how the
// record stores' id indexes are handled; postings.bin is read lazily via
// ReadAt per query, never loaded whole.
type Reader struct {
	postings   *os.File
	terms      []termEntry
	lengths    []uint32
	numDocs    int
	totalTerms int64
}

// Open opens terms.bin, postings.bin, and lengths.bin under dir. Callers
// must have already confirmed dir contains a READY marker
// (store.IsReady); Open itself only validates each file's header.
func Open(dir string) (*Reader, error) {
	terms, err := readTermsFile(filepath.Join(dir, TermsFile))
	if err != nil {
		return nil, err
	}
	lengths, err := readLengthsFile(filepath.Join(dir, LengthsFile))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, PostingsFile))
	if err != nil {
		return nil, fmt.Errorf("opening postings file: %w", err)
	}
	hdrOK := make([]byte, store.HeaderSize)
	if _, err := f.ReadAt(hdrOK, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading postings header: %w", err)
	}
	if err := store.ReadHeader(bytes.NewReader(hdrOK), store.MagicPostings); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", PostingsFile, err)
	}

	var total int64
	for _, l := range lengths {
		total += int64(l)
	}
	return &Reader{postings: f, terms: terms, lengths: lengths, numDocs: len(lengths), totalTerms: total}, nil
}

func readTermsFile(path string) ([]termEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening terms file: %w", err)
	}
	defer f.Close()
	hdr := make([]byte, store.HeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("reading terms header: %w", err)
	}
	if err := store.ReadHeader(bytes.NewReader(hdr), store.MagicTerms); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dec := json.NewDecoder(f)
	var terms []termEntry
	if err := dec.Decode(&terms); err != nil {
		return nil, fmt.Errorf("decoding terms dictionary: %w", err)
	}
	return terms, nil
}

func readLengthsFile(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening lengths file: %w", err)
	}
	defer f.Close()
	hdr := make([]byte, store.HeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("reading lengths header: %w", err)
	}
	if err := store.ReadHeader(bytes.NewReader(hdr), store.MagicLengths); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(f, countBuf[:]); err != nil {
		return nil, err
	}
	count := le32(countBuf[:])
	out := make([]uint32, count)
	buf := make([]byte, 4*count)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("reading lengths array: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		out[i] = le32(buf[i*4 : i*4+4])
	}
	return out, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// termIndex returns the position of term in the sorted dictionary, or -1.
func (r *Reader) termIndex(term string) int {
	i := sort.Search(len(r.terms), func(i int) bool { return r.terms[i].Term >= term })
	if i >= len(r.terms) || r.terms[i].Term != term {
		return -1
	}
	return i
}

// Postings returns the decoded (id, tf) posting list for token, in
// ascending id order. An unknown token yields an empty list, not an
// error (spec.md §4.5: "missing tokens are silent").
func (r *Reader) Postings(token string) ([]Posting, error) {
	i := r.termIndex(token)
	if i < 0 {
		return nil, nil
	}
	e := r.terms[i]
	buf := make([]byte, e.PostingsLength)
	if _, err := r.postings.ReadAt(buf, e.PostingsOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", token, err)
	}
	out := make([]Posting, 0, e.DocFreq)
	var id uint32
	off := 0
	for p := 0; p < e.DocFreq; p++ {
		delta, n := readUvarint(buf, off)
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated posting list for %q", indexerr.ErrIndexFormat, token)
		}
		off += n
		tf, n := readUvarint(buf, off)
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated posting list for %q", indexerr.ErrIndexFormat, token)
		}
		off += n
		id += uint32(delta)
		out = append(out, Posting{ID: id, TF: int(tf)})
	}
	return out, nil
}

// DocFreq returns the number of NameEntries containing token.
func (r *Reader) DocFreq(token string) int {
	i := r.termIndex(token)
	if i < 0 {
		return 0
	}
	return r.terms[i].DocFreq
}

// DocLen returns the document length (total token count) of a
// NameEntry, used by BM25's length-normalization term.
func (r *Reader) DocLen(id uint32) int {
	if int(id) >= len(r.lengths) {
		return 0
	}
	return int(r.lengths[id])
}

// NumDocs returns the number of NameEntries in the collection.
func (r *Reader) NumDocs() int { return r.numDocs }

// AvgDocLen returns the collection's average document length, used by
// BM25's length-normalization term. Returns 0 for an empty collection.
func (r *Reader) AvgDocLen() float64 {
	if r.numDocs == 0 {
		return 0
	}
	return float64(r.totalTerms) / float64(r.numDocs)
}

// Close releases the reader's open file handle.
func (r *Reader) Close() error {
	return r.postings.Close()
}
