package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/distributed-search/imdb-index/internal/indexerr"
)

const (
	namesFile    = "names.bin"
	namesIdxFile = "names.idx"
)

// NameEntry is the searchable unit derived from a Title's name variants:
// one per primary name, distinct original name, and alternate name.
type NameEntry struct {
	TitleID    string  `json:"title_id"`
	Name       string  `json:"name"`
	ScoreBoost float64 `json:"score_boost"`
}

// Name-entry score boosts, used to break ties in favor of the primary name
// over an alternate on an otherwise equal relevance score (spec.md §4.6).
const (
	BoostPrimary   = 1.0
	BoostOriginal  = 0.9
	BoostAlternate = 0.5
)

// NameWriter builds names.bin and its flat offset array (names.idx) during
// ingest. name_entry_id is assigned sequentially starting at 0, so
// names.idx is simply an array of offsets indexed by position rather than
// a sorted search structure.
type NameWriter struct {
	rw      *RecordWriter
	offsets []int64
}

// NewNameWriter creates names.bin under dir.
func NewNameWriter(dir string) (*NameWriter, error) {
	rw, err := CreateRecordFile(filepath.Join(dir, namesFile), MagicNames)
	if err != nil {
		return nil, err
	}
	return &NameWriter{rw: rw}, nil
}

// Append writes one NameEntry and returns its assigned name_entry_id.
func (w *NameWriter) Append(e NameEntry) (uint32, error) {
	offset, err := w.rw.Append(e)
	if err != nil {
		return 0, err
	}
	id := uint32(len(w.offsets))
	w.offsets = append(w.offsets, offset)
	return id, nil
}

// Close finishes the record file and writes the offset array.
func (w *NameWriter) Close(dir string) error {
	if err := w.rw.Close(); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, namesIdxFile))
	if err != nil {
		return fmt.Errorf("creating names index: %w", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := WriteHeader(bw, MagicIDIndex); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(w.offsets)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}
	var offBuf [8]byte
	for _, off := range w.offsets {
		binary.LittleEndian.PutUint64(offBuf[:], uint64(off))
		if _, err := bw.Write(offBuf[:]); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// NameStore is the read-only NameEntry store.
type NameStore struct {
	rf      *RecordFile
	offsets []int64
}

// OpenNameStore opens names.bin and names.idx under dir.
func OpenNameStore(dir string) (*NameStore, error) {
	rf, err := OpenRecordFile(filepath.Join(dir, namesFile), MagicNames)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, namesIdxFile))
	if err != nil {
		rf.Close()
		return nil, fmt.Errorf("opening names index: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	if err := ReadHeader(r, MagicIDIndex); err != nil {
		rf.Close()
		return nil, err
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		rf.Close()
		return nil, err
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	offsets := make([]int64, count)
	var offBuf [8]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, offBuf[:]); err != nil {
			rf.Close()
			return nil, err
		}
		offsets[i] = int64(binary.LittleEndian.Uint64(offBuf[:]))
	}
	return &NameStore{rf: rf, offsets: offsets}, nil
}

// Get fetches the NameEntry with the given name_entry_id.
func (s *NameStore) Get(id uint32) (NameEntry, error) {
	if int(id) >= len(s.offsets) {
		return NameEntry{}, fmt.Errorf("name entry %d: %w", id, indexerr.ErrNotFound)
	}
	var e NameEntry
	if err := s.rf.ReadAt(s.offsets[id], &e); err != nil {
		return NameEntry{}, err
	}
	return e, nil
}

// Len returns the number of name entries in the store.
func (s *NameStore) Len() int { return len(s.offsets) }

// Close releases the store's file handle.
func (s *NameStore) Close() error {
	return s.rf.Close()
}
