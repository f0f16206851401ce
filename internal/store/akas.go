package store

import (
	"path/filepath"
	"sort"

	"github.com/distributed-search/imdb-index/internal/record"
)

const (
	akasFile    = "akas.bin"
	akasIdxFile = "akas.idx"
)

type akaWire struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Region     string   `json:"region,omitempty"`
	Language   string   `json:"language,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	IsOriginal bool     `json:"is_original,omitempty"`
}

func toAkaWire(a record.AlternateName) akaWire {
	return akaWire{ID: a.ID, Name: a.Name, Region: a.Region, Language: a.Language, Attributes: a.Attributes, IsOriginal: a.IsOriginal}
}

func fromAkaWire(w akaWire) record.AlternateName {
	return record.AlternateName{ID: w.ID, Name: w.Name, Region: w.Region, Language: w.Language, Attributes: w.Attributes, IsOriginal: w.IsOriginal}
}

// akaKey lets the akas.idx file support a range scan by title id, since
// many alternate names can share the same id (spec.md §4.2: "sorted by
// title id (allows range scan)").
type akaKey struct {
	id     string
	offset int64
}

// AkaWriter builds akas.bin and its by-title-id range index during ingest.
type AkaWriter struct {
	rw      *RecordWriter
	entries []akaKey
}

// NewAkaWriter creates akas.bin under dir.
func NewAkaWriter(dir string) (*AkaWriter, error) {
	rw, err := CreateRecordFile(filepath.Join(dir, akasFile), MagicAkas)
	if err != nil {
		return nil, err
	}
	return &AkaWriter{rw: rw}, nil
}

// Append writes one AlternateName.
func (w *AkaWriter) Append(a record.AlternateName) error {
	offset, err := w.rw.Append(toAkaWire(a))
	if err != nil {
		return err
	}
	w.entries = append(w.entries, akaKey{id: a.ID, offset: offset})
	return nil
}

// Close finishes the record file and writes the sorted range index.
func (w *AkaWriter) Close(dir string) error {
	if err := w.rw.Close(); err != nil {
		return err
	}
	entries := make([]IDOffset, 0, len(w.entries))
	for _, e := range w.entries {
		entries = append(entries, IDOffset{ID: e.id, Offset: e.offset})
	}
	// IDIndex's binary search finds the *first* matching id; callers scan
	// forward from there, which is exactly the range-scan semantics akas
	// needs since ids are not unique in this store.
	return WriteIDIndex(filepath.Join(dir, akasIdxFile), MagicIDIndex, entries)
}

// AkaStore is the read-only alternate-name record store.
type AkaStore struct {
	rf  *RecordFile
	idx *IDIndex
}

// OpenAkaStore opens akas.bin and akas.idx under dir.
func OpenAkaStore(dir string) (*AkaStore, error) {
	rf, err := OpenRecordFile(filepath.Join(dir, akasFile), MagicAkas)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIDIndex(filepath.Join(dir, akasIdxFile), MagicIDIndex)
	if err != nil {
		rf.Close()
		return nil, err
	}
	return &AkaStore{rf: rf, idx: idx}, nil
}

// Of lazily yields every alternate name for titleID, invoking fn until it
// returns false.
func (s *AkaStore) Of(titleID string, fn func(record.AlternateName) bool) error {
	entries := s.idx.entries
	lo := sort.Search(len(entries), func(i int) bool { return entries[i].ID >= titleID })
	for i := lo; i < len(entries) && entries[i].ID == titleID; i++ {
		var w akaWire
		if err := s.rf.ReadAt(entries[i].Offset, &w); err != nil {
			return err
		}
		if !fn(fromAkaWire(w)) {
			return nil
		}
	}
	return nil
}

// Close releases the store's file handle.
func (s *AkaStore) Close() error {
	return s.rf.Close()
}
