package store

import (
	"fmt"
	"path/filepath"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/record"
)

const (
	titlesFile    = "titles.bin"
	titlesIdxFile = "titles.idx"
)

// titleWire is the on-disk JSON shape of a Title. It mirrors record.Title
// field-for-field; kept separate so the wire format doesn't silently shift
// if record.Title gains in-memory-only fields later.
type titleWire struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	PrimaryName    string   `json:"primary_name"`
	OriginalName   string   `json:"original_name"`
	IsAdult        bool     `json:"is_adult"`
	StartYear      *uint16  `json:"start_year,omitempty"`
	EndYear        *uint16  `json:"end_year,omitempty"`
	RuntimeMinutes *uint32  `json:"runtime_minutes,omitempty"`
	Genres         []string `json:"genres,omitempty"`
}

func toTitleWire(t record.Title) titleWire {
	return titleWire{
		ID: t.ID, Kind: t.Kind.String(), PrimaryName: t.PrimaryName,
		OriginalName: t.OriginalName, IsAdult: t.IsAdult, StartYear: t.StartYear,
		EndYear: t.EndYear, RuntimeMinutes: t.RuntimeMinutes, Genres: t.Genres,
	}
}

func fromTitleWire(w titleWire) (record.Title, error) {
	kind, err := record.ParseTitleKind(w.Kind)
	if err != nil {
		return record.Title{}, err
	}
	return record.Title{
		ID: w.ID, Kind: kind, PrimaryName: w.PrimaryName, OriginalName: w.OriginalName,
		IsAdult: w.IsAdult, StartYear: w.StartYear, EndYear: w.EndYear,
		RuntimeMinutes: w.RuntimeMinutes, Genres: w.Genres,
	}, nil
}

// TitleWriter builds the titles record file and its id index during ingest.
type TitleWriter struct {
	rw      *RecordWriter
	entries []IDOffset
}

// NewTitleWriter creates the titles.bin file under dir.
func NewTitleWriter(dir string) (*TitleWriter, error) {
	rw, err := CreateRecordFile(filepath.Join(dir, titlesFile), MagicTitles)
	if err != nil {
		return nil, err
	}
	return &TitleWriter{rw: rw}, nil
}

// Append writes one Title and records its offset for the id index.
func (w *TitleWriter) Append(t record.Title) error {
	offset, err := w.rw.Append(toTitleWire(t))
	if err != nil {
		return err
	}
	w.entries = append(w.entries, IDOffset{ID: t.ID, Offset: offset})
	return nil
}

// Close finishes the record file and writes the sorted id index.
func (w *TitleWriter) Close(dir string) error {
	if err := w.rw.Close(); err != nil {
		return err
	}
	return WriteIDIndex(filepath.Join(dir, titlesIdxFile), MagicIDIndex, w.entries)
}

// TitleStore is the read-only title record store, opened once per Index.
type TitleStore struct {
	rf  *RecordFile
	idx *IDIndex
}

// OpenTitleStore opens titles.bin and titles.idx under dir.
func OpenTitleStore(dir string) (*TitleStore, error) {
	rf, err := OpenRecordFile(filepath.Join(dir, titlesFile), MagicTitles)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIDIndex(filepath.Join(dir, titlesIdxFile), MagicIDIndex)
	if err != nil {
		rf.Close()
		return nil, err
	}
	return &TitleStore{rf: rf, idx: idx}, nil
}

// Get fetches the Title with the given id.
func (s *TitleStore) Get(id string) (record.Title, error) {
	offset, ok := s.idx.Lookup(id)
	if !ok {
		return record.Title{}, fmt.Errorf("title %s: %w", id, indexerr.ErrNotFound)
	}
	var w titleWire
	if err := s.rf.ReadAt(offset, &w); err != nil {
		return record.Title{}, err
	}
	return fromTitleWire(w)
}

// Iter calls fn for every Title in ingest order until fn returns false.
func (s *TitleStore) Iter(fn func(record.Title) bool) error {
	return s.rf.Iter(func() any { return new(titleWire) }, func(_ int64, v any) bool {
		w := v.(*titleWire)
		t, err := fromTitleWire(*w)
		if err != nil {
			return true
		}
		return fn(t)
	})
}

// Len returns the number of titles in the store.
func (s *TitleStore) Len() int { return s.idx.Len() }

// Close releases the store's file handles.
func (s *TitleStore) Close() error {
	return s.rf.Close()
}
