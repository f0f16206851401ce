package store

import (
	"fmt"
	"path/filepath"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/record"
)

const (
	ratingsFile    = "ratings.bin"
	ratingsIdxFile = "ratings.idx"
)

type ratingWire struct {
	ID     string  `json:"id"`
	Rating float64 `json:"rating"`
	Votes  uint32  `json:"votes"`
}

func toRatingWire(r record.Rating) ratingWire {
	return ratingWire{ID: r.ID, Rating: r.Rating, Votes: r.Votes}
}

func fromRatingWire(w ratingWire) record.Rating {
	return record.Rating{ID: w.ID, Rating: w.Rating, Votes: w.Votes}
}

// RatingWriter builds ratings.bin and its id index during ingest.
type RatingWriter struct {
	rw      *RecordWriter
	entries []IDOffset
}

// NewRatingWriter creates ratings.bin under dir.
func NewRatingWriter(dir string) (*RatingWriter, error) {
	rw, err := CreateRecordFile(filepath.Join(dir, ratingsFile), MagicRatings)
	if err != nil {
		return nil, err
	}
	return &RatingWriter{rw: rw}, nil
}

// Append writes one Rating.
func (w *RatingWriter) Append(r record.Rating) error {
	offset, err := w.rw.Append(toRatingWire(r))
	if err != nil {
		return err
	}
	w.entries = append(w.entries, IDOffset{ID: r.ID, Offset: offset})
	return nil
}

// Close finishes the record file and writes the sorted id index.
func (w *RatingWriter) Close(dir string) error {
	if err := w.rw.Close(); err != nil {
		return err
	}
	return WriteIDIndex(filepath.Join(dir, ratingsIdxFile), MagicIDIndex, w.entries)
}

// RatingStore is the read-only rating record store.
type RatingStore struct {
	rf  *RecordFile
	idx *IDIndex
}

// OpenRatingStore opens ratings.bin and ratings.idx under dir.
func OpenRatingStore(dir string) (*RatingStore, error) {
	rf, err := OpenRecordFile(filepath.Join(dir, ratingsFile), MagicRatings)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIDIndex(filepath.Join(dir, ratingsIdxFile), MagicIDIndex)
	if err != nil {
		rf.Close()
		return nil, err
	}
	return &RatingStore{rf: rf, idx: idx}, nil
}

// Get fetches the Rating for the given title id.
func (s *RatingStore) Get(id string) (record.Rating, error) {
	offset, ok := s.idx.Lookup(id)
	if !ok {
		return record.Rating{}, fmt.Errorf("rating %s: %w", id, indexerr.ErrNotFound)
	}
	var w ratingWire
	if err := s.rf.ReadAt(offset, &w); err != nil {
		return record.Rating{}, err
	}
	return fromRatingWire(w), nil
}

// Close releases the store's file handle.
func (s *RatingStore) Close() error {
	return s.rf.Close()
}
