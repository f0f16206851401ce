package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/distributed-search/imdb-index/internal/indexerr"
	"github.com/distributed-search/imdb-index/internal/record"
)

const (
	episodesFile       = "episodes.bin"
	episodesIdxFile    = "episodes.idx"
	episodesByShowFile = "episodes.byshow.idx"

	noSeasonEpisode uint32 = 0xFFFFFFFF
	showKeyRecSize         = idLen + 4 + 4 + 8
)

type episodeWire struct {
	ID       string  `json:"id"`
	TVShowID string  `json:"tvshow_id"`
	Season   *uint32 `json:"season,omitempty"`
	Episode  *uint32 `json:"episode,omitempty"`
}

func toEpisodeWire(e record.Episode) episodeWire {
	return episodeWire{ID: e.ID, TVShowID: e.TVShowID, Season: e.Season, Episode: e.Episode}
}

func fromEpisodeWire(w episodeWire) record.Episode {
	return record.Episode{ID: w.ID, TVShowID: w.TVShowID, Season: w.Season, Episode: w.Episode}
}

type showKey struct {
	tvshowID string
	season   uint32 // noSeasonEpisode sentinel means "not set"
	episode  uint32
	offset   int64
}

// EpisodeWriter builds episodes.bin, its id index, and the secondary
// (tvshow_id, season, episode) index during ingest.
type EpisodeWriter struct {
	rw       *RecordWriter
	entries  []IDOffset
	byShow   []showKey
}

// NewEpisodeWriter creates episodes.bin under dir.
func NewEpisodeWriter(dir string) (*EpisodeWriter, error) {
	rw, err := CreateRecordFile(filepath.Join(dir, episodesFile), MagicEpisodes)
	if err != nil {
		return nil, err
	}
	return &EpisodeWriter{rw: rw}, nil
}

// Append writes one Episode.
func (w *EpisodeWriter) Append(e record.Episode) error {
	offset, err := w.rw.Append(toEpisodeWire(e))
	if err != nil {
		return err
	}
	w.entries = append(w.entries, IDOffset{ID: e.ID, Offset: offset})
	season, episode := noSeasonEpisode, noSeasonEpisode
	if e.Season != nil {
		season = *e.Season
	}
	if e.Episode != nil {
		episode = *e.Episode
	}
	w.byShow = append(w.byShow, showKey{tvshowID: e.TVShowID, season: season, episode: episode, offset: offset})
	return nil
}

// Close finishes the record file and writes both indexes.
func (w *EpisodeWriter) Close(dir string) error {
	if err := w.rw.Close(); err != nil {
		return err
	}
	if err := WriteIDIndex(filepath.Join(dir, episodesIdxFile), MagicIDIndex, w.entries); err != nil {
		return err
	}
	return writeByShowIndex(filepath.Join(dir, episodesByShowFile), w.byShow)
}

func writeByShowIndex(path string, entries []showKey) error {
	sorted := make([]showKey, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].tvshowID != sorted[j].tvshowID {
			return sorted[i].tvshowID < sorted[j].tvshowID
		}
		if sorted[i].season != sorted[j].season {
			return sorted[i].season < sorted[j].season
		}
		return sorted[i].episode < sorted[j].episode
	})
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating byshow index %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := WriteHeader(w, MagicIDIndex); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(sorted)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}
	var rec [showKeyRecSize]byte
	for _, e := range sorted {
		if len(e.tvshowID) > idLen {
			return fmt.Errorf("tvshow id %q exceeds %d bytes", e.tvshowID, idLen)
		}
		for i := range rec[:idLen] {
			rec[i] = 0
		}
		copy(rec[:idLen], e.tvshowID)
		binary.LittleEndian.PutUint32(rec[idLen:idLen+4], e.season)
		binary.LittleEndian.PutUint32(rec[idLen+4:idLen+8], e.episode)
		binary.LittleEndian.PutUint64(rec[idLen+8:], uint64(e.offset))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// EpisodeStore is the read-only episode record store.
type EpisodeStore struct {
	rf     *RecordFile
	idx    *IDIndex
	byShow []showKey
}

// OpenEpisodeStore opens episodes.bin and both of its companion indexes.
func OpenEpisodeStore(dir string) (*EpisodeStore, error) {
	rf, err := OpenRecordFile(filepath.Join(dir, episodesFile), MagicEpisodes)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIDIndex(filepath.Join(dir, episodesIdxFile), MagicIDIndex)
	if err != nil {
		rf.Close()
		return nil, err
	}
	byShow, err := readByShowIndex(filepath.Join(dir, episodesByShowFile))
	if err != nil {
		rf.Close()
		return nil, err
	}
	return &EpisodeStore{rf: rf, idx: idx, byShow: byShow}, nil
}

func readByShowIndex(path string) ([]showKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening byshow index %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	if err := ReadHeader(r, MagicIDIndex); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	out := make([]showKey, count)
	var rec [showKeyRecSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, err
		}
		out[i] = showKey{
			tvshowID: strings.TrimRight(string(rec[:idLen]), "\x00"),
			season:   binary.LittleEndian.Uint32(rec[idLen : idLen+4]),
			episode:  binary.LittleEndian.Uint32(rec[idLen+4 : idLen+8]),
			offset:   int64(binary.LittleEndian.Uint64(rec[idLen+8:])),
		}
	}
	return out, nil
}

// Get fetches the Episode record with the given id.
func (s *EpisodeStore) Get(id string) (record.Episode, error) {
	offset, ok := s.idx.Lookup(id)
	if !ok {
		return record.Episode{}, fmt.Errorf("episode %s: %w", id, indexerr.ErrNotFound)
	}
	var w episodeWire
	if err := s.rf.ReadAt(offset, &w); err != nil {
		return record.Episode{}, err
	}
	return fromEpisodeWire(w), nil
}

// EpisodesOf lazily yields every episode whose tvshow_id matches seriesID,
// in (season, episode) order, invoking fn until it returns false.
func (s *EpisodeStore) EpisodesOf(seriesID string, fn func(record.Episode) bool) error {
	lo := sort.Search(len(s.byShow), func(i int) bool { return s.byShow[i].tvshowID >= seriesID })
	for i := lo; i < len(s.byShow) && s.byShow[i].tvshowID == seriesID; i++ {
		var w episodeWire
		if err := s.rf.ReadAt(s.byShow[i].offset, &w); err != nil {
			return err
		}
		if !fn(fromEpisodeWire(w)) {
			return nil
		}
	}
	return nil
}

// Episode resolves (seriesID, season, episode) to the episode's Title id
// via an exact-match binary search on the secondary index.
func (s *EpisodeStore) Episode(seriesID string, season, episode uint32) (record.Episode, error) {
	lo := sort.Search(len(s.byShow), func(i int) bool {
		k := s.byShow[i]
		if k.tvshowID != seriesID {
			return k.tvshowID > seriesID
		}
		if k.season != season {
			return k.season > season
		}
		return k.episode >= episode
	})
	if lo >= len(s.byShow) {
		return record.Episode{}, fmt.Errorf("%s S%02dE%02d: %w", seriesID, season, episode, indexerr.ErrNotFound)
	}
	k := s.byShow[lo]
	if k.tvshowID != seriesID || k.season != season || k.episode != episode {
		return record.Episode{}, fmt.Errorf("%s S%02dE%02d: %w", seriesID, season, episode, indexerr.ErrNotFound)
	}
	var w episodeWire
	if err := s.rf.ReadAt(k.offset, &w); err != nil {
		return record.Episode{}, err
	}
	return fromEpisodeWire(w), nil
}

// Close releases the store's file handle.
func (s *EpisodeStore) Close() error {
	return s.rf.Close()
}
