package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// idLen is the fixed-width slot an IMDb identifier is stored in, right
// padded with NUL bytes. Most tconsts are 9 characters ("ttNNNNNNN"), but
// IMDb has already issued 10-character ids as the 7-digit counter ran out
// ("ttNNNNNNNN"); idLen leaves headroom for that growth without changing
// the on-disk format again.
const idLen = 12

// idIndexRecordSize is the on-disk size of one (id, offset) pair.
const idIndexRecordSize = idLen + 8

// IDOffset pairs a fixed-width id with its byte offset into the companion
// record file.
type IDOffset struct {
	ID     string
	Offset int64
}

// WriteIDIndex writes a sorted-by-id array of (id, offset) pairs to path,
// enabling O(log n) lookups by binary search. Entries need not be
// pre-sorted; WriteIDIndex sorts a copy before writing.
func WriteIDIndex(path string, magic uint32, entries []IDOffset) error {
	sorted := make([]IDOffset, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating id index %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := WriteHeader(w, magic); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(sorted)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}
	var rec [idIndexRecordSize]byte
	for _, e := range sorted {
		if len(e.ID) > idLen {
			return fmt.Errorf("id %q exceeds %d bytes", e.ID, idLen)
		}
		for i := range rec[:idLen] {
			rec[i] = 0
		}
		copy(rec[:idLen], e.ID)
		binary.LittleEndian.PutUint64(rec[idLen:], uint64(e.Offset))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// IDIndex is a read-only handle on a sorted (id, offset) index file, held
// entirely in memory after open (these files are small relative to the
// record stores they index: 20 bytes per entry).
type IDIndex struct {
	entries []IDOffset
}

// OpenIDIndex reads and validates the id index file at path.
func OpenIDIndex(path string, magic uint32) (*IDIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening id index %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	if err := ReadHeader(r, magic); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("reading id index count: %w", err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	entries := make([]IDOffset, count)
	var rec [idIndexRecordSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("reading id index entry %d: %w", i, err)
		}
		id := strings.TrimRight(string(rec[:idLen]), "\x00")
		offset := int64(binary.LittleEndian.Uint64(rec[idLen:]))
		entries[i] = IDOffset{ID: id, Offset: offset}
	}
	return &IDIndex{entries: entries}, nil
}

// Lookup returns the offset for id, or false if id is not present.
func (ix *IDIndex) Lookup(id string) (int64, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].ID >= id })
	if i >= len(ix.entries) || ix.entries[i].ID != id {
		return 0, false
	}
	return ix.entries[i].Offset, true
}

// Len returns the number of entries in the index.
func (ix *IDIndex) Len() int { return len(ix.entries) }
