package store

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/distributed-search/imdb-index/internal/indexerr"
)

// HeaderSize is the fixed size, in bytes, of every file header in the
// index directory: a 4-byte magic plus a uint32 format version.
const HeaderSize = 8

// FormatVersion is the current on-disk format version for every store and
// index file. Bumping it invalidates every file written by older builds.
const FormatVersion uint32 = 1

// Magic numbers, one per file kind, so that opening the wrong file (or a
// truncated one) fails fast with a clear error instead of garbage data.
const (
	MagicTitles   uint32 = 0x54495431 // "TIT1"
	MagicEpisodes uint32 = 0x45504931 // "EPI1"
	MagicAkas     uint32 = 0x414b4131 // "AKA1"
	MagicRatings  uint32 = 0x52415431 // "RAT1"
	MagicNames    uint32 = 0x4e414d31 // "NAM1"
	MagicIDIndex  uint32 = 0x49445831 // "IDX1"
	MagicTerms    uint32 = 0x5445524d // "TERM"
	MagicPostings uint32 = 0x504f5354 // "POST"
	MagicLengths  uint32 = 0x4c454e47 // "LENG"
)

// WriteHeader writes the fixed-size magic+version header to w.
func WriteHeader(w io.Writer, magic uint32) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads and validates the fixed-size header from r, returning an
// error if the magic doesn't match wantMagic or the version isn't
// understood by this build.
func ReadHeader(r io.Reader, wantMagic uint32) error {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint32(buf[4:8])
	if magic != wantMagic {
		return fmt.Errorf("%w: got magic %#x, want %#x", indexerr.ErrIndexFormat, magic, wantMagic)
	}
	if version != FormatVersion {
		return fmt.Errorf("%w: got version %d, want %d", indexerr.ErrIndexFormat, version, FormatVersion)
	}
	return nil
}
