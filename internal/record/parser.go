package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// nullSentinel is IMDb's encoding for an absent scalar value.
const nullSentinel = `\N`

// RejectedRow describes a single TSV row that failed to parse. Row is the
// 1-based line number, with the header on line 1 and the first data row on
// line 2, matching what an operator would see if they opened the file in a
// text editor.
type RejectedRow struct {
	Row    int
	Reason error
}

func (r RejectedRow) Error() string {
	return fmt.Sprintf("row %d: %v", r.Row, r.Reason)
}

// newTSVReader configures a csv.Reader for IMDb's tab-separated, header-led,
// unquoted dump format.
func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

// columnIndex builds a name -> column index map from a header row.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func field(row []string, idx map[string]int, name string) (string, bool) {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

func requiredField(row []string, idx map[string]int, name string) (string, error) {
	v, ok := field(row, idx, name)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required field %q", name)
	}
	return v, nil
}

func optionalString(row []string, idx map[string]int, name string) string {
	v, ok := field(row, idx, name)
	if !ok || v == nullSentinel {
		return ""
	}
	return v
}

func optionalUint16(row []string, idx map[string]int, name string) (*uint16, error) {
	v, ok := field(row, idx, name)
	if !ok || v == "" || v == nullSentinel {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	u := uint16(n)
	return &u, nil
}

func optionalUint32(row []string, idx map[string]int, name string) (*uint32, error) {
	v, ok := field(row, idx, name)
	if !ok || v == "" || v == nullSentinel {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	u := uint32(n)
	return &u, nil
}

func splitSet(s string) []string {
	if s == "" || s == nullSentinel {
		return nil
	}
	parts := strings.Split(s, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ParseTitles streams title.basics rows from r, invoking onRecord for each
// well-formed Title and onReject for each malformed row. A single malformed
// row never aborts the scan.
func ParseTitles(r io.Reader, onRecord func(Title), onReject func(RejectedRow)) error {
	cr := newTSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	idx := columnIndex(header)
	rowNum := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", rowNum, err)
		}
		rowNum++
		t, perr := parseTitleRow(row, idx)
		if perr != nil {
			onReject(RejectedRow{Row: rowNum, Reason: perr})
			continue
		}
		onRecord(t)
	}
}

func parseTitleRow(row []string, idx map[string]int) (Title, error) {
	id, err := requiredField(row, idx, "tconst")
	if err != nil {
		return Title{}, err
	}
	kindStr, err := requiredField(row, idx, "titleType")
	if err != nil {
		return Title{}, err
	}
	kind, err := ParseTitleKind(kindStr)
	if err != nil {
		return Title{}, err
	}
	startYear, err := optionalUint16(row, idx, "startYear")
	if err != nil {
		return Title{}, err
	}
	endYear, err := optionalUint16(row, idx, "endYear")
	if err != nil {
		return Title{}, err
	}
	runtime, err := optionalUint32(row, idx, "runtimeMinutes")
	if err != nil {
		return Title{}, err
	}
	isAdult := false
	if v := optionalString(row, idx, "isAdult"); v == "1" {
		isAdult = true
	}
	return Title{
		ID:             id,
		Kind:           kind,
		PrimaryName:    optionalString(row, idx, "primaryTitle"),
		OriginalName:   optionalString(row, idx, "originalTitle"),
		IsAdult:        isAdult,
		StartYear:      startYear,
		EndYear:        endYear,
		RuntimeMinutes: runtime,
		Genres:         splitSet(optionalString(row, idx, "genres")),
	}, nil
}

// ParseEpisodes streams title.episode rows.
func ParseEpisodes(r io.Reader, onRecord func(Episode), onReject func(RejectedRow)) error {
	cr := newTSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	idx := columnIndex(header)
	rowNum := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", rowNum, err)
		}
		rowNum++
		e, perr := parseEpisodeRow(row, idx)
		if perr != nil {
			onReject(RejectedRow{Row: rowNum, Reason: perr})
			continue
		}
		onRecord(e)
	}
}

func parseEpisodeRow(row []string, idx map[string]int) (Episode, error) {
	id, err := requiredField(row, idx, "tconst")
	if err != nil {
		return Episode{}, err
	}
	showID, err := requiredField(row, idx, "parentTconst")
	if err != nil {
		return Episode{}, err
	}
	if id == showID {
		return Episode{}, fmt.Errorf("episode id equals parent id %q", id)
	}
	season, err := optionalUint32(row, idx, "seasonNumber")
	if err != nil {
		return Episode{}, err
	}
	episode, err := optionalUint32(row, idx, "episodeNumber")
	if err != nil {
		return Episode{}, err
	}
	return Episode{ID: id, TVShowID: showID, Season: season, Episode: episode}, nil
}

// ParseAkas streams title.akas rows.
func ParseAkas(r io.Reader, onRecord func(AlternateName), onReject func(RejectedRow)) error {
	cr := newTSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	idx := columnIndex(header)
	rowNum := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", rowNum, err)
		}
		rowNum++
		a, perr := parseAkaRow(row, idx)
		if perr != nil {
			onReject(RejectedRow{Row: rowNum, Reason: perr})
			continue
		}
		onRecord(a)
	}
}

func parseAkaRow(row []string, idx map[string]int) (AlternateName, error) {
	id, err := requiredField(row, idx, "titleId")
	if err != nil {
		return AlternateName{}, err
	}
	name, err := requiredField(row, idx, "title")
	if err != nil {
		return AlternateName{}, err
	}
	isOriginal := optionalString(row, idx, "isOriginalTitle") == "1"
	return AlternateName{
		ID:         id,
		Name:       name,
		Region:     optionalString(row, idx, "region"),
		Language:   optionalString(row, idx, "language"),
		Attributes: splitSet(optionalString(row, idx, "attributes")),
		IsOriginal: isOriginal,
	}, nil
}

// ParseRatings streams title.ratings rows.
func ParseRatings(r io.Reader, onRecord func(Rating), onReject func(RejectedRow)) error {
	cr := newTSVReader(r)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	idx := columnIndex(header)
	rowNum := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", rowNum, err)
		}
		rowNum++
		rt, perr := parseRatingRow(row, idx)
		if perr != nil {
			onReject(RejectedRow{Row: rowNum, Reason: perr})
			continue
		}
		onRecord(rt)
	}
}

func parseRatingRow(row []string, idx map[string]int) (Rating, error) {
	id, err := requiredField(row, idx, "tconst")
	if err != nil {
		return Rating{}, err
	}
	ratingStr, err := requiredField(row, idx, "averageRating")
	if err != nil {
		return Rating{}, err
	}
	rating, err := strconv.ParseFloat(ratingStr, 64)
	if err != nil {
		return Rating{}, fmt.Errorf("field %q: %w", "averageRating", err)
	}
	if rating < 0 || rating > 10 {
		return Rating{}, fmt.Errorf("rating %v out of range [0, 10]", rating)
	}
	votes, err := optionalUint32(row, idx, "numVotes")
	if err != nil {
		return Rating{}, err
	}
	v := uint32(0)
	if votes != nil {
		v = *votes
	}
	return Rating{ID: id, Rating: rating, Votes: v}, nil
}
