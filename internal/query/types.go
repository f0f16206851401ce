// Package query implements the query engine pipeline described in
// spec.md §4.8: tokenize, score, re-rank, filter, resolve and dedupe by
// title, trim to size.
package query

import (
	"github.com/distributed-search/imdb-index/internal/record"
	"github.com/distributed-search/imdb-index/internal/scorer"
	"github.com/distributed-search/imdb-index/internal/similarity"
)

// Query is one search request.
type Query struct {
	Text       string
	Year       *uint16
	KindFilter *record.TitleKind
	Season     *uint32
	Episode    *uint32
	TVShowID   string

	Size             int
	Scorer           scorer.Kind
	Similarity       similarity.Kind
	NGramSize        int
	MinTokenOverlap  float64
	RerankTop        int
	SimilarityWeight float64
}

// Components breaks a SearchResult's final score down into the pieces
// that produced it — carried even though the offline MRR harness that
// consumes it lives outside this repository (spec.md's evaluation
// harness is external; the breakdown is still useful for local
// diagnostics and tests).
type Components struct {
	Relevance  float64
	Similarity float64
	Final      float64
}

// SearchResult is one ranked hit.
type SearchResult struct {
	TitleID     string
	NameEntryID uint32
	Score       float64
	Components  Components
}

// DefaultQuery returns a Query with every option defaulted per spec.md
// §6's configuration table.
func DefaultQuery(text string) Query {
	return Query{
		Text:             text,
		Size:             30,
		Scorer:           scorer.BM25,
		Similarity:       similarity.Levenshtein,
		NGramSize:        3,
		MinTokenOverlap:  scorer.DefaultMinOverlap,
		RerankTop:        50,
		SimilarityWeight: 0.5,
	}
}
