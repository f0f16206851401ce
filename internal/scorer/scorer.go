// Package scorer implements candidate generation and the four relevance
// scoring formulas selectable per query (spec.md §4.6): okapi-bm25,
// tf-idf, jaccard, and qgram. Formulas are grounded on the teacher's
// internal/searcher/ranker package, which already computed Okapi BM25
// over posting lists; this package generalizes that to a dispatchable
// set of formulas and adds the minimum-overlap candidate cutoff.
package scorer

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/distributed-search/imdb-index/internal/invindex"
	"github.com/distributed-search/imdb-index/internal/tokenizer"
)

// Kind selects a relevance scoring formula.
type Kind int

const (
	BM25 Kind = iota
	TFIDF
	Jaccard
	QGram
)

// ParseKind maps a config/query string to a Kind, defaulting to BM25.
func ParseKind(s string) Kind {
	switch s {
	case "tf-idf", "tfidf":
		return TFIDF
	case "jaccard":
		return Jaccard
	case "qgram":
		return QGram
	default:
		return BM25
	}
}

// String returns the canonical lowercase name of k, for logging and
// metric labels.
func (k Kind) String() string {
	switch k {
	case TFIDF:
		return "tfidf"
	case Jaccard:
		return "jaccard"
	case QGram:
		return "qgram"
	default:
		return "bm25"
	}
}

// BM25 tuning constants (spec.md §4.6).
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// DefaultMinOverlap is the default minimum-overlap cutoff `t` applied to
// candidate generation.
const DefaultMinOverlap = 0.3

// Candidate is one scored name_entry_id.
type Candidate struct {
	ID        uint32
	Relevance float64
}

// matchedTerm is one query token's hit against the index: its document
// frequency (for IDF) and the per-document term frequency of matched
// documents.
type matchedTerm struct {
	term     string
	docFreq  int
	postings []invindex.Posting
}

// GenerateAndScore tokenizes query, fetches postings for every distinct
// token in parallel (spec.md §4.6: "union posting lists in parallel"),
// applies the minimum-overlap cutoff, and scores the surviving
// candidates under kind. minOverlap is `t` in spec.md §4.6; values
// outside [0, 1] are clamped.
func GenerateAndScore(reader *invindex.Reader, query string, ngramSize int, kind Kind, minOverlap float64) ([]Candidate, error) {
	if minOverlap < 0 {
		minOverlap = 0
	}
	if minOverlap > 1 {
		minOverlap = 1
	}

	tokens := tokenizer.Tokenize(query, ngramSize)
	if len(tokens) == 0 {
		return nil, nil
	}

	matches := make([]matchedTerm, len(tokens))
	g := new(errgroup.Group)
	for i, tok := range tokens {
		i, tok := i, tok
		g.Go(func() error {
			postings, err := reader.Postings(tok.Term)
			if err != nil {
				return err
			}
			matches[i] = matchedTerm{term: tok.Term, docFreq: reader.DocFreq(tok.Term), postings: postings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type docHit struct {
		matchedTerms int
		tf           map[string]int
	}
	hits := make(map[uint32]*docHit)
	for _, m := range matches {
		for _, p := range m.postings {
			h, ok := hits[p.ID]
			if !ok {
				h = &docHit{tf: make(map[string]int)}
				hits[p.ID] = h
			}
			h.matchedTerms++
			h.tf[m.term] = p.TF
		}
	}

	queryDistinct := len(tokens)
	queryTF := make(map[string]int, len(tokens))
	for _, t := range tokens {
		queryTF[t.Term] = t.TF
	}
	minMatches := int(math.Ceil(float64(queryDistinct) * minOverlap))
	if minMatches < 1 {
		minMatches = 1
	}

	numDocs := float64(reader.NumDocs())
	avgDocLen := reader.AvgDocLen()

	out := make([]Candidate, 0, len(hits))
	for id, h := range hits {
		if h.matchedTerms < minMatches {
			continue
		}
		var rel float64
		switch kind {
		case BM25:
			rel = scoreBM25(matches, h.tf, id, reader, numDocs, avgDocLen)
		case TFIDF:
			rel = scoreTFIDF(matches, h.tf, numDocs)
		case Jaccard:
			rel = scoreJaccard(queryTF, h.tf, reader.DocLen(id))
		case QGram:
			rel = scoreQGram(queryTF, h.tf, reader.DocLen(id))
		}
		out = append(out, Candidate{ID: id, Relevance: rel})
	}
	return out, nil
}

func idf(numDocs float64, docFreq int) float64 {
	df := float64(docFreq)
	return math.Log((numDocs-df+0.5)/(df+0.5) + 1)
}

func scoreBM25(matches []matchedTerm, docTF map[string]int, id uint32, reader *invindex.Reader, numDocs, avgDocLen float64) float64 {
	docLen := float64(reader.DocLen(id))
	var score float64
	for _, m := range matches {
		tf, ok := docTF[m.term]
		if !ok {
			continue
		}
		tfF := float64(tf)
		denom := tfF + bm25K1*(1-bm25B+bm25B*safeRatio(docLen, avgDocLen))
		if denom == 0 {
			continue
		}
		score += idf(numDocs, m.docFreq) * (tfF * (bm25K1 + 1)) / denom
	}
	return score
}

func safeRatio(docLen, avgDocLen float64) float64 {
	if avgDocLen == 0 {
		return 0
	}
	return docLen / avgDocLen
}

func scoreTFIDF(matches []matchedTerm, docTF map[string]int, numDocs float64) float64 {
	var score float64
	for _, m := range matches {
		tf, ok := docTF[m.term]
		if !ok {
			continue
		}
		score += float64(tf) * idf(numDocs, m.docFreq)
	}
	return score
}

// scoreJaccard computes |Q ∩ D| / |Q ∪ D| over token sets. D's set size
// is approximated by the document's total token count (lengths.bin):
// for the short strings NameEntries hold, repeated n-grams within one
// name are rare, so this tracks the true distinct-token-set size closely
// without requiring a fourth on-disk array just for set cardinality.
func scoreJaccard(queryTF, docTF map[string]int, docLen int) float64 {
	inter := len(docTF)
	qSize := len(queryTF)
	dSize := docLen
	if dSize < len(docTF) {
		dSize = len(docTF)
	}
	union := qSize + dSize - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// scoreQGram computes 1 − |Q △ D| / (|Q| + |D|), equivalent to the
// Sørensen–Dice coefficient 2|Q∩D| / (|Q|+|D|) (spec.md §4.6).
func scoreQGram(queryTF, docTF map[string]int, docLen int) float64 {
	inter := len(docTF)
	qSize := len(queryTF)
	dSize := docLen
	if dSize < len(docTF) {
		dSize = len(docTF)
	}
	denom := qSize + dSize
	if denom == 0 {
		return 0
	}
	return 2 * float64(inter) / float64(denom)
}
