// Package tokenizer provides the n-gram text tokenization shared by index
// build and query time. It lower-cases input, applies NFKC normalization,
// splits on non-alphanumeric boundaries, and emits sentinel-padded
// character n-grams. Any divergence between build-time and query-time
// tokenization would silently break scoring, so both paths call the same
// Tokenize function.
package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentinel pads the start and end of each word before n-grams are cut from
// it, so that a 3-gram like "$ca" carries prefix context distinguishing it
// from the "ca" found in the middle of a longer word.
const Sentinel = '\x01'

// DefaultSize is the n-gram width used when no ngram.size override is
// configured.
const DefaultSize = 3

// Token is a single normalized n-gram and the number of times it occurs
// within the tokenized text (term frequency), keyed by its text so that
// Tokenize can return a multiset rather than one entry per occurrence.
type Token struct {
	Term string
	TF   int
}

// nfkcFold normalizes s to NFKC and strips combining marks left behind by a
// decompose/recompose round trip, matching the "NFKC-folded" requirement.
var nfkcFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, norm.NFKC)

// Normalize lower-cases and NFKC-folds s without splitting it into n-grams.
// Words builds on it, and it is exported so callers can normalize text
// without cutting n-grams.
func Normalize(s string) string {
	folded, _, err := transform.String(nfkcFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Words splits s into normalized, whitespace-collapsed words on runs of
// non-alphanumeric runes. Used by Tokenize as the first stage of n-gram
// extraction.
func Words(s string) []string {
	normalized := Normalize(s)
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize normalizes text and emits the multiset of character n-grams of
// width n (n < 1 falls back to DefaultSize). Each word is padded with Sentinel on
// both ends before n-grams are cut, so short words still produce at least
// one n-gram and prefix/suffix context is preserved.
func Tokenize(text string, n int) []Token {
	if n < 1 {
		n = DefaultSize
	}
	words := Words(text)
	counts := make(map[string]int)
	order := make([]string, 0, len(words))
	for _, word := range words {
		for _, gram := range ngrams(word, n) {
			if _, seen := counts[gram]; !seen {
				order = append(order, gram)
			}
			counts[gram]++
		}
	}
	tokens := make([]Token, 0, len(order))
	for _, term := range order {
		tokens = append(tokens, Token{Term: term, TF: counts[term]})
	}
	return tokens
}

// ngrams returns the sentinel-padded character n-grams of word. Runes, not
// bytes, are used as the grain of a gram so multi-byte UTF-8 sequences are
// never split.
func ngrams(word string, n int) []string {
	if word == "" {
		return nil
	}
	padded := make([]rune, 0, len(word)+2)
	padded = append(padded, Sentinel)
	padded = append(padded, []rune(word)...)
	padded = append(padded, Sentinel)

	if len(padded) <= n {
		return []string{string(padded)}
	}
	grams := make([]string, 0, len(padded)-n+1)
	for i := 0; i+n <= len(padded); i++ {
		grams = append(grams, string(padded[i:i+n]))
	}
	return grams
}
