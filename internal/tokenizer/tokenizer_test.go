package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeProducesMultiset(t *testing.T) {
	tokens := Tokenize("aaa", 3)
	require.NotEmpty(t, tokens)
	var total int
	for _, tok := range tokens {
		total += tok.TF
	}
	require.Greater(t, total, 0)
}

func TestTokenizeIdempotentUnderNormalize(t *testing.T) {
	s := "Thor: Ragnarök!"
	a := Tokenize(s, 3)
	b := Tokenize(Normalize(s), 3)
	require.Equal(t, termSet(a), termSet(b))
}

func TestTokenizeEmptyString(t *testing.T) {
	require.Empty(t, Tokenize("", 3))
	require.Empty(t, Tokenize("   ", 3))
}

func TestTokenizeShortWordStillProducesGram(t *testing.T) {
	tokens := Tokenize("a", 3)
	require.Len(t, tokens, 1)
}

func termSet(tokens []Token) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		m[tok.Term] = tok.TF
	}
	return m
}
