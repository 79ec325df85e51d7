package source

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestGeneratorConfig_Validate(t *testing.T) {
	valid := GeneratorConfig{NumDocs: 10, VocabSize: 50, MinLength: 5, MaxLength: 20}
	require.NoError(t, valid.Validate())

	tests := map[string]func(*GeneratorConfig){
		"no docs":       func(c *GeneratorConfig) { c.NumDocs = 0 },
		"no vocab":      func(c *GeneratorConfig) { c.VocabSize = 0 },
		"vocab too big": func(c *GeneratorConfig) { c.VocabSize = MaxVocabulary + 1 },
		"zero length":   func(c *GeneratorConfig) { c.MinLength = 0 },
		"min above max": func(c *GeneratorConfig) { c.MinLength = 30 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidInput)
		})
	}
}

func TestMaxVocabulary(t *testing.T) {
	// roots alone, root+suffix, prefix+root and prefix+root+suffix
	assert.Equal(t, 14+14*9+8*14+8*14*9, MaxVocabulary)
}

func TestGenerator(t *testing.T) {
	cfg := GeneratorConfig{NumDocs: 200, VocabSize: 100, MinLength: 3, MaxLength: 12}
	g, err := NewGenerator(cfg, newRand(42))
	require.NoError(t, err)

	vocab := g.Vocabulary()
	require.Len(t, vocab, 100)
	inVocab := make(map[string]bool, len(vocab))
	for _, w := range vocab {
		assert.False(t, inVocab[w], "duplicate word %q", w)
		inVocab[w] = true
	}

	docs := drain(t, g)
	require.Len(t, docs, 200)
	counts := make(map[string]int)
	for i, d := range docs {
		assert.Equal(t, docKey(i), d.Key)
		assert.True(t, d.Tokenized)
		assert.GreaterOrEqual(t, len(d.Tokens), 3)
		assert.LessOrEqual(t, len(d.Tokens), 12)
		for _, tok := range d.Tokens {
			assert.True(t, inVocab[tok], tok)
			counts[tok]++
		}
	}
	// the head of the vocabulary dominates
	assert.Greater(t, counts[vocab[0]], counts[vocab[len(vocab)-1]])
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{NumDocs: 20, VocabSize: 40, MinLength: 1, MaxLength: 8}
	render := func() string {
		g, err := NewGenerator(cfg, newRand(7))
		require.NoError(t, err)
		var sb strings.Builder
		for _, d := range drain(t, g) {
			sb.WriteString(d.Key + ":" + strings.Join(d.Tokens, ",") + ";")
		}
		return sb.String()
	}
	assert.Equal(t, render(), render())
}

func TestGenerator_FullVocabulary(t *testing.T) {
	g, err := NewGenerator(GeneratorConfig{NumDocs: 1, VocabSize: MaxVocabulary, MinLength: 1, MaxLength: 1}, newRand(1))
	require.NoError(t, err)
	assert.Len(t, g.Vocabulary(), MaxVocabulary)
	_, err = g.Next(context.Background())
	require.NoError(t, err)
}
