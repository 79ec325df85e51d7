package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

var (
	wordPrefixes = []string{"pre", "post", "anti", "pro", "sub", "super", "trans", "inter"}
	wordRoots    = []string{"test", "data", "info", "code", "file", "word", "text", "doc",
		"system", "process", "service", "model", "user", "event"}
	wordSuffixes = []string{"ing", "ed", "s", "er", "tion", "ment", "ness", "ly", "ize"}
)

// MaxVocabulary is the number of distinct words the generator can form.
var MaxVocabulary = countDistinctWords()

func countDistinctWords() int {
	seen := make(map[string]struct{})
	for _, r := range wordRoots {
		seen[r] = struct{}{}
		for _, s := range wordSuffixes {
			seen[r+s] = struct{}{}
		}
		for _, p := range wordPrefixes {
			seen[p+r] = struct{}{}
			for _, s := range wordSuffixes {
				seen[p+r+s] = struct{}{}
			}
		}
	}
	return len(seen)
}

type GeneratorConfig struct {
	NumDocs   int
	VocabSize int
	MinLength int
	MaxLength int
}

func (c GeneratorConfig) Validate() error {
	switch {
	case c.NumDocs <= 0:
		return fmt.Errorf("%w: number of documents must be positive", apperrors.ErrInvalidInput)
	case c.VocabSize <= 0:
		return fmt.Errorf("%w: vocabulary size must be positive", apperrors.ErrInvalidInput)
	case c.VocabSize > MaxVocabulary:
		return fmt.Errorf("%w: vocabulary size is limited to %d words", apperrors.ErrInvalidInput, MaxVocabulary)
	case c.MinLength <= 0 || c.MaxLength <= 0:
		return fmt.Errorf("%w: document lengths must be positive", apperrors.ErrInvalidInput)
	case c.MinLength > c.MaxLength:
		return fmt.Errorf("%w: minimum length cannot be greater than maximum length", apperrors.ErrInvalidInput)
	}
	return nil
}

// Generator produces a synthetic pre-tokenized corpus. Word choice follows
// a Pareto(1.5) distribution over the vocabulary so early words dominate,
// roughly like natural text. Identical rng state yields identical output.
type Generator struct {
	cfg   GeneratorConfig
	rng   *rand.Rand
	vocab []string
	next  int
}

func NewGenerator(cfg GeneratorConfig, rng *rand.Rand) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg, rng: rng}
	g.vocab = g.vocabulary(cfg.VocabSize)
	return g, nil
}

func (g *Generator) pick(words []string) string {
	return words[g.rng.IntN(len(words))]
}

// vocabulary draws distinct words, keeping first-drawn order.
func (g *Generator) vocabulary(size int) []string {
	seen := make(map[string]struct{}, size)
	vocab := make([]string, 0, size)
	for len(vocab) < size {
		var word string
		switch {
		case g.rng.Float64() < 0.3:
			word = g.pick(wordRoots)
		case g.rng.Float64() < 0.5:
			word = g.pick(wordPrefixes) + g.pick(wordRoots)
		case g.rng.Float64() < 0.7:
			word = g.pick(wordRoots) + g.pick(wordSuffixes)
		default:
			word = g.pick(wordPrefixes) + g.pick(wordRoots) + g.pick(wordSuffixes)
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		vocab = append(vocab, word)
	}
	return vocab
}

// pareto returns a Pareto(alpha) variate, always >= 1.
func (g *Generator) pareto(alpha float64) float64 {
	u := 1 - g.rng.Float64()
	return 1 / math.Pow(u, 1/alpha)
}

func (g *Generator) Vocabulary() []string {
	return g.vocab
}

func (g *Generator) Next(ctx context.Context) (ingestion.Document, error) {
	if g.next >= g.cfg.NumDocs {
		return ingestion.Document{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return ingestion.Document{}, err
	}
	length := g.cfg.MinLength + g.rng.IntN(g.cfg.MaxLength-g.cfg.MinLength+1)
	tokens := make([]string, length)
	for i := range tokens {
		idx := int(g.pareto(1.5) - 1)
		if idx < len(g.vocab) {
			tokens[i] = g.vocab[idx]
		} else {
			tokens[i] = g.pick(g.vocab)
		}
	}
	doc := ingestion.Document{Key: docKey(g.next), Tokens: tokens, Tokenized: true}
	g.next++
	return doc, nil
}

func (g *Generator) Close() error { return nil }
