package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercases", "Machine Learning", []string{"machine", "learning"}},
		{"collapses whitespace", "  deep \t learning\n\nnets ", []string{"deep", "learning", "nets"}},
		{"keeps punctuation", "Hello, World!", []string{"hello,", "world!"}},
		{"unicode", "ÉCOLE Straße", []string{"école", "straße"}},
		{"empty", "", []string{}},
		{"only spaces", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Distinct([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{"x"}, Distinct([]string{"x"}))
	assert.Empty(t, Distinct(nil))
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. BM25 ranking considers term frequency, document length normalization,
        and inverse document frequency to produce relevance scores. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text)
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	base := "bm25 ranking inverted index posting list "
	for _, size := range []int{10, 100, 1000, 10000} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkDistinct(b *testing.B) {
	terms := Tokenize(sampleTexts["long"])
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Distinct(terms)
	}
}
