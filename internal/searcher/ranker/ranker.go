// Package ranker implements Okapi BM25 scoring over finalized posting lists.
package ranker

import (
	"cmp"
	"math"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
)

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Params carries the corpus statistics BM25 needs.
type Params struct {
	K1           float64
	B            float64
	AvgDocLength float64
	NumDocs      uint32
}

func ParamsFor(ix *index.Index) Params {
	return Params{
		K1:           ix.K1,
		B:            ix.B,
		AvgDocLength: ix.AvgDocLength,
		NumDocs:      ix.NumDocs,
	}
}

// TermPostings pairs a query term with its posting list. Terms are scored in
// slice order so sums are reproducible.
type TermPostings struct {
	Term     string
	Postings index.PostingList
}

// Lookup collects the posting lists of the given terms, skipping terms that
// are not indexed.
func Lookup(ix *index.Index, terms []string) []TermPostings {
	out := make([]TermPostings, 0, len(terms))
	for _, term := range terms {
		if pl, ok := ix.Postings[term]; ok {
			out = append(out, TermPostings{Term: term, Postings: pl})
		}
	}
	return out
}

// Score computes the BM25 score of one document. Documents without a length
// entry score zero.
func Score(terms []TermPostings, params Params, docID uint32, docLength func(uint32) (uint32, bool)) float64 {
	dl, ok := docLength(docID)
	if !ok {
		return 0
	}
	var score float64
	for _, tp := range terms {
		tf := tp.Postings.Frequency(docID)
		if tf == 0 {
			continue
		}
		score += IDF(params.NumDocs, len(tp.Postings)) *
			TFNorm(float64(tf), float64(dl), params)
	}
	return score
}

// Rank scores every document that appears in at least one posting list and
// returns them by descending score, ties broken by ascending DocID. Zero
// scores are dropped. A limit <= 0 returns every match.
func Rank(terms []TermPostings, params Params, docLength func(uint32) (uint32, bool), limit int) []ScoredDoc {
	seen := make(map[uint32]struct{})
	for _, tp := range terms {
		for _, p := range tp.Postings {
			seen[p.DocID] = struct{}{}
		}
	}

	result := make([]ScoredDoc, 0, len(seen))
	for docID := range seen {
		score := Score(terms, params, docID, docLength)
		if score == 0 {
			continue
		}
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	slices.SortFunc(result, func(a, b ScoredDoc) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.DocID, b.DocID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// IDF is the smoothed inverse document frequency
// ln((N - df + 0.5) / (df + 0.5) + 1), which stays non-negative for any
// df in [0, N].
func IDF(totalDocs uint32, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// TFNorm is the saturated, length-normalised term frequency component.
func TFNorm(termFreq float64, docLength float64, params Params) float64 {
	if params.AvgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / params.AvgDocLength
	denominator := termFreq + params.K1*(1-params.B+params.B*lengthRatio)
	return (termFreq * (params.K1 + 1)) / denominator
}
