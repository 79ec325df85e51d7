package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
)

func lengths(m map[uint32]uint32) func(uint32) (uint32, bool) {
	return func(id uint32) (uint32, bool) {
		l, ok := m[id]
		return l, ok
	}
}

func TestIDF_NonNegative(t *testing.T) {
	for _, n := range []uint32{1, 2, 10, 1000} {
		for df := 0; df <= int(n); df++ {
			idf := IDF(n, df)
			assert.GreaterOrEqual(t, idf, 0.0, "N=%d df=%d", n, df)
			assert.False(t, math.IsNaN(idf))
		}
	}
}

func TestIDF_DecreasesWithDocFreq(t *testing.T) {
	assert.Greater(t, IDF(100, 1), IDF(100, 10))
	assert.Greater(t, IDF(100, 10), IDF(100, 90))
	assert.InDelta(t, math.Log(2.5/1.5+1), IDF(3, 1), 1e-12)
}

func TestTFNorm(t *testing.T) {
	p := Params{K1: 1.5, B: 0.75, AvgDocLength: 4}

	// average length: tf(k1+1)/(tf+k1)
	assert.InDelta(t, 2.5/2.5, TFNorm(1, 4, p), 1e-12)
	// saturates towards k1+1
	assert.Less(t, TFNorm(1000, 4, p), p.K1+1)
	// longer documents are penalised
	assert.Greater(t, TFNorm(2, 2, p), TFNorm(2, 8, p))
	// b=0 disables length normalisation
	flat := Params{K1: 1.5, B: 0, AvgDocLength: 4}
	assert.Equal(t, TFNorm(2, 2, flat), TFNorm(2, 8, flat))

	assert.Zero(t, TFNorm(1, 1, Params{K1: 1.5, B: 0.75}))
}

func TestRank(t *testing.T) {
	ix := &index.Index{
		K1: 1.5, B: 0.75, AvgDocLength: 3, NumDocs: 3,
		DocLengths: map[uint32]uint32{0: 3, 1: 4, 2: 3},
		Postings: map[string]index.PostingList{
			"machine":  {{DocID: 0, Frequency: 1}, {DocID: 2, Frequency: 1}},
			"learning": {{DocID: 0, Frequency: 1}, {DocID: 1, Frequency: 1}},
		},
	}
	terms := Lookup(ix, []string{"machine", "learning", "absent"})
	require.Len(t, terms, 2)

	got := Rank(terms, ParamsFor(ix), lengths(ix.DocLengths), 0)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(0), got[0].DocID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	assert.Len(t, Rank(terms, ParamsFor(ix), lengths(ix.DocLengths), 2), 2)
	assert.Empty(t, Rank(nil, ParamsFor(ix), lengths(ix.DocLengths), 10))
}

func TestRank_TiesBreakByDocID(t *testing.T) {
	ix := &index.Index{
		K1: 1.5, B: 0.75, AvgDocLength: 1, NumDocs: 4,
		DocLengths: map[uint32]uint32{0: 1, 1: 1, 2: 1, 3: 1},
		Postings: map[string]index.PostingList{
			"same": {{DocID: 1, Frequency: 1}, {DocID: 2, Frequency: 1}, {DocID: 3, Frequency: 1}},
		},
	}
	for i := 0; i < 10; i++ {
		got := Rank(Lookup(ix, []string{"same"}), ParamsFor(ix), lengths(ix.DocLengths), 0)
		require.Len(t, got, 3)
		assert.Equal(t, []uint32{1, 2, 3}, []uint32{got[0].DocID, got[1].DocID, got[2].DocID})
	}
}

func TestScore_UnknownDocument(t *testing.T) {
	ix := &index.Index{
		K1: 1.5, B: 0.75, AvgDocLength: 1, NumDocs: 1,
		DocLengths: map[uint32]uint32{0: 1},
		Postings:   map[string]index.PostingList{"x": {{DocID: 0, Frequency: 1}}},
	}
	terms := Lookup(ix, []string{"x"})
	assert.Greater(t, Score(terms, ParamsFor(ix), 0, lengths(ix.DocLengths)), 0.0)
	assert.Zero(t, Score(terms, ParamsFor(ix), 7, lengths(ix.DocLengths)))
}
