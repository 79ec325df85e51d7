package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_AssignsIDsInFirstSeenOrder(t *testing.T) {
	m := NewMemoryIndex()
	assert.Equal(t, uint32(0), m.AddDocument("long_key_1", []string{"content", "one"}))
	assert.Equal(t, uint32(1), m.AddDocument("long_key_2", []string{"content", "two"}))
	assert.Equal(t, uint32(0), m.AddDocument("long_key_1", []string{"again"}))

	id, ok := m.LookupID("long_key_2")
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)
	assert.Equal(t, 2, m.KeyCount())
	assert.Equal(t, uint32(3), m.DocCount())
}

func TestMemoryIndex_AccumulatesTermFrequency(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("doc1", []string{"hello", "hello", "world"})

	ix := m.Finalize(DefaultK1, DefaultB)
	assert.Equal(t, PostingList{{DocID: 0, Frequency: 2}}, ix.Postings["hello"])
	assert.Equal(t, PostingList{{DocID: 0, Frequency: 1}}, ix.Postings["world"])
}

func TestMemoryIndex_DuplicateKeyMergesPostingsAndOverwritesLength(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("doc1", []string{"first", "content"})
	m.AddDocument("doc1", []string{"second", "content", "here"})
	m.AddDocument("doc2", []string{"third", "content"})

	ix := m.Finalize(DefaultK1, DefaultB)
	assert.Equal(t, uint32(3), ix.NumDocs)
	assert.Len(t, ix.Keys, 2)
	assert.Len(t, ix.DocLengths, 2)
	assert.Equal(t, uint32(3), ix.DocLengths[0])
	assert.Equal(t, PostingList{{DocID: 0, Frequency: 2}, {DocID: 1, Frequency: 1}}, ix.Postings["content"])
	// (2 + 3 + 2) / 3
	assert.InDelta(t, 7.0/3.0, ix.AvgDocLength, 1e-12)
}

func TestMemoryIndex_AverageLengthIncludesEmptyDocuments(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("doc1", nil)
	m.AddDocument("doc2", []string{"hello"})

	ix := m.Finalize(DefaultK1, DefaultB)
	assert.Equal(t, 0.5, ix.AvgDocLength)
	assert.Equal(t, uint32(0), ix.DocLengths[0])
}

func TestMemoryIndex_FinalizeSortsPostingsAndReleasesTables(t *testing.T) {
	m := NewMemoryIndex()
	for i := 0; i < 50; i++ {
		m.AddDocument(fmt.Sprintf("doc-%d", i), []string{"shared", fmt.Sprintf("t%d", i%7)})
	}
	require.Greater(t, m.Size(), int64(0))

	ix := m.Finalize(2.0, 0.5)
	assert.Equal(t, 2.0, ix.K1)
	assert.Equal(t, 0.5, ix.B)
	for term, pl := range ix.Postings {
		assert.True(t, pl.Sorted(), "postings for %q not sorted", term)
	}
	assert.Equal(t, 50, ix.DocFreq("shared"))
	assert.Equal(t, 0, m.TermCount())
	assert.Equal(t, int64(0), m.Size())
}

func TestPostingList_Frequency(t *testing.T) {
	pl := PostingList{{DocID: 1, Frequency: 4}, {DocID: 5, Frequency: 2}, {DocID: 9, Frequency: 1}}
	assert.Equal(t, uint32(4), pl.Frequency(1))
	assert.Equal(t, uint32(2), pl.Frequency(5))
	assert.Equal(t, uint32(1), pl.Frequency(9))
	assert.Equal(t, uint32(0), pl.Frequency(0))
	assert.Equal(t, uint32(0), pl.Frequency(6))
	assert.Equal(t, uint32(0), pl.Frequency(100))
	assert.Equal(t, uint32(0), PostingList(nil).Frequency(0))
}

func TestIndex_StatsAndOrdering(t *testing.T) {
	m := NewMemoryIndex()
	m.AddDocument("b", []string{"zeta", "alpha"})
	m.AddDocument("a", []string{"alpha"})
	ix := m.Finalize(DefaultK1, DefaultB)

	stats := ix.Stats()
	assert.Equal(t, Stats{
		NumDocuments:     2,
		NumUniqueTerms:   2,
		AverageDocLength: 1.5,
		K1:               DefaultK1,
		B:                DefaultB,
		TotalPostings:    3,
	}, stats)

	entries := ix.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Term)
	assert.Equal(t, "zeta", entries[1].Term)
	assert.Equal(t, []KeyEntry{{0, "b"}, {1, "a"}}, ix.SortedKeys())
	assert.Equal(t, []DocLength{{0, 2}, {1, 1}}, ix.SortedDocLengths())
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	m := NewMemoryIndex()
	tokens := []string{"this", "is", "a", "benchmark", "document", "with", "several", "terms"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.AddDocument(fmt.Sprintf("doc-%d", i), tokens)
	}
}
