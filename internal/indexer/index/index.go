// Package index holds the in-memory BM25 tables: the accumulating
// MemoryIndex used while documents arrive, and the finalized, immutable
// Index shared by the builder, the wire codec and the reader.
package index

import (
	"cmp"
	"maps"
	"slices"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Index is a finalized BM25 index. It must not be mutated once built or
// loaded.
type Index struct {
	K1           float64
	B            float64
	AvgDocLength float64
	NumDocs      uint32

	Keys       map[uint32]string
	DocLengths map[uint32]uint32
	Postings   map[string]PostingList
}

// Stats summarises an index for reporting.
type Stats struct {
	NumDocuments     int     `json:"num_documents"`
	NumUniqueTerms   int     `json:"num_unique_terms"`
	AverageDocLength float64 `json:"average_document_length"`
	K1               float64 `json:"k1"`
	B                float64 `json:"b"`
	TotalPostings    int     `json:"total_postings"`
}

func (ix *Index) Stats() Stats {
	total := 0
	for _, pl := range ix.Postings {
		total += len(pl)
	}
	return Stats{
		NumDocuments:     int(ix.NumDocs),
		NumUniqueTerms:   len(ix.Postings),
		AverageDocLength: ix.AvgDocLength,
		K1:               ix.K1,
		B:                ix.B,
		TotalPostings:    total,
	}
}

// DocFreq is the number of distinct documents containing term.
func (ix *Index) DocFreq(term string) int {
	return len(ix.Postings[term])
}

// SortedKeys returns the key table ascending by DocID.
func (ix *Index) SortedKeys() []KeyEntry {
	out := make([]KeyEntry, 0, len(ix.Keys))
	for _, id := range slices.Sorted(maps.Keys(ix.Keys)) {
		out = append(out, KeyEntry{DocID: id, Key: ix.Keys[id]})
	}
	return out
}

// SortedDocLengths returns the length table ascending by DocID.
func (ix *Index) SortedDocLengths() []DocLength {
	out := make([]DocLength, 0, len(ix.DocLengths))
	for _, id := range slices.Sorted(maps.Keys(ix.DocLengths)) {
		out = append(out, DocLength{DocID: id, Length: ix.DocLengths[id]})
	}
	return out
}

// Entries returns every posting list ordered by term bytes.
func (ix *Index) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.Postings))
	for term, pl := range ix.Postings {
		entries = append(entries, TermEntry{Term: term, Postings: pl})
	}
	slices.SortFunc(entries, func(a, b TermEntry) int {
		return cmp.Compare(a.Term, b.Term)
	})
	return entries
}
