package index

import (
	"maps"
	"slices"
)

// MemoryIndex accumulates per-document statistics as documents arrive. Only
// term counts are retained; the caller's raw text never reaches it.
//
// MemoryIndex is not safe for concurrent use.
type MemoryIndex struct {
	keyToID     map[string]uint32
	idToKey     []string
	postings    map[string]map[uint32]uint32
	docLengths  map[uint32]uint32
	totalLength uint64
	docCount    uint32
	size        int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		keyToID:    make(map[string]uint32),
		postings:   make(map[string]map[uint32]uint32),
		docLengths: make(map[uint32]uint32),
	}
}

// LookupID returns the DocID already assigned to key.
func (m *MemoryIndex) LookupID(key string) (uint32, bool) {
	id, ok := m.keyToID[key]
	return id, ok
}

// AddDocument records one document contribution under key and returns its
// DocID. A key seen before keeps its DocID: the new length replaces the old
// one in the length table, term counts are added to the existing postings,
// and the document counter still advances.
func (m *MemoryIndex) AddDocument(key string, tokens []string) uint32 {
	docID, ok := m.keyToID[key]
	if !ok {
		docID = uint32(len(m.idToKey))
		m.keyToID[key] = docID
		m.idToKey = append(m.idToKey, key)
		m.size += int64(len(key) + 16)
	}

	m.docLengths[docID] = uint32(len(tokens))
	m.totalLength += uint64(len(tokens))
	m.docCount++

	for _, term := range tokens {
		docs, exists := m.postings[term]
		if !exists {
			docs = make(map[uint32]uint32)
			m.postings[term] = docs
			m.size += int64(len(term) + 48)
		}
		if _, seen := docs[docID]; !seen {
			m.size += 8
		}
		docs[docID]++
	}
	return docID
}

// Finalize converts the accumulated counts into an immutable Index and
// releases the temporary postings table.
func (m *MemoryIndex) Finalize(k1, b float64) *Index {
	ix := &Index{
		K1:         k1,
		B:          b,
		NumDocs:    m.docCount,
		Keys:       make(map[uint32]string, len(m.idToKey)),
		DocLengths: m.docLengths,
		Postings:   make(map[string]PostingList, len(m.postings)),
	}
	if m.docCount > 0 {
		ix.AvgDocLength = float64(m.totalLength) / float64(m.docCount)
	}
	for id, key := range m.idToKey {
		ix.Keys[uint32(id)] = key
	}
	for term, docs := range m.postings {
		pl := make(PostingList, 0, len(docs))
		for _, docID := range slices.Sorted(maps.Keys(docs)) {
			pl = append(pl, Posting{DocID: docID, Frequency: docs[docID]})
		}
		ix.Postings[term] = pl
	}

	m.postings = make(map[string]map[uint32]uint32)
	m.docLengths = make(map[uint32]uint32)
	m.size = 0
	return ix
}

// DocLength returns the recorded length for docID.
func (m *MemoryIndex) DocLength(docID uint32) (uint32, bool) {
	n, ok := m.docLengths[docID]
	return n, ok
}

// Size is a rough estimate of the bytes held by the temporary tables.
func (m *MemoryIndex) Size() int64 {
	return m.size
}

func (m *MemoryIndex) DocCount() uint32 {
	return m.docCount
}

func (m *MemoryIndex) KeyCount() int {
	return len(m.idToKey)
}

func (m *MemoryIndex) TotalLength() uint64 {
	return m.totalLength
}

func (m *MemoryIndex) TermCount() int {
	return len(m.postings)
}
