package index

import "sort"

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     uint32 `json:"doc_id"`
	Frequency uint32 `json:"freq"`
}

// PostingList is kept sorted ascending by DocID.
type PostingList []Posting

// Frequency returns the term frequency for docID using binary search, or 0
// when the document does not contain the term.
func (pl PostingList) Frequency(docID uint32) uint32 {
	i := sort.Search(len(pl), func(i int) bool {
		return pl[i].DocID >= docID
	})
	if i < len(pl) && pl[i].DocID == docID {
		return pl[i].Frequency
	}
	return 0
}

// Sorted reports whether the list is strictly ascending by DocID.
func (pl PostingList) Sorted() bool {
	for i := 1; i < len(pl); i++ {
		if pl[i-1].DocID >= pl[i].DocID {
			return false
		}
	}
	return true
}

type TermEntry struct {
	Term     string
	Postings PostingList
}

type DocLength struct {
	DocID  uint32
	Length uint32
}

type KeyEntry struct {
	DocID uint32
	Key   string
}
