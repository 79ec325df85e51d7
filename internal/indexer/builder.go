// Package indexer builds BM25 index artifacts. A Builder accepts documents
// one at a time, finalizes them once into sorted postings, and saves the
// result in the segment wire format.
package indexer

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// DuplicateKeyPolicy decides what happens when a key is added twice.
type DuplicateKeyPolicy int

const (
	// DuplicateKeysMerge reuses the key's DocID: term counts accumulate, the
	// latest length replaces the earlier one and the document count still
	// grows by one per call.
	DuplicateKeysMerge DuplicateKeyPolicy = iota
	// DuplicateKeysReject fails the second add with errors.ErrDuplicateKey.
	DuplicateKeysReject
)

// ParseDuplicateKeyPolicy maps the config spelling onto a policy.
func ParseDuplicateKeyPolicy(s string) (DuplicateKeyPolicy, error) {
	switch s {
	case "", "merge":
		return DuplicateKeysMerge, nil
	case "reject":
		return DuplicateKeysReject, nil
	default:
		return 0, fmt.Errorf("%w: unknown duplicate key policy %q", apperrors.ErrInvalidInput, s)
	}
}

type Option func(*Builder)

// WithParams sets the BM25 k1 and b parameters stored in the artifact.
func WithParams(k1, b float64) Option {
	return func(bd *Builder) {
		bd.k1 = k1
		bd.b = b
	}
}

// WithTokenizer replaces the default tokenizer used by Add.
func WithTokenizer(fn tokenizer.Func) Option {
	return func(bd *Builder) {
		bd.tokenize = fn
	}
}

func WithDuplicateKeyPolicy(p DuplicateKeyPolicy) Option {
	return func(bd *Builder) {
		bd.duplicates = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(bd *Builder) {
		bd.logger = l
	}
}

// Builder is a one-shot BM25 index builder. It is OPEN until Build
// succeeds and BUILT afterwards; there is no way back.
//
// Builder is not safe for concurrent use.
type Builder struct {
	k1         float64
	b          float64
	tokenize   tokenizer.Func
	duplicates DuplicateKeyPolicy
	logger     *slog.Logger

	memIndex *index.MemoryIndex
	built    *index.Index
	writer   *segment.Writer
}

func NewBuilder(opts ...Option) *Builder {
	bd := &Builder{
		k1:       index.DefaultK1,
		b:        index.DefaultB,
		tokenize: tokenizer.Tokenize,
		logger:   slog.Default().With("component", "indexer"),
		memIndex: index.NewMemoryIndex(),
		writer:   segment.NewWriter(),
	}
	for _, opt := range opts {
		opt(bd)
	}
	return bd
}

// Add tokenizes text and indexes it under key. The text itself is not
// retained.
func (bd *Builder) Add(key string, text string) error {
	if bd.built != nil {
		return apperrors.InvalidState("cannot add documents after build")
	}
	return bd.AddTokenized(key, bd.tokenize(text))
}

// AddTokenized indexes an already tokenized document under key. Tokens are
// used verbatim; an empty slice adds a document of length zero. The key and
// every token must be valid UTF-8.
func (bd *Builder) AddTokenized(key string, tokens []string) error {
	if bd.built != nil {
		return apperrors.InvalidState("cannot add documents after build")
	}
	if bd.memIndex.DocCount() == math.MaxUint32 {
		return fmt.Errorf("%w: document count exceeds format limit", apperrors.ErrInvalidInput)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key %q is not valid UTF-8", apperrors.ErrInvalidInput, key)
	}
	for _, tok := range tokens {
		if !utf8.ValidString(tok) {
			return fmt.Errorf("%w: token %q in %q is not valid UTF-8", apperrors.ErrInvalidInput, tok, key)
		}
	}
	if bd.duplicates == DuplicateKeysReject {
		if _, exists := bd.memIndex.LookupID(key); exists {
			return fmt.Errorf("%w: %q", apperrors.ErrDuplicateKey, key)
		}
	}
	docID := bd.memIndex.AddDocument(key, tokens)
	bd.logger.Debug("document added",
		"key", key,
		"doc_id", docID,
		"token_count", len(tokens),
		"mem_size", bd.memIndex.Size(),
	)
	return nil
}

// Build finalizes the index. It fails without changing state when no
// documents were added, and fails for good when called a second time.
func (bd *Builder) Build() error {
	if bd.built != nil {
		return apperrors.InvalidState("build has already been called")
	}
	if bd.memIndex.DocCount() == 0 {
		return apperrors.InvalidState("cannot build index with no documents")
	}
	start := time.Now()
	bd.built = bd.memIndex.Finalize(bd.k1, bd.b)
	bd.memIndex = nil

	stats := bd.built.Stats()
	bd.logger.Info("index built",
		"docs", stats.NumDocuments,
		"terms", stats.NumUniqueTerms,
		"postings", stats.TotalPostings,
		"avgdl", stats.AverageDocLength,
		"duration", time.Since(start),
	)
	return nil
}

// Save writes the built index to path, replacing any existing file
// atomically.
func (bd *Builder) Save(path string) (segment.Info, error) {
	if bd.built == nil {
		return segment.Info{}, apperrors.InvalidState("must call build before save")
	}
	info, err := bd.writer.Write(path, bd.built)
	if err != nil {
		return segment.Info{}, fmt.Errorf("saving index: %w", err)
	}
	bd.logger.Info("index saved",
		"path", info.Path,
		"bytes", info.Bytes,
		"checksum", info.Checksum,
	)
	return info, nil
}

// WriteTo encodes the built index to w.
func (bd *Builder) WriteTo(w io.Writer) (int64, error) {
	if bd.built == nil {
		return 0, apperrors.InvalidState("must call build before writing")
	}
	return segment.Encode(w, bd.built)
}

func (bd *Builder) Stats() (index.Stats, error) {
	if bd.built == nil {
		return index.Stats{}, apperrors.InvalidState("must call build first")
	}
	return bd.built.Stats(), nil
}

// Index returns the finalized index. Callers must treat it as read-only.
func (bd *Builder) Index() (*index.Index, error) {
	if bd.built == nil {
		return nil, apperrors.InvalidState("must call build first")
	}
	return bd.built, nil
}

// Built reports whether Build has succeeded.
func (bd *Builder) Built() bool {
	return bd.built != nil
}

// DocCount is the number of add calls accepted so far.
func (bd *Builder) DocCount() int {
	if bd.built != nil {
		return int(bd.built.NumDocs)
	}
	return int(bd.memIndex.DocCount())
}
