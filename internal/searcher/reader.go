// Package searcher loads BM25 index artifacts and answers ranked queries
// against them.
package searcher

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// Result is one ranked hit, identified by the key it was indexed under.
type Result struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

type Option func(*Reader)

// WithTokenizer sets the tokenizer applied to query strings. It must match
// the one the index was built with.
func WithTokenizer(fn tokenizer.Func) Option {
	return func(r *Reader) {
		r.tokenize = fn
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

type loaded struct {
	ix     *index.Index
	params ranker.Params
	info   segment.Info
}

// Reader answers queries against a loaded index. Once loaded it is safe for
// concurrent use; a later Load swaps the whole index in one step.
type Reader struct {
	tokenize tokenizer.Func
	logger   *slog.Logger
	state    atomic.Pointer[loaded]
}

func NewReader(opts ...Option) *Reader {
	r := &Reader{
		tokenize: tokenizer.Tokenize,
		logger:   slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the index file at path. On failure the previously loaded
// index, if any, stays in place.
func (r *Reader) Load(path string) error {
	start := time.Now()
	ix, info, err := segment.ReadFile(path)
	if err != nil {
		r.logger.Error("index load failed", "path", path, "error", err)
		return fmt.Errorf("loading index %s: %w", path, err)
	}
	r.swap(ix, info, start)
	return nil
}

// LoadFrom reads an index from src. The whole stream must be a single index.
func (r *Reader) LoadFrom(src io.Reader) error {
	start := time.Now()
	ix, info, err := segment.Read(src)
	if err != nil {
		r.logger.Error("index load failed", "error", err)
		return fmt.Errorf("loading index: %w", err)
	}
	r.swap(ix, info, start)
	return nil
}

func (r *Reader) swap(ix *index.Index, info segment.Info, start time.Time) {
	r.state.Store(&loaded{ix: ix, params: ranker.ParamsFor(ix), info: info})
	r.logger.Info("index loaded",
		"path", info.Path,
		"docs", ix.NumDocs,
		"terms", len(ix.Postings),
		"bytes", info.Bytes,
		"checksum", info.Checksum,
		"duration", time.Since(start),
	)
}

func (r *Reader) current() (*loaded, error) {
	st := r.state.Load()
	if st == nil {
		return nil, apperrors.InvalidState("index has not been loaded")
	}
	return st, nil
}

// Loaded reports whether an index is available.
func (r *Reader) Loaded() bool {
	return r.state.Load() != nil
}

// ScoreDocument returns the BM25 score of docID for query. Unknown doc IDs
// score zero.
func (r *Reader) ScoreDocument(query string, docID uint32) (float64, error) {
	st, err := r.current()
	if err != nil {
		return 0, err
	}
	plan := parser.Parse(query, r.tokenize)
	terms := ranker.Lookup(st.ix, plan.Terms)
	return ranker.Score(terms, st.params, docID, st.docLength), nil
}

// Search returns at most topK documents ranked by descending score. Ties are
// ordered by ascending doc ID. Documents scoring exactly zero are omitted.
func (r *Reader) Search(query string, topK int) ([]Result, error) {
	st, err := r.current()
	if err != nil {
		return nil, err
	}
	return st.search(parser.Parse(query, r.tokenize).Terms, topK), nil
}

// SearchTokens ranks against pre-tokenized query terms, for indexes built
// with a custom tokenizer.
func (r *Reader) SearchTokens(tokens []string, topK int) ([]Result, error) {
	st, err := r.current()
	if err != nil {
		return nil, err
	}
	return st.search(tokenizer.Distinct(tokens), topK), nil
}

func (st *loaded) search(terms []string, topK int) []Result {
	if topK <= 0 {
		return []Result{}
	}
	ranked := ranker.Rank(ranker.Lookup(st.ix, terms), st.params, st.docLength, topK)
	results := make([]Result, len(ranked))
	for i, sd := range ranked {
		results[i] = Result{Key: st.ix.Keys[sd.DocID], Score: sd.Score}
	}
	return results
}

func (st *loaded) docLength(docID uint32) (uint32, bool) {
	l, ok := st.ix.DocLengths[docID]
	return l, ok
}

func (r *Reader) Stats() (index.Stats, error) {
	st, err := r.current()
	if err != nil {
		return index.Stats{}, err
	}
	return st.ix.Stats(), nil
}

// Checksum is the hex blake3 digest of the loaded artifact.
func (r *Reader) Checksum() (string, error) {
	st, err := r.current()
	if err != nil {
		return "", err
	}
	return st.info.Checksum, nil
}

// Key resolves a doc ID to the key it was added under.
func (r *Reader) Key(docID uint32) (string, bool, error) {
	st, err := r.current()
	if err != nil {
		return "", false, err
	}
	key, ok := st.ix.Keys[docID]
	return key, ok, nil
}
