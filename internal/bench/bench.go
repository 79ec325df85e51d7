// Package bench measures build, load and query performance of the index
// over a document source.
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

type Config struct {
	K1 float64
	B  float64
	// Queries is the number of sampled queries, capped by the number of
	// distinct tokens in the corpus.
	Queries int
	TopK    int
	// IndexPath is where the index is written. When empty a temporary file
	// is used and removed afterwards.
	IndexPath string
	// Keep leaves the index at IndexPath after the run.
	Keep   bool
	Rand   *rand.Rand
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.K1 == 0 {
		c.K1 = 1.5
	}
	if c.B == 0 {
		c.B = 0.75
	}
	if c.Queries == 0 {
		c.Queries = 10
	}
	if c.TopK == 0 {
		c.TopK = 10
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.Logger == nil {
		c.Logger = slog.Default().With("component", "bench")
	}
	return c
}

type Dataset struct {
	Documents    int     `json:"documents"`
	TotalTokens  int     `json:"total_tokens"`
	UniqueTokens int     `json:"unique_tokens"`
	AvgLength    float64 `json:"avg_length"`
}

type BuildResult struct {
	ReadTime  time.Duration `json:"read_time"`
	BuildTime time.Duration `json:"build_time"`
	SaveTime  time.Duration `json:"save_time"`
	Bytes     int64         `json:"bytes"`
	Checksum  string        `json:"checksum"`
	Stats     index.Stats   `json:"stats"`
}

// Total is the time spent adding, building and saving.
func (b BuildResult) Total() time.Duration {
	return b.BuildTime + b.SaveTime
}

type LoadResult struct {
	Duration time.Duration `json:"duration"`
	Stats    index.Stats   `json:"stats"`
}

type QueryResult struct {
	Query    string           `json:"query"`
	Duration time.Duration    `json:"duration"`
	Hits     int              `json:"hits"`
	Top      *searcher.Result `json:"top,omitempty"`
}

type Report struct {
	IndexPath string        `json:"index_path,omitempty"`
	Dataset   Dataset       `json:"dataset"`
	Build     BuildResult   `json:"build"`
	Load      LoadResult    `json:"load"`
	Queries   []QueryResult `json:"queries"`
}

// Run indexes every document from src, saves and reloads the index, then
// times cfg.Queries sampled queries against it. src is not closed.
func Run(ctx context.Context, src ingestion.Source, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger

	path := cfg.IndexPath
	cleanup := !cfg.Keep
	if path == "" {
		f, err := os.CreateTemp("", "bm25-bench-*.bm25")
		if err != nil {
			return nil, fmt.Errorf("creating temporary index file: %w", err)
		}
		path = f.Name()
		f.Close()
		cleanup = true
	}
	if cleanup {
		defer func() {
			os.Remove(path)
			os.Remove(path + ".lock")
		}()
	}

	report := &Report{}
	if !cleanup {
		report.IndexPath = path
	}

	bd := indexer.NewBuilder(indexer.WithParams(cfg.K1, cfg.B), indexer.WithLogger(log))
	sink := &countingSink{builder: bd, unique: make(map[string]struct{})}

	log.Info("building index")
	feedStart := time.Now()
	if _, err := pipeline.Feed(ctx, src, sink, pipeline.Options{Logger: log}); err != nil {
		return nil, err
	}
	if sink.docs == 0 {
		return nil, fmt.Errorf("%w: no documents to benchmark", apperrors.ErrInvalidInput)
	}
	report.Build.ReadTime = time.Since(feedStart) - sink.addTime

	buildStart := time.Now()
	if err := bd.Build(); err != nil {
		return nil, err
	}
	report.Build.BuildTime = sink.addTime + time.Since(buildStart)

	saveStart := time.Now()
	info, err := bd.Save(path)
	if err != nil {
		return nil, err
	}
	report.Build.SaveTime = time.Since(saveStart)
	report.Build.Bytes = info.Bytes
	report.Build.Checksum = info.Checksum
	report.Build.Stats, _ = bd.Stats()

	report.Dataset = Dataset{
		Documents:    sink.docs,
		TotalTokens:  sink.tokens,
		UniqueTokens: len(sink.unique),
		AvgLength:    float64(sink.tokens) / float64(sink.docs),
	}
	log.Info("index built",
		"documents", sink.docs,
		"build_time", report.Build.BuildTime,
		"save_time", report.Build.SaveTime,
		"bytes", info.Bytes,
	)

	reader := searcher.NewReader(searcher.WithLogger(log))
	loadStart := time.Now()
	if err := reader.Load(path); err != nil {
		return nil, err
	}
	report.Load.Duration = time.Since(loadStart)
	report.Load.Stats, _ = reader.Stats()

	vocab := make([]string, 0, len(sink.unique))
	for tok := range sink.unique {
		vocab = append(vocab, tok)
	}
	slices.Sort(vocab)
	queries := SampleQueries(vocab, cfg.Queries, cfg.Rand)
	log.Info("running queries", "count", len(queries), "top_k", cfg.TopK)

	report.Queries = make([]QueryResult, 0, len(queries))
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		results, err := reader.SearchTokens(q, cfg.TopK)
		elapsed := time.Since(start)
		if err != nil {
			return nil, err
		}
		qr := QueryResult{Query: strings.Join(q, " "), Duration: elapsed, Hits: len(results)}
		if len(results) > 0 {
			top := results[0]
			qr.Top = &top
		}
		report.Queries = append(report.Queries, qr)
	}
	return report, nil
}

// SampleQueries draws up to n queries of one to three distinct tokens from
// vocab. vocab must be free of duplicates and in a stable order for the
// draw to be reproducible.
func SampleQueries(vocab []string, n int, rng *rand.Rand) [][]string {
	n = min(n, len(vocab))
	queries := make([][]string, 0, n)
	for range n {
		length := 1 + rng.IntN(min(3, len(vocab)))
		picked := make([]string, 0, length)
		for _, i := range rng.Perm(len(vocab))[:length] {
			picked = append(picked, vocab[i])
		}
		queries = append(queries, picked)
	}
	return queries
}

// countingSink gathers corpus statistics and the time spent inside the
// builder while documents stream through it.
type countingSink struct {
	builder *indexer.Builder
	docs    int
	tokens  int
	unique  map[string]struct{}
	addTime time.Duration
}

func (s *countingSink) Add(key, text string) error {
	return s.AddTokenized(key, tokenizer.Tokenize(text))
}

func (s *countingSink) AddTokenized(key string, tokens []string) error {
	start := time.Now()
	err := s.builder.AddTokenized(key, tokens)
	s.addTime += time.Since(start)
	if err != nil {
		return err
	}
	s.docs++
	s.tokens += len(tokens)
	for _, t := range tokens {
		s.unique[t] = struct{}{}
	}
	return nil
}

// Summary holds the derived throughput figures of a report.
type Summary struct {
	BuildDocsPerSec float64       `json:"build_docs_per_sec"`
	BytesPerDoc     float64       `json:"bytes_per_doc"`
	LoadDocsPerSec  float64       `json:"load_docs_per_sec"`
	QueryAvg        time.Duration `json:"query_avg"`
	QueryMin        time.Duration `json:"query_min"`
	QueryMax        time.Duration `json:"query_max"`
	QueriesPerSec   float64       `json:"queries_per_sec"`
}

func (r *Report) Summary() Summary {
	var s Summary
	docs := float64(r.Dataset.Documents)
	s.BuildDocsPerSec = perSecond(docs, r.Build.Total())
	s.LoadDocsPerSec = perSecond(docs, r.Load.Duration)
	if docs > 0 {
		s.BytesPerDoc = float64(r.Build.Bytes) / docs
	}
	if len(r.Queries) == 0 {
		return s
	}
	var total time.Duration
	s.QueryMin = r.Queries[0].Duration
	for _, q := range r.Queries {
		total += q.Duration
		s.QueryMin = min(s.QueryMin, q.Duration)
		s.QueryMax = max(s.QueryMax, q.Duration)
	}
	s.QueryAvg = total / time.Duration(len(r.Queries))
	s.QueriesPerSec = perSecond(1, s.QueryAvg)
	return s
}

func perSecond(n float64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return n / d.Seconds()
}

// Print writes a human readable report to w.
func (r *Report) Print(w io.Writer) {
	s := r.Summary()
	mb := float64(r.Build.Bytes) / (1 << 20)
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "BENCHMARK SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\nDataset:\n")
	fmt.Fprintf(w, "  Documents:          %d\n", r.Dataset.Documents)
	fmt.Fprintf(w, "  Total tokens:       %d\n", r.Dataset.TotalTokens)
	fmt.Fprintf(w, "  Unique tokens:      %d\n", r.Dataset.UniqueTokens)
	fmt.Fprintf(w, "  Average doc length: %.2f\n", r.Dataset.AvgLength)

	fmt.Fprintf(w, "\nBuild Performance:\n")
	fmt.Fprintf(w, "  Read time:    %s\n", r.Build.ReadTime)
	fmt.Fprintf(w, "  Build time:   %s\n", r.Build.BuildTime)
	fmt.Fprintf(w, "  Save time:    %s\n", r.Build.SaveTime)
	fmt.Fprintf(w, "  Throughput:   %.2f docs/second\n", s.BuildDocsPerSec)
	fmt.Fprintf(w, "  Output size:  %d bytes (%.2f MB)\n", r.Build.Bytes, mb)
	fmt.Fprintf(w, "  Size per doc: %.2f bytes\n", s.BytesPerDoc)
	fmt.Fprintf(w, "  Unique terms: %d\n", r.Build.Stats.NumUniqueTerms)
	fmt.Fprintf(w, "  Postings:     %d\n", r.Build.Stats.TotalPostings)

	fmt.Fprintf(w, "\nLoad Performance:\n")
	fmt.Fprintf(w, "  Time:       %s\n", r.Load.Duration)
	fmt.Fprintf(w, "  Throughput: %.2f docs/second\n", s.LoadDocsPerSec)

	if len(r.Queries) > 0 {
		fmt.Fprintf(w, "\nQueries:\n")
		for i, q := range r.Queries {
			fmt.Fprintf(w, "  %2d. %-40q %10s  %d hits", i+1, q.Query, q.Duration, q.Hits)
			if q.Top != nil {
				fmt.Fprintf(w, "  top %s (%.4f)", q.Top.Key, q.Top.Score)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "\nQuery Performance:\n")
		fmt.Fprintf(w, "  Queries run:  %d\n", len(r.Queries))
		fmt.Fprintf(w, "  Average time: %s\n", s.QueryAvg)
		fmt.Fprintf(w, "  Min time:     %s\n", s.QueryMin)
		fmt.Fprintf(w, "  Max time:     %s\n", s.QueryMax)
		fmt.Fprintf(w, "  Throughput:   %.2f queries/second\n", s.QueriesPerSec)
	}
	if r.IndexPath != "" {
		fmt.Fprintf(w, "\nIndex saved to: %s\n", r.IndexPath)
	}
	fmt.Fprintln(w, rule)
}
