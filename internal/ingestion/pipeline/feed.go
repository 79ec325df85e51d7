// Package pipeline moves documents from a source into an index builder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// Sink accepts documents. *indexer.Builder satisfies it.
type Sink interface {
	Add(key, text string) error
	AddTokenized(key string, tokens []string) error
}

// Summary counts what Feed did with each document it read.
type Summary struct {
	Read     int           `json:"read"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

type Options struct {
	// Indexed, when set, is incremented once per accepted document.
	Indexed prometheus.Counter
	// ProgressEvery logs a progress line after this many documents. Zero
	// disables progress logging.
	ProgressEvery int
	Logger        *slog.Logger
}

// Feed drains src into sink. Documents failing validation and keys
// rejected as duplicates are skipped with a warning; any other error from
// src or sink stops the feed. Feed does not close src.
func Feed(ctx context.Context, src ingestion.Source, sink Sink, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "pipeline")
	}
	start := time.Now()
	var sum Summary
	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sum.Duration = time.Since(start)
			return sum, fmt.Errorf("reading document %d: %w", sum.Read+1, err)
		}
		sum.Read++

		if err := validator.ValidateDocument(doc); err != nil {
			logger.Warn("skipping invalid document", "key", doc.Key, "error", err)
			sum.Skipped++
			continue
		}
		if doc.Tokenized {
			err = sink.AddTokenized(doc.Key, doc.Tokens)
		} else {
			err = sink.Add(doc.Key, doc.Text)
		}
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			logger.Warn("skipping duplicate key", "key", doc.Key)
			sum.Skipped++
			continue
		}
		if err != nil {
			sum.Duration = time.Since(start)
			return sum, fmt.Errorf("adding document %q: %w", doc.Key, err)
		}
		sum.Indexed++
		if opts.Indexed != nil {
			opts.Indexed.Inc()
		}
		if opts.ProgressEvery > 0 && sum.Read%opts.ProgressEvery == 0 {
			logger.Info("ingest progress", "read", sum.Read, "indexed", sum.Indexed, "skipped", sum.Skipped)
		}
	}
	sum.Duration = time.Since(start)
	logger.Info("ingest complete",
		"read", sum.Read,
		"indexed", sum.Indexed,
		"skipped", sum.Skipped,
		"duration", sum.Duration,
	)
	return sum, nil
}
