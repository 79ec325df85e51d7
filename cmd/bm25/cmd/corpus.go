package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/source"
)

// writeCorpus streams src to path in the benchmark JSON format, replacing
// path only once the whole corpus is written. Text documents are tokenized
// with the default tokenizer. A key seen twice keeps its first document.
func writeCorpus(ctx context.Context, path string, pretty bool, src ingestion.Source) (source.CorpusStats, error) {
	pf, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return source.CorpusStats{}, fmt.Errorf("creating %s: %w", path, err)
	}
	defer pf.Cleanup()

	var w io.Writer = pf
	var zw *zstd.Encoder
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		zw, err = zstd.NewWriter(pf)
		if err != nil {
			return source.CorpusStats{}, fmt.Errorf("creating zstd stream: %w", err)
		}
		w = zw
	}

	cw := source.NewCorpusWriter(w, pretty)
	seen := make(map[string]struct{})
	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return source.CorpusStats{}, err
		}
		if _, dup := seen[doc.Key]; dup {
			slog.Warn("skipping repeated key", "key", doc.Key)
			continue
		}
		seen[doc.Key] = struct{}{}
		tokens := doc.Tokens
		if !doc.Tokenized {
			tokens = tokenizer.Tokenize(doc.Text)
		}
		if err := cw.Write(doc.Key, tokens); err != nil {
			return source.CorpusStats{}, err
		}
	}
	if err := cw.Close(); err != nil {
		return source.CorpusStats{}, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return source.CorpusStats{}, fmt.Errorf("finishing zstd stream: %w", err)
		}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return source.CorpusStats{}, fmt.Errorf("replacing %s: %w", path, err)
	}
	return cw.Stats(), nil
}
