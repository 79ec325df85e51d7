// Package ingestion defines the document and event types that flow from
// document sources into the index builder, and the event announcing a
// finished index.
package ingestion

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
)

// Document is one unit of input. When Tokenized is set Tokens are indexed
// verbatim and Text is ignored.
type Document struct {
	Key       string
	Text      string
	Tokens    []string
	Tokenized bool
}

// Source yields documents one at a time and returns io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (Document, error)
	Close() error
}

// DocumentEvent is the Kafka payload accepted by the document-ingest topic.
// A "tokens" array, even an empty one, marks the document as pre-tokenized;
// a null or missing "tokens" means Text is tokenized at build time.
type DocumentEvent struct {
	Key    string   `json:"key"`
	Text   string   `json:"text,omitempty"`
	Tokens []string `json:"tokens"`
}

// IndexCompleteEvent announces a saved index artifact.
type IndexCompleteEvent struct {
	Path     string      `json:"path"`
	Checksum string      `json:"checksum"`
	Bytes    int64       `json:"bytes"`
	Stats    index.Stats `json:"stats"`
	BuiltAt  time.Time   `json:"built_at"`
}
