// Package publisher announces built indexes on Kafka and pushes documents
// onto the ingest topic for a later build to consume.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
)

// Producer is the write side of a Kafka topic. *kafka.Producer satisfies it.
type Producer interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// defaultBatchSize bounds the number of documents per Kafka write.
const defaultBatchSize = 500

type Publisher struct {
	producer  Producer
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

func New(producer Producer) *Publisher {
	return &Publisher{
		producer:  producer,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    slog.Default().With("component", "publisher"),
	}
}

// IndexComplete publishes an IndexCompleteEvent keyed by the artifact
// checksum.
func (p *Publisher) IndexComplete(ctx context.Context, info segment.Info, stats index.Stats) error {
	event := ingestion.IndexCompleteEvent{
		Path:     info.Path,
		Checksum: info.Checksum,
		Bytes:    info.Bytes,
		Stats:    stats,
		BuiltAt:  p.now().UTC(),
	}
	if err := p.producer.Publish(ctx, kafka.Event{Key: info.Checksum, Value: event}); err != nil {
		return fmt.Errorf("publishing index-complete event: %w", err)
	}
	p.logger.Info("index-complete published", "path", info.Path, "checksum", info.Checksum)
	return nil
}

// Documents drains src onto the ingest topic in batches, keyed by document
// key, and returns how many documents were sent.
func (p *Publisher) Documents(ctx context.Context, src ingestion.Source) (int, error) {
	batch := make([]kafka.Event, 0, p.batchSize)
	sent := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.producer.Publish(ctx, batch...); err != nil {
			return fmt.Errorf("publishing documents %d-%d: %w", sent+1, sent+len(batch), err)
		}
		sent += len(batch)
		batch = batch[:0]
		p.logger.Debug("document batch published", "total", sent)
		return nil
	}

	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sent, fmt.Errorf("reading document: %w", err)
		}
		event := ingestion.DocumentEvent{Key: doc.Key, Text: doc.Text}
		if doc.Tokenized {
			event = ingestion.DocumentEvent{Key: doc.Key, Tokens: doc.Tokens}
			if event.Tokens == nil {
				event.Tokens = []string{}
			}
		}
		batch = append(batch, kafka.Event{Key: doc.Key, Value: event})
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return sent, err
			}
		}
	}
	if err := flush(); err != nil {
		return sent, err
	}
	p.logger.Info("documents published", "count", sent)
	return sent, nil
}
