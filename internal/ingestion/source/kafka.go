package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
)

// Fetcher is the consumer side of a Kafka topic.
type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka drains DocumentEvent messages until MaxDocuments have been read or
// the topic has been idle for IdleTimeout. Offsets are committed only by
// Commit, so a build that fails before saving re-reads the same messages.
type Kafka struct {
	fetcher      Fetcher
	idleTimeout  time.Duration
	maxDocuments int
	count        int
	pending      map[int]kafka.Message
	logger       *slog.Logger
}

func NewKafka(f Fetcher, idleTimeout time.Duration, maxDocuments int) *Kafka {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Second
	}
	return &Kafka{
		fetcher:      f,
		idleTimeout:  idleTimeout,
		maxDocuments: maxDocuments,
		pending:      make(map[int]kafka.Message),
		logger:       slog.Default().With("component", "kafka-source"),
	}
}

func (k *Kafka) Next(ctx context.Context) (ingestion.Document, error) {
	for {
		if k.maxDocuments > 0 && k.count >= k.maxDocuments {
			return ingestion.Document{}, io.EOF
		}
		fetchCtx, cancel := context.WithTimeout(ctx, k.idleTimeout)
		msg, err := k.fetcher.Fetch(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ingestion.Document{}, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				k.logger.Info("topic idle, ending input", "idle_timeout", k.idleTimeout, "documents", k.count)
				return ingestion.Document{}, io.EOF
			}
			return ingestion.Document{}, err
		}
		k.pending[msg.Partition] = msg

		event, err := kafka.DecodeJSON[ingestion.DocumentEvent](msg.Value)
		if err != nil {
			k.logger.Warn("skipping undecodable message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		k.count++
		if event.Key == "" {
			event.Key = string(msg.Key)
		}
		doc := ingestion.Document{Key: event.Key, Text: event.Text}
		if event.Tokens != nil {
			doc.Tokens = event.Tokens
			doc.Tokenized = true
		}
		return doc, nil
	}
}

// Commit acknowledges every message read so far.
func (k *Kafka) Commit(ctx context.Context) error {
	if len(k.pending) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(k.pending))
	for _, m := range k.pending {
		msgs = append(msgs, m)
	}
	if err := k.fetcher.Commit(ctx, msgs...); err != nil {
		return err
	}
	clear(k.pending)
	return nil
}

func (k *Kafka) Close() error {
	return k.fetcher.Close()
}
