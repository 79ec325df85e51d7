package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
)

type fakeFetcher struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeFetcher) Fetch(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeFetcher) Commit(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func event(t *testing.T, partition int, offset int64, key string, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(key), Value: b, Partition: partition, Offset: offset}
}

func TestKafka_DrainsUntilIdle(t *testing.T) {
	f := &fakeFetcher{queue: []kafka.Message{
		event(t, 0, 0, "", ingestion.DocumentEvent{Key: "a", Text: "plain text"}),
		event(t, 1, 0, "from-header", map[string]any{"text": "keyed by message"}),
		{Partition: 0, Offset: 1, Value: []byte("garbage")},
		event(t, 0, 2, "", map[string]any{"key": "t", "tokens": []string{"Pre", "Tokenized"}}),
		event(t, 1, 1, "", map[string]any{"key": "e", "tokens": []string{}}),
	}}
	src := NewKafka(f, 20*time.Millisecond, 0)
	docs := drain(t, src)

	require.Len(t, docs, 4)
	assert.Equal(t, ingestion.Document{Key: "a", Text: "plain text"}, docs[0])
	assert.Equal(t, "from-header", docs[1].Key)
	assert.Equal(t, ingestion.Document{Key: "t", Tokens: []string{"Pre", "Tokenized"}, Tokenized: true}, docs[2])
	assert.True(t, docs[3].Tokenized)
	assert.Empty(t, docs[3].Tokens)

	assert.Empty(t, f.committed)
	require.NoError(t, src.Commit(context.Background()))
	offsets := map[int]int64{}
	for _, m := range f.committed {
		offsets[m.Partition] = m.Offset
	}
	assert.Equal(t, map[int]int64{0: 2, 1: 1}, offsets)

	// nothing new to acknowledge
	f.committed = nil
	require.NoError(t, src.Commit(context.Background()))
	assert.Empty(t, f.committed)

	require.NoError(t, src.Close())
	assert.True(t, f.closed)
}

func TestKafka_MaxDocuments(t *testing.T) {
	f := &fakeFetcher{}
	for i := range 5 {
		f.queue = append(f.queue, event(t, 0, int64(i), "", ingestion.DocumentEvent{Key: string(rune('a' + i)), Text: "x"}))
	}
	src := NewKafka(f, time.Second, 3)
	docs := drain(t, src)
	assert.Len(t, docs, 3)
	assert.Len(t, f.queue, 2)
}

func TestKafka_ContextCancelled(t *testing.T) {
	src := NewKafka(&fakeFetcher{}, time.Minute, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, io.EOF))
}
