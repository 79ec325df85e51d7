package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
)

// Producer is the part of kafka.Producer the collector needs.
type Producer interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Collector buffers search events and publishes them in batches, when the
// batch fills or every flush interval. Events arriving while the buffer is
// full are dropped.
type Collector struct {
	producer      Producer
	events        chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewCollector(producer Producer, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		producer:      producer,
		events:        make(chan SearchEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

func (c *Collector) Record(e SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- e:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Start runs the publish loop until Close is called. Cancelling ctx aborts
// in-flight publishes.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		flush := func() {
			if len(batch) == 0 {
				return
			}
			if err := c.producer.Publish(ctx, batch...); err != nil {
				c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
			}
			batch = batch[:0]
		}
		for {
			select {
			case e, ok := <-c.events:
				if !ok {
					flush()
					return
				}
				batch = append(batch, kafka.Event{Key: e.Checksum, Value: e})
				if len(batch) >= c.batchSize {
					flush()
				}
			case <-ticker.C:
				flush()
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.events), "batch_size", c.batchSize)
}

// Close stops accepting events, flushes what is buffered and waits for the
// publish loop to exit. Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.events)
	c.mu.Unlock()
	<-c.done
}
