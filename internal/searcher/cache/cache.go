// Package cache memoises search results. Keys combine the index checksum,
// the normalised query and the limit, so loading a different index never
// serves stale hits.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/parser"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/redis"
)

const keyPrefix = "bm25:search:"

// Backend stores opaque cache values.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

var (
	_ Backend = (*pkgredis.Client)(nil)
	_ Backend = (*LRU)(nil)
)

// Observer receives hit and miss notifications, typically metrics.
type Observer interface {
	Hit()
	Miss()
}

type QueryCache struct {
	backend  Backend
	ttl      time.Duration
	observer Observer
	group    singleflight.Group
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

func New(backend Backend, ttl time.Duration, observer Observer) *QueryCache {
	return &QueryCache{
		backend:  backend,
		ttl:      ttl,
		observer: observer,
		logger:   slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) get(ctx context.Context, key string) (*searcher.SearchResult, bool) {
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result searcher.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

func (c *QueryCache) set(ctx context.Context, key string, result *searcher.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for the query or runs compute once
// per key, even under concurrent identical requests. The boolean reports a
// cache hit. Backend failures degrade to computing the result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	checksum string,
	plan *parser.QueryPlan,
	limit int,
	compute func() (*searcher.SearchResult, error),
) (*searcher.SearchResult, bool, error) {
	key := BuildKey(checksum, plan, limit)
	if result, ok := c.get(ctx, key); ok {
		c.record(true)
		c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
		return withQuery(result, plan), true, nil
	}
	c.record(false)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return withQuery(val.(*searcher.SearchResult), plan), false, nil
}

// Invalidate drops every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observer == nil {
		return
	}
	if hit {
		c.observer.Hit()
	} else {
		c.observer.Miss()
	}
}

// BuildKey derives the cache key. Queries differing only in case, spacing,
// term order or repeated terms share a key.
func BuildKey(checksum string, plan *parser.QueryPlan, limit int) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", checksum, plan.Normalized(), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// withQuery echoes the caller's own query text on results shared between
// equivalent queries.
func withQuery(r *searcher.SearchResult, plan *parser.QueryPlan) *searcher.SearchResult {
	if r.Query == plan.RawQuery {
		return r
	}
	out := *r
	out.Query = plan.RawQuery
	return &out
}
