package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/parser"
)

type countingObserver struct {
	hits, misses atomic.Int64
}

func (o *countingObserver) Hit()  { o.hits.Add(1) }
func (o *countingObserver) Miss() { o.misses.Add(1) }

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingBackend) DeleteByPrefix(context.Context, string) (int64, error) {
	return 0, errors.New("down")
}

func result(query string) *searcher.SearchResult {
	return &searcher.SearchResult{
		Query:     query,
		TotalHits: 1,
		Results:   []searcher.Result{{Key: "doc1", Score: 1.25}},
		Checksum:  "abc",
	}
}

func TestBuildKey(t *testing.T) {
	a := BuildKey("sum", parser.Parse("Machine learning", nil), 10)
	b := BuildKey("sum", parser.Parse("learning  machine machine", nil), 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, BuildKey("sum", parser.Parse("machine learning", nil), 5))
	assert.NotEqual(t, a, BuildKey("other", parser.Parse("machine learning", nil), 10))
	assert.Contains(t, a, keyPrefix)
}

func TestQueryCache_GetOrCompute(t *testing.T) {
	obs := &countingObserver{}
	c := New(NewLRU(16, time.Minute), time.Minute, obs)
	ctx := context.Background()
	computes := 0
	compute := func() (*searcher.SearchResult, error) {
		computes++
		return result("machine learning"), nil
	}

	got, hit, err := c.GetOrCompute(ctx, "abc", parser.Parse("machine learning", nil), 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "doc1", got.Results[0].Key)

	got, hit, err = c.GetOrCompute(ctx, "abc", parser.Parse("Learning Machine", nil), 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Learning Machine", got.Query)
	assert.Equal(t, 1.25, got.Results[0].Score)
	assert.Equal(t, 1, computes)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, int64(1), obs.hits.Load())
	assert.Equal(t, int64(1), obs.misses.Load())
}

func TestQueryCache_ComputeErrorNotCached(t *testing.T) {
	c := New(NewLRU(16, time.Minute), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "abc", parser.Parse("q", nil), 10, func() (*searcher.SearchResult, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, hit, err := c.GetOrCompute(context.Background(), "abc", parser.Parse("q", nil), 10, func() (*searcher.SearchResult, error) {
		return result("q"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestQueryCache_CollapsesConcurrentMisses(t *testing.T) {
	c := New(NewLRU(16, time.Minute), time.Minute, nil)
	var computes atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			_, _, err := c.GetOrCompute(context.Background(), "abc", parser.Parse("slow query", nil), 10, func() (*searcher.SearchResult, error) {
				computes.Add(1)
				<-release
				return result("slow query"), nil
			})
			assert.NoError(t, err)
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, computes.Load(), int64(8))
	assert.GreaterOrEqual(t, computes.Load(), int64(1))
}

func TestQueryCache_BackendFailureFallsBack(t *testing.T) {
	c := New(failingBackend{}, time.Minute, nil)
	got, hit, err := c.GetOrCompute(context.Background(), "abc", parser.Parse("q", nil), 10, func() (*searcher.SearchResult, error) {
		return result("q"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "doc1", got.Results[0].Key)
	assert.Error(t, c.Invalidate(context.Background()))
}

func TestLRU(t *testing.T) {
	ctx := context.Background()
	l := NewLRU(2, time.Minute)
	require.NoError(t, l.Set(ctx, keyPrefix+"a", []byte("1"), 0))
	require.NoError(t, l.Set(ctx, keyPrefix+"b", []byte("2"), 0))
	require.NoError(t, l.Set(ctx, "other", []byte("3"), 0))
	assert.Equal(t, 2, l.Len())

	_, ok, _ := l.Get(ctx, keyPrefix+"a")
	assert.False(t, ok, "oldest entry evicted")

	n, err := l.DeleteByPrefix(ctx, keyPrefix)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	v, ok, _ := l.Get(ctx, "other")
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), v)
}

func TestQueryCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	l := NewLRU(16, time.Minute)
	c := New(l, time.Minute, nil)
	_, _, err := c.GetOrCompute(ctx, "abc", parser.Parse("q", nil), 10, func() (*searcher.SearchResult, error) {
		return result("q"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 0, l.Len())
}
