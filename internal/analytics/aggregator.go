package analytics

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	defaultLatencyWindow = 10000
	topQueryCount        = 10
)

type Stats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      float64      `json:"p50_latency_ms"`
	P95LatencyMs      float64      `json:"p95_latency_ms"`
	P99LatencyMs      float64      `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
	Since             time.Time    `json:"since"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals of search traffic in memory. Latency
// percentiles cover the most recent events only.
type Aggregator struct {
	mu          sync.Mutex
	total       int64
	cacheHits   int64
	zeroResults int64
	latencies   []float64
	next        int
	window      int
	queries     map[string]int64
	zeroQueries map[string]int64
	start       time.Time
	now         func() time.Time
}

func NewAggregator() *Aggregator {
	a := &Aggregator{
		window: defaultLatencyWindow,
		now:    time.Now,
	}
	a.Reset()
	return a
}

func (a *Aggregator) Record(e SearchEvent) {
	key := queryKey(e)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	if e.CacheHit {
		a.cacheHits++
	}
	if len(a.latencies) < a.window {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
	}
	a.next = (a.next + 1) % a.window
	a.queries[key]++
	if e.TotalHits == 0 {
		a.zeroResults++
		a.zeroQueries[key]++
	}
}

// queryKey groups queries that tokenize to the same set of terms.
func queryKey(e SearchEvent) string {
	if len(e.Terms) == 0 {
		return strings.TrimSpace(e.Query)
	}
	terms := slices.Clone(e.Terms)
	slices.Sort(terms)
	return strings.Join(terms, " ")
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		TotalSearches:     a.total,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.total - a.cacheHits,
		ZeroResultCount:   a.zeroResults,
		TopQueries:        topN(a.queries, topQueryCount),
		ZeroResultQueries: topN(a.zeroQueries, topQueryCount),
		Since:             a.start,
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.start).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.total) / elapsed
	}
	return stats
}

// Reset discards everything recorded so far.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total, a.cacheHits, a.zeroResults = 0, 0, 0
	a.latencies = make([]float64, 0, min(a.window, 1024))
	a.next = 0
	a.queries = make(map[string]int64)
	a.zeroQueries = make(map[string]int64)
	a.start = a.now()
}

func percentile(sorted []float64, pct int) float64 {
	idx := min(pct*len(sorted)/100, len(sorted)-1)
	return sorted[idx]
}

// topN orders by descending count, then query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	slices.SortFunc(result, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Query, b.Query)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
