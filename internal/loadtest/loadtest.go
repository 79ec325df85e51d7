// Package loadtest drives concurrent search traffic against a running
// search service and summarises latency and status codes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Limit       int
	Client      *http.Client
}

// Stats accumulates request outcomes from every worker.
type Stats struct {
	total   atomic.Int64
	success atomic.Int64
	errors  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newStats() *Stats {
	return &Stats{
		latencies: make([]time.Duration, 0, 100000),
		codes:     make(map[int]int64),
	}
}

func (s *Stats) record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[status]++
	s.mu.Unlock()
}

// Run sends search requests from cfg.Concurrency workers until
// cfg.Duration elapses or ctx is cancelled. Each worker cycles through the
// queries starting at its own offset.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if len(cfg.Queries) == 0 {
		return nil, fmt.Errorf("%w: at least one query is required", apperrors.ErrInvalidInput)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", apperrors.ErrInvalidInput)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := newStats()
	start := time.Now()
	var wg sync.WaitGroup
	for w := range cfg.Concurrency {
		wg.Go(func() {
			for i := w; ctx.Err() == nil; i++ {
				q := cfg.Queries[i%len(cfg.Queries)]
				target := fmt.Sprintf("%s/search?q=%s&limit=%d", base, url.QueryEscape(q), cfg.Limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				reqStart := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(reqStart)
				if err != nil {
					// requests cut off by the deadline are not failures
					if ctx.Err() != nil {
						return
					}
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		})
	}
	wg.Wait()
	return stats.report(time.Since(start)), nil
}

type Report struct {
	Total       int64          `json:"total"`
	Success     int64          `json:"success"`
	Errors      int64          `json:"errors"`
	Elapsed     time.Duration  `json:"elapsed"`
	StatusCodes map[int]int64  `json:"status_codes"`
	Latency     LatencySummary `json:"latency"`
}

type LatencySummary struct {
	Min    time.Duration `json:"min"`
	Avg    time.Duration `json:"avg"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Max    time.Duration `json:"max"`
	StdDev time.Duration `json:"stddev"`
}

func (s *Stats) report(elapsed time.Duration) *Report {
	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := maps.Clone(s.codes)
	s.mu.Unlock()

	return &Report{
		Total:       s.total.Load(),
		Success:     s.success.Load(),
		Errors:      s.errors.Load(),
		Elapsed:     elapsed,
		StatusCodes: codes,
		Latency:     summarise(latencies),
	}
}

func summarise(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	slices.Sort(latencies)
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))
	var sq float64
	for _, l := range latencies {
		diff := float64(l - avg)
		sq += diff * diff
	}
	return LatencySummary{
		Min:    latencies[0],
		Avg:    avg,
		P50:    Percentile(latencies, 50),
		P90:    Percentile(latencies, 90),
		P95:    Percentile(latencies, 95),
		P99:    Percentile(latencies, 99),
		Max:    latencies[len(latencies)-1],
		StdDev: time.Duration(math.Sqrt(sq / float64(len(latencies)))),
	}
}

// Percentile returns the nearest-rank p-th percentile of sorted.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

// RequestsPerSecond is the completed request rate over the run.
func (r *Report) RequestsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", r.RequestsPerSecond())
	}
	if r.Success+r.Errors > 0 && r.Latency.Max > 0 {
		l := r.Latency
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", l.Min)
		fmt.Fprintf(w, "Avg:    %s\n", l.Avg)
		fmt.Fprintf(w, "P50:    %s\n", l.P50)
		fmt.Fprintf(w, "P90:    %s\n", l.P90)
		fmt.Fprintf(w, "P95:    %s\n", l.P95)
		fmt.Fprintf(w, "P99:    %s\n", l.P99)
		fmt.Fprintf(w, "Max:    %s\n", l.Max)
		fmt.Fprintf(w, "StdDev: %s\n", l.StdDev)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, code := range slices.Sorted(maps.Keys(r.StatusCodes)) {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
