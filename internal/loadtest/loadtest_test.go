package loadtest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

func TestRun(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		seen[r.URL.Query().Get("q")]++
		mu.Unlock()
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		if r.URL.Query().Get("q") == "bad query" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL:     srv.URL + "/",
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		Queries:     []string{"machine learning", "bad query"},
		Limit:       5,
	})
	require.NoError(t, err)
	require.Positive(t, report.Total)
	assert.Equal(t, report.Total, report.Success+report.Errors)
	assert.Positive(t, report.StatusCodes[http.StatusOK])
	assert.Positive(t, report.StatusCodes[http.StatusBadRequest])
	assert.Equal(t, report.StatusCodes[http.StatusBadRequest], report.Errors)
	assert.Positive(t, report.RequestsPerSecond())

	l := report.Latency
	assert.LessOrEqual(t, l.Min, l.P50)
	assert.LessOrEqual(t, l.P50, l.P99)
	assert.LessOrEqual(t, l.P99, l.Max)

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()

	var buf bytes.Buffer
	report.Print(&buf)
	assert.Contains(t, buf.String(), "Total Requests:")
	assert.Contains(t, buf.String(), "  200: ")
	assert.Contains(t, buf.String(), "  400: ")
}

func TestRun_UnreachableCountsErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL:  url,
		Duration: 100 * time.Millisecond,
		Queries:  []string{"x"},
	})
	require.NoError(t, err)
	assert.Zero(t, report.Success)
	assert.Equal(t, report.Total, report.Errors)
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{BaseURL: "http://localhost", Duration: time.Second})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = Run(context.Background(), Config{BaseURL: "http://localhost", Queries: []string{"x"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	assert.Equal(t, 50*time.Millisecond, Percentile(sorted, 50))
	assert.Equal(t, 99*time.Millisecond, Percentile(sorted, 99))
	assert.Equal(t, 100*time.Millisecond, Percentile(sorted, 100))
	assert.Equal(t, time.Millisecond, Percentile(sorted, 0))
	assert.Zero(t, Percentile(nil, 50))
}

func TestSummarise(t *testing.T) {
	s := summarise([]time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond})
	assert.Equal(t, time.Millisecond, s.Min)
	assert.Equal(t, 2*time.Millisecond, s.Avg)
	assert.Equal(t, 3*time.Millisecond, s.Max)
	assert.Positive(t, s.StdDev)
	assert.Equal(t, LatencySummary{}, summarise(nil))
}
