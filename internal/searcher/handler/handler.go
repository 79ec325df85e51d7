// Package handler exposes a loaded index over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/metrics"
)

// Index is the part of searcher.Reader the handler needs.
type Index interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*searcher.SearchResult, error)
	Stats() (index.Stats, error)
	Checksum() (string, error)
}

type Handler struct {
	index        Index
	cache        *cache.QueryCache
	metrics      *metrics.Metrics
	recorder     analytics.Recorder
	tokenize     tokenizer.Func
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New creates a Handler. queryCache and m may be nil.
func New(ix Index, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		index:        ix,
		cache:        queryCache,
		metrics:      m,
		tokenize:     tokenizer.Tokenize,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// WithRecorder sends an analytics event for every successful search.
func (h *Handler) WithRecorder(r analytics.Recorder) *Handler {
	h.recorder = r
	return h
}

// Routes registers the handler's endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.HandleFunc("GET /cache/stats", h.CacheStats)
	mux.HandleFunc("POST /cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := min(h.defaultLimit, h.maxResults)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.maxResults)
	}

	plan := parser.Parse(query, h.tokenize)
	checksum, err := h.index.Checksum()
	if err != nil {
		h.fail(w, log, query, err)
		return
	}

	var result *searcher.SearchResult
	cacheHit := false
	if h.cache != nil && !plan.Empty() {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, checksum, plan, limit, func() (*searcher.SearchResult, error) {
			return h.index.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.index.Execute(ctx, plan, limit)
	}
	if err != nil {
		h.fail(w, log, query, err)
		return
	}

	latency := time.Since(start)
	h.observe(result, cacheHit, latency)
	if h.recorder != nil {
		h.recorder.Record(analytics.SearchEvent{
			Query:     query,
			Terms:     plan.Terms,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: float64(latency.Microseconds()) / 1000,
			CacheHit:  cacheHit,
			Checksum:  checksum,
			RequestID: logger.RequestID(ctx),
			Timestamp: start,
		})
	}
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) observe(result *searcher.SearchResult, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	} else if h.cache == nil {
		cacheStatus = "disabled"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
}

func (h *Handler) fail(w http.ResponseWriter, log *slog.Logger, query string, err error) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
	}
	log.Error("search execution failed", "query", query, "error", err)
	status := apperrors.HTTPStatusCode(err)
	message := "search failed"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "search timed out"
	case errors.Is(err, apperrors.ErrInvalidState):
		message = "index not loaded"
	}
	h.writeError(w, status, message)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.index.Stats()
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), "index not loaded")
		return
	}
	checksum, _ := h.index.Checksum()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats":    stats,
		"checksum": checksum,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
