// Package analytics aggregates search traffic served from an index and
// optionally streams it to Kafka.
package analytics

import "time"

// SearchEvent describes one completed search request.
type SearchEvent struct {
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Checksum  string    `json:"checksum"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder receives search events. Implementations must not block.
type Recorder interface {
	Record(SearchEvent)
}

type multi []Recorder

func (m multi) Record(e SearchEvent) {
	for _, r := range m {
		r.Record(e)
	}
}

// Multi fans events out to every non-nil recorder.
func Multi(recorders ...Recorder) Recorder {
	out := make(multi, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
