package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// CorpusStats summarises a corpus written by CorpusWriter.
type CorpusStats struct {
	Documents    int     `json:"documents"`
	TotalTokens  int     `json:"total_tokens"`
	UniqueTokens int     `json:"unique_tokens"`
	AvgLength    float64 `json:"avg_length"`
	MinLength    int     `json:"min_length"`
	MaxLength    int     `json:"max_length"`
}

// CorpusWriter streams the benchmark corpus format read by JSON. Callers
// must not write the same key twice.
type CorpusWriter struct {
	w      *bufio.Writer
	pretty bool
	wrote  bool
	closed bool
	unique map[string]struct{}
	stats  CorpusStats
}

func NewCorpusWriter(w io.Writer, pretty bool) *CorpusWriter {
	return &CorpusWriter{
		w:      bufio.NewWriterSize(w, 256*1024),
		pretty: pretty,
		unique: make(map[string]struct{}),
		stats:  CorpusStats{MinLength: math.MaxInt},
	}
}

func (cw *CorpusWriter) Write(key string, tokens []string) error {
	if cw.closed {
		return fmt.Errorf("corpus writer is closed")
	}
	if tokens == nil {
		tokens = []string{}
	}
	keyJSON, err := marshal(key, "", "")
	if err != nil {
		return err
	}
	var tokJSON []byte
	if cw.pretty {
		tokJSON, err = marshal(tokens, "  ", "  ")
	} else {
		tokJSON, err = marshal(tokens, "", "")
	}
	if err != nil {
		return err
	}

	switch {
	case !cw.wrote && cw.pretty:
		cw.w.WriteString("{\n  ")
	case !cw.wrote:
		cw.w.WriteString("{")
	case cw.pretty:
		cw.w.WriteString(",\n  ")
	default:
		cw.w.WriteString(",")
	}
	cw.wrote = true
	cw.w.Write(keyJSON)
	if cw.pretty {
		cw.w.WriteString(": ")
	} else {
		cw.w.WriteString(":")
	}
	if _, err := cw.w.Write(tokJSON); err != nil {
		return fmt.Errorf("writing corpus: %w", err)
	}

	cw.stats.Documents++
	cw.stats.TotalTokens += len(tokens)
	cw.stats.MinLength = min(cw.stats.MinLength, len(tokens))
	cw.stats.MaxLength = max(cw.stats.MaxLength, len(tokens))
	for _, t := range tokens {
		cw.unique[t] = struct{}{}
	}
	return nil
}

// Close terminates the JSON object and flushes. It does not close the
// underlying writer.
func (cw *CorpusWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	switch {
	case !cw.wrote:
		cw.w.WriteString("{}")
	case cw.pretty:
		cw.w.WriteString("\n}")
	default:
		cw.w.WriteString("}")
	}
	cw.w.WriteString("\n")
	if err := cw.w.Flush(); err != nil {
		return fmt.Errorf("flushing corpus: %w", err)
	}
	return nil
}

func (cw *CorpusWriter) Stats() CorpusStats {
	s := cw.stats
	s.UniqueTokens = len(cw.unique)
	if s.Documents == 0 {
		s.MinLength = 0
	} else {
		s.AvgLength = float64(s.TotalTokens) / float64(s.Documents)
	}
	return s
}

// marshal encodes v without HTML escaping so non-ASCII and markup survive
// as written.
func marshal(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding corpus entry: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
