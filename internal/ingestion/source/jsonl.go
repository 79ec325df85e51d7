package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
)

// JSONL reads one JSON object per line. Objects without the id field are
// keyed by line number; lines that are not JSON objects are skipped with a
// warning. Non-string ids are rendered with fmt, so 42 becomes "42".
type JSONL struct {
	scanner   *bufio.Scanner
	idField   string
	textField string
	line      int
	logger    *slog.Logger
}

func NewJSONL(r io.Reader, idField, textField string) *JSONL {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONL{
		scanner:   s,
		idField:   idField,
		textField: textField,
		logger:    slog.Default().With("component", "jsonl-source"),
	}
}

func (j *JSONL) Next(ctx context.Context) (ingestion.Document, error) {
	for j.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return ingestion.Document{}, err
		}
		j.line++
		doc, ok := j.parse(j.scanner.Bytes())
		if !ok {
			continue
		}
		return doc, nil
	}
	if err := j.scanner.Err(); err != nil {
		return ingestion.Document{}, fmt.Errorf("reading line %d: %w", j.line+1, err)
	}
	return ingestion.Document{}, io.EOF
}

func (j *JSONL) parse(line []byte) (ingestion.Document, bool) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		j.logger.Warn("skipping invalid JSON", "line", j.line)
		return ingestion.Document{}, false
	}

	key := docKey(j.line)
	if id, ok := obj[j.idField]; ok && id != nil {
		key = fmt.Sprint(id)
	}
	var text string
	switch v := obj[j.textField].(type) {
	case nil:
	case string:
		text = v
	default:
		j.logger.Warn("skipping line with non-string text", "line", j.line, "field", j.textField)
		return ingestion.Document{}, false
	}
	return ingestion.Document{Key: key, Text: text}, true
}

func (j *JSONL) Close() error { return nil }
