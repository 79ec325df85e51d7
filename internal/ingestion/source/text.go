package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
)

const maxLineSize = 64 << 20

// Text treats every non-blank line as a document keyed by its 1-based line
// number, e.g. doc_00000003 for the third line.
type Text struct {
	scanner *bufio.Scanner
	line    int
}

func NewText(r io.Reader) *Text {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Text{scanner: s}
}

func (t *Text) Next(ctx context.Context) (ingestion.Document, error) {
	for t.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return ingestion.Document{}, err
		}
		t.line++
		text := strings.TrimSpace(t.scanner.Text())
		if text == "" {
			continue
		}
		return ingestion.Document{Key: docKey(t.line), Text: text}, nil
	}
	if err := t.scanner.Err(); err != nil {
		return ingestion.Document{}, fmt.Errorf("reading line %d: %w", t.line+1, err)
	}
	return ingestion.Document{}, io.EOF
}

func (t *Text) Close() error { return nil }
