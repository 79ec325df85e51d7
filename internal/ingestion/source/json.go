package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// JSON streams the benchmark corpus format, a single object mapping each
// key to its token list: {"doc_00000000": ["tok", ...], ...}. Keys are
// produced in file order.
type JSON struct {
	dec     *json.Decoder
	started bool
	done    bool
}

func NewJSON(r io.Reader) *JSON {
	return &JSON{dec: json.NewDecoder(r)}
}

func (j *JSON) Next(ctx context.Context) (ingestion.Document, error) {
	if j.done {
		return ingestion.Document{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return ingestion.Document{}, err
	}
	if !j.started {
		tok, err := j.dec.Token()
		if err != nil {
			return ingestion.Document{}, j.fail("reading opening brace", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return ingestion.Document{}, fmt.Errorf("%w: corpus must be a JSON object", apperrors.ErrInvalidInput)
		}
		j.started = true
	}
	if !j.dec.More() {
		if _, err := j.dec.Token(); err != nil {
			return ingestion.Document{}, j.fail("reading closing brace", err)
		}
		j.done = true
		return ingestion.Document{}, io.EOF
	}

	tok, err := j.dec.Token()
	if err != nil {
		return ingestion.Document{}, j.fail("reading key", err)
	}
	key, ok := tok.(string)
	if !ok {
		return ingestion.Document{}, fmt.Errorf("%w: expected document key, got %v", apperrors.ErrInvalidInput, tok)
	}
	var tokens []string
	if err := j.dec.Decode(&tokens); err != nil {
		return ingestion.Document{}, fmt.Errorf("%w: tokens for %q: %v", apperrors.ErrInvalidInput, key, err)
	}
	if tokens == nil {
		tokens = []string{}
	}
	return ingestion.Document{Key: key, Tokens: tokens, Tokenized: true}, nil
}

func (j *JSON) fail(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidInput, what, err)
}

func (j *JSON) Close() error { return nil }
