// Package validator checks documents before they reach the index builder.
// Index files store keys and terms as UTF-8, so anything else is refused
// here rather than producing an artifact no reader can load.
package validator

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// maxTextLength bounds a single document body.
const maxTextLength = 64 << 20

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateDocument returns a *ValidationError describing every problem
// with doc, or nil.
func ValidateDocument(doc ingestion.Document) error {
	errs := make(map[string]string)

	if !utf8.ValidString(doc.Key) {
		errs["key"] = "key must be valid UTF-8"
	}
	if doc.Tokenized {
		for i, tok := range doc.Tokens {
			if !utf8.ValidString(tok) {
				errs["tokens"] = fmt.Sprintf("token %d is not valid UTF-8", i)
				break
			}
		}
	} else {
		if len(doc.Text) > maxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		} else if !utf8.ValidString(doc.Text) {
			errs["text"] = "text must be valid UTF-8"
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
