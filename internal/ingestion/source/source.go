// Package source reads documents for indexing from files, databases,
// Kafka topics or a synthetic generator. Every source streams: a document
// is produced only when Next is called and nothing is retained afterwards.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// Format names a file layout understood by Open.
type Format string

const (
	FormatAuto  Format = ""
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// docKey is the key given to documents that carry no key of their own.
func docKey(n int) string {
	return fmt.Sprintf("doc_%08d", n)
}

// FileOptions configures Open.
type FileOptions struct {
	Format     Format
	IDColumn   string
	TextColumn string
	IDField    string
	TextField  string
}

func (o FileOptions) withDefaults() FileOptions {
	if o.IDColumn == "" {
		o.IDColumn = "id"
	}
	if o.TextColumn == "" {
		o.TextColumn = "text"
	}
	if o.IDField == "" {
		o.IDField = "id"
	}
	if o.TextField == "" {
		o.TextField = "text"
	}
	return o
}

// DetectFormat infers a format from the file name, ignoring a trailing .zst.
func DetectFormat(path string) Format {
	name := strings.TrimSuffix(strings.ToLower(path), ".zst")
	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".csv":
		return FormatCSV
	default:
		return FormatText
	}
}

// ParseFormat validates a user-supplied format name. "auto" and "" select
// detection by file name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, "auto":
		return FormatAuto, nil
	case FormatJSON, FormatText, FormatCSV, FormatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown input format %q", apperrors.ErrInvalidInput, s)
	}
}

// Open returns a Source reading path. Files ending in .zst are
// decompressed on the fly.
func Open(path string, opts FileOptions) (ingestion.Source, error) {
	opts = opts.withDefaults()
	if opts.Format == FormatAuto {
		opts.Format = DetectFormat(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	var r io.Reader = f
	closer := multiCloser{f}
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		r = zr
		closer = multiCloser{zstdCloser{zr}, f}
	}

	var src ingestion.Source
	switch opts.Format {
	case FormatJSON:
		src = NewJSON(r)
	case FormatJSONL:
		src = NewJSONL(r, opts.IDField, opts.TextField)
	case FormatCSV:
		src, err = NewCSV(r, opts.IDColumn, opts.TextColumn)
	case FormatText:
		src = NewText(r)
	default:
		err = fmt.Errorf("%w: unknown input format %q", apperrors.ErrInvalidInput, opts.Format)
	}
	if err != nil {
		closer.Close()
		return nil, err
	}
	return &fileSource{Source: src, closer: closer}, nil
}

type fileSource struct {
	ingestion.Source
	closer io.Closer
}

func (f *fileSource) Close() error {
	err := f.Source.Close()
	if cerr := f.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
