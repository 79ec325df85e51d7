package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/errors"
)

// CSV reads a headed CSV file, taking keys and text from the named columns.
// Rows too short to hold both columns are skipped with a warning.
type CSV struct {
	r       *csv.Reader
	idCol   int
	textCol int
	row     int
	logger  *slog.Logger
}

func NewCSV(r io.Reader, idColumn, textColumn string) (*CSV, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv input has no header row", apperrors.ErrInvalidInput)
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	c := &CSV{
		r:       cr,
		idCol:   slices.Index(header, idColumn),
		textCol: slices.Index(header, textColumn),
		logger:  slog.Default().With("component", "csv-source"),
	}
	if c.idCol < 0 || c.textCol < 0 {
		return nil, fmt.Errorf("%w: csv header %v lacks column %q or %q",
			apperrors.ErrInvalidInput, header, idColumn, textColumn)
	}
	return c, nil
}

func (c *CSV) Next(ctx context.Context) (ingestion.Document, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ingestion.Document{}, err
		}
		rec, err := c.r.Read()
		if errors.Is(err, io.EOF) {
			return ingestion.Document{}, io.EOF
		}
		c.row++
		if err != nil {
			return ingestion.Document{}, fmt.Errorf("reading csv row %d: %w", c.row, err)
		}
		if c.idCol >= len(rec) || c.textCol >= len(rec) {
			c.logger.Warn("row missing required columns", "row", c.row)
			continue
		}
		return ingestion.Document{Key: rec[c.idCol], Text: rec[c.textCol]}, nil
	}
}

func (c *CSV) Close() error { return nil }
