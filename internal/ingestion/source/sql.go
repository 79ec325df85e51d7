package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
)

// SQL streams (key, text) rows from a query. The query must select exactly
// two columns; a NULL text is indexed as an empty document.
type SQL struct {
	rows *sql.Rows
}

func NewSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*SQL, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("reading result columns: %w", err)
	}
	if len(cols) != 2 {
		rows.Close()
		return nil, fmt.Errorf("document query must return 2 columns (key, text), got %d", len(cols))
	}
	return &SQL{rows: rows}, nil
}

func (s *SQL) Next(ctx context.Context) (ingestion.Document, error) {
	if err := ctx.Err(); err != nil {
		return ingestion.Document{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return ingestion.Document{}, fmt.Errorf("iterating documents: %w", err)
		}
		return ingestion.Document{}, io.EOF
	}
	var key string
	var text sql.NullString
	if err := s.rows.Scan(&key, &text); err != nil {
		return ingestion.Document{}, fmt.Errorf("scanning document row: %w", err)
	}
	return ingestion.Document{Key: key, Text: text.String}, nil
}

func (s *SQL) Close() error {
	return s.rows.Close()
}
