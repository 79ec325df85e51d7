package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/sqldb"
)

// inputFlags selects where documents come from.
type inputFlags struct {
	from       string
	format     string
	idColumn   string
	textColumn string
	idField    string
	textField  string
	query      string
}

func (f *inputFlags) register(cmd *cobra.Command, withRemote bool) {
	if withRemote {
		cmd.Flags().StringVar(&f.from, "from", "file", "Document source: file, sql or kafka")
		cmd.Flags().StringVar(&f.query, "query", "", "SQL returning (key, text) rows (default from config)")
	}
	cmd.Flags().StringVar(&f.format, "format", "auto", "Input format: auto, json, jsonl, csv or text")
	cmd.Flags().StringVar(&f.idColumn, "id-column", "id", "CSV column holding document keys")
	cmd.Flags().StringVar(&f.textColumn, "text-column", "text", "CSV column holding document text")
	cmd.Flags().StringVar(&f.idField, "id-field", "id", "JSONL field holding document keys")
	cmd.Flags().StringVar(&f.textField, "text-field", "text", "JSONL field holding document text")
}

func (f *inputFlags) fileOptions() (source.FileOptions, error) {
	format, err := source.ParseFormat(f.format)
	if err != nil {
		return source.FileOptions{}, err
	}
	return source.FileOptions{
		Format:     format,
		IDColumn:   f.idColumn,
		TextColumn: f.textColumn,
		IDField:    f.idField,
		TextField:  f.textField,
	}, nil
}

// input is an open document source plus the acknowledgement to run once
// its documents are safely persisted.
type input struct {
	ingestion.Source
	commit func(ctx context.Context) error
	extra  func() error
}

func (in *input) Commit(ctx context.Context) error {
	if in.commit == nil {
		return nil
	}
	return in.commit(ctx)
}

func (in *input) Close() error {
	err := in.Source.Close()
	if in.extra != nil {
		if cerr := in.extra(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) openInput(ctx context.Context, f *inputFlags, args []string) (*input, error) {
	from := f.from
	if from == "" {
		from = "file"
	}
	switch from {
	case "file":
		if len(args) != 1 {
			return nil, fmt.Errorf("an input file is required")
		}
		opts, err := f.fileOptions()
		if err != nil {
			return nil, err
		}
		src, err := source.Open(args[0], opts)
		if err != nil {
			return nil, err
		}
		return &input{Source: src}, nil

	case "sql":
		db, err := sqldb.Open(ctx, a.cfg.Database)
		if err != nil {
			return nil, err
		}
		query := f.query
		if query == "" {
			query = a.cfg.Database.Query
		}
		src, err := source.NewSQL(ctx, db.DB, query)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &input{Source: src, extra: db.Close}, nil

	case "kafka":
		if len(a.cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("kafka input needs kafka.brokers to be configured")
		}
		consumer := kafka.NewConsumer(a.cfg.Kafka, a.cfg.Kafka.Topics.DocumentIngest)
		src := source.NewKafka(consumer, a.cfg.Kafka.IdleTimeout, a.cfg.Kafka.MaxDocuments)
		return &input{Source: src, commit: src.Commit}, nil

	default:
		return nil, fmt.Errorf("unknown input source %q (want file, sql or kafka)", from)
	}
}
