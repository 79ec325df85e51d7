package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/metrics"
)

type buildOutput struct {
	Path     string           `json:"path"`
	Bytes    int64            `json:"bytes"`
	Checksum string           `json:"checksum"`
	Ingest   pipeline.Summary `json:"ingest"`
	Stats    index.Stats      `json:"stats"`
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		in          inputFlags
		output      string
		k1, b       float64
		duplicates  string
		noPublish   bool
		serveMetric bool
	)

	cmd := &cobra.Command{
		Use:   "build [input]",
		Short: "Build an index file from documents",
		Long: `Build reads documents from a file (json, jsonl, csv or text, optionally
.zst compressed), a SQL query or the Kafka document-ingest topic, and
writes a single index file.

When Kafka brokers are configured an index-complete event is published
after the file is saved. Kafka input offsets are committed only after a
successful save.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("k1") {
				k1 = a.cfg.Index.K1
			}
			if !cmd.Flags().Changed("b") {
				b = a.cfg.Index.B
			}
			if duplicates == "" {
				duplicates = a.cfg.Index.DuplicateKeys
			}
			policy, err := indexer.ParseDuplicateKeyPolicy(duplicates)
			if err != nil {
				return err
			}
			if k1 < 0 || b < 0 || b > 1 {
				return fmt.Errorf("k1 must be non-negative and b within [0, 1]")
			}

			m := metrics.New(nil)
			if serveMetric {
				shutdown := m.StartServer(a.cfg.Metrics.Port)
				defer shutdown(context.Background())
			}

			ctx := cmd.Context()
			src, err := a.openInput(ctx, &in, args)
			if err != nil {
				return err
			}
			defer src.Close()

			start := time.Now()
			bd := indexer.NewBuilder(indexer.WithParams(k1, b), indexer.WithDuplicateKeyPolicy(policy))
			summary, err := pipeline.Feed(ctx, src, bd, pipeline.Options{
				Indexed:       m.DocsIndexedTotal,
				ProgressEvery: 100_000,
			})
			if err != nil {
				return err
			}
			if err := bd.Build(); err != nil {
				return err
			}
			info, err := bd.Save(a.indexPath(output))
			if err != nil {
				m.IndexSavesTotal.WithLabelValues("error").Inc()
				return err
			}
			m.IndexSavesTotal.WithLabelValues("success").Inc()
			m.IndexBuildDuration.Observe(time.Since(start).Seconds())

			if err := src.Commit(ctx); err != nil {
				slog.Error("failed to commit kafka offsets, documents will be re-read", "error", err)
			}

			stats, _ := bd.Stats()
			if !noPublish && len(a.cfg.Kafka.Brokers) > 0 {
				announce(ctx, a, info, stats)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(buildOutput{
				Path:     info.Path,
				Bytes:    info.Bytes,
				Checksum: info.Checksum,
				Ingest:   summary,
				Stats:    stats,
			})
		},
	}

	in.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Index file to write (default from config)")
	cmd.Flags().Float64Var(&k1, "k1", 1.5, "BM25 term-frequency saturation")
	cmd.Flags().Float64Var(&b, "b", 0.75, "BM25 length normalisation")
	cmd.Flags().StringVar(&duplicates, "duplicates", "", "Repeated keys: merge or reject (default from config)")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "Do not publish an index-complete event")
	cmd.Flags().BoolVar(&serveMetric, "metrics", false, "Expose Prometheus metrics while building")

	return cmd
}

// announce publishes the index-complete event. A failure is logged, not
// returned: the index file is already in place.
func announce(ctx context.Context, a *app, info segment.Info, stats index.Stats) {
	producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()
	if err := publisher.New(producer).IndexComplete(ctx, info, stats); err != nil {
		slog.Error("failed to announce index", "path", info.Path, "error", err)
	}
}
