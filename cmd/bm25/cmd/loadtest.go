package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/loadtest"
)

var defaultLoadQueries = []string{
	"machine learning",
	"search engine",
	"inverted index",
	"ranking algorithm",
	"document frequency",
	"query processing",
	"term weighting",
	"cache optimization",
	"full text search",
	"bm25 ranking",
	"token normalization",
	"document ingestion",
}

func newLoadtestCmd(a *app) *cobra.Command {
	var (
		baseURL     string
		concurrency int
		duration    time.Duration
		limit       int
		queries     []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent search traffic to a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)
			}
			if len(queries) == 0 {
				queries = defaultLoadQueries
			}
			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprintln(out, "=== BM25 Search Load Test ===")
				fmt.Fprintf(out, "URL:         %s\n", baseURL)
				fmt.Fprintf(out, "Concurrency: %d\n", concurrency)
				fmt.Fprintf(out, "Duration:    %s\n", duration)
				fmt.Fprintf(out, "Queries:     %d unique\n\n", len(queries))
			}

			report, err := loadtest.Run(cmd.Context(), loadtest.Config{
				BaseURL:     baseURL,
				Concurrency: concurrency,
				Duration:    duration,
				Queries:     queries,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			report.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "base URL of the search server (default localhost on the configured port)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 10, "number of concurrent workers")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 30*time.Second, "test duration")
	cmd.Flags().IntVarP(&limit, "limit", "k", 10, "results requested per query")
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "query to send, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
