package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
)

type statsOutput struct {
	Path     string      `json:"path"`
	Checksum string      `json:"checksum"`
	Stats    index.Stats `json:"stats"`
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		indexFlag string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.indexPath(indexFlag)
			r := searcher.NewReader()
			if err := r.Load(path); err != nil {
				return err
			}
			stats, err := r.Stats()
			if err != nil {
				return err
			}
			checksum, _ := r.Checksum()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(statsOutput{Path: path, Checksum: checksum, Stats: stats})
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Path:\t%s\n", path)
			fmt.Fprintf(tw, "Checksum:\t%s\n", checksum)
			fmt.Fprintf(tw, "Documents:\t%d\n", stats.NumDocuments)
			fmt.Fprintf(tw, "Unique terms:\t%d\n", stats.NumUniqueTerms)
			fmt.Fprintf(tw, "Postings:\t%d\n", stats.TotalPostings)
			fmt.Fprintf(tw, "Avg doc length:\t%.4f\n", stats.AverageDocLength)
			fmt.Fprintf(tw, "k1 / b:\t%g / %g\n", stats.K1, stats.B)
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&indexFlag, "index", "i", "", "Index file (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")

	return cmd
}
