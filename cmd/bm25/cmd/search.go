package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		indexFlag string
		topK      int
		tokens    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query an index file",
		Long: `Search loads an index file and prints the top-k documents for the
query, best first. With --tokens each argument is used as an exact term,
which suits indexes built from pre-tokenized input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := searcher.NewReader()
			if err := r.Load(a.indexPath(indexFlag)); err != nil {
				return err
			}

			var (
				results []searcher.Result
				err     error
			)
			if tokens {
				results, err = r.SearchTokens(args, topK)
			} else {
				results, err = r.Search(strings.Join(args, " "), topK)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tKEY\tSCORE")
			for i, res := range results {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, res.Key, res.Score)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&indexFlag, "index", "i", "", "Index file (default from config)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "Treat arguments as exact pre-tokenized terms")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}
