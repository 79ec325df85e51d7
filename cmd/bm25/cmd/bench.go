package cmd

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/bench"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		in      inputFlags
		output  string
		queries int
		topK    int
		keep    bool
		seed    uint64
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "bench <corpus>",
		Short: "Benchmark build, load and query performance",
		Long: `Bench indexes a corpus, typically the JSON format written by
'bm25 generate' or 'bm25 convert', saves and reloads the index, then times a
set of queries sampled from the corpus vocabulary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := a.openInput(ctx, &in, args)
			if err != nil {
				return err
			}
			defer src.Close()

			cfg := bench.Config{
				K1:        a.cfg.Index.K1,
				B:         a.cfg.Index.B,
				Queries:   queries,
				TopK:      topK,
				IndexPath: output,
				Keep:      keep,
			}
			if cmd.Flags().Changed("seed") {
				cfg.Rand = rand.New(rand.NewPCG(seed, seed))
			}
			report, err := bench.Run(ctx, src, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					*bench.Report
					Summary bench.Summary `json:"summary"`
				}{report, report.Summary()})
			}
			report.Print(out)
			return nil
		},
	}

	in.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Index file to write (default: temporary file)")
	cmd.Flags().IntVarP(&queries, "queries", "q", 10, "Number of sample queries")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "Results per query")
	cmd.Flags().BoolVar(&keep, "keep-index", false, "Keep the index file written to --output")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for query sampling (default: random)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}
