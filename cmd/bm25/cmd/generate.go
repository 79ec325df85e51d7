package cmd

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/source"
)

func newGenerateCmd(_ *app) *cobra.Command {
	var (
		cfg    source.GeneratorConfig
		output string
		seed   uint64
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic pre-tokenized corpus",
		Long: `Generate writes a corpus in the benchmark JSON format,
{"doc_00000000": ["token", ...], ...}, with token frequencies skewed like
natural text. An output name ending in .zst is zstd compressed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = rand.Uint64()
			}
			gen, err := source.NewGenerator(cfg, rand.New(rand.NewPCG(seed, seed)))
			if err != nil {
				return err
			}
			stats, err := writeCorpus(cmd.Context(), output, pretty, gen)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Output string `json:"output"`
				Seed   uint64 `json:"seed"`
				source.CorpusStats
			}{output, seed, stats})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "corpus.json", "Corpus file to write")
	cmd.Flags().IntVarP(&cfg.NumDocs, "num-docs", "n", 1000, "Number of documents")
	cmd.Flags().IntVarP(&cfg.VocabSize, "vocab-size", "v", 1000, "Vocabulary size")
	cmd.Flags().IntVar(&cfg.MinLength, "min-length", 10, "Minimum tokens per document")
	cmd.Flags().IntVar(&cfg.MaxLength, "max-length", 100, "Maximum tokens per document")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default: random)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")

	return cmd
}
