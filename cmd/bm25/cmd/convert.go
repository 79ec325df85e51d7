package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/source"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		in     inputFlags
		output string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert text, CSV or JSONL documents to the benchmark JSON format",
		Long: `Convert tokenizes every document with the default tokenizer and writes
{"key": ["token", ...], ...} in input order. Text files yield one document
per non-empty line; CSV and JSONL read keys and text from the configured
column or field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := a.openInput(ctx, &in, args)
			if err != nil {
				return err
			}
			defer src.Close()

			stats, err := writeCorpus(ctx, output, pretty, src)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Input  string `json:"input"`
				Output string `json:"output"`
				source.CorpusStats
			}{args[0], output, stats})
		},
	}

	in.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Corpus file to write")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
