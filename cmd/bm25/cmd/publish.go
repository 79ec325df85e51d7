package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
)

func newPublishCmd(a *app) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "publish <input>",
		Short: "Send documents to the Kafka document-ingest topic",
		Long: `Publish reads documents from a file and produces them onto the
document-ingest topic, where 'bm25 build --from kafka' picks them up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("publish needs kafka.brokers to be configured")
			}
			ctx := cmd.Context()
			src, err := a.openInput(ctx, &in, args)
			if err != nil {
				return err
			}
			defer src.Close()

			producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.DocumentIngest)
			defer producer.Close()
			n, err := publisher.New(producer).Documents(ctx, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d documents to %s\n", n, a.cfg.Kafka.Topics.DocumentIngest)
			return nil
		},
	}

	in.register(cmd, false)
	return cmd
}
