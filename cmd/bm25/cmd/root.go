// Package cmd provides the CLI commands for bm25.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/logger"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        *config.Config
}

// NewRootCmd creates the root command for the bm25 CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "bm25",
		Short: "Build and query compact BM25 index files",
		Long: `bm25 builds BM25 full-text indexes into a single binary file and
answers ranked queries against them, from the command line or over HTTP.

Configuration is read from --config (YAML) and BM25_* environment
variables; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newBenchCmd(a))
	cmd.AddCommand(newGenerateCmd(a))
	cmd.AddCommand(newConvertCmd(a))
	cmd.AddCommand(newPublishCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newLoadtestCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	a.cfg = cfg
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))
	return nil
}

// indexPath returns the --index flag value, falling back to the configured
// path.
func (a *app) indexPath(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Index.Path
}

// Execute runs the root command with SIGINT and SIGTERM cancelling its
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
