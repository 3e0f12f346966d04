// Package cli implements corpusctl, the offline tool for importing and
// inspecting the retrieval corpus.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"research-rag/internal/config"
	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
	"research-rag/internal/retrieval"
	"research-rag/internal/sources"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	source     string
	corpusPath string
	dbPath     string
	configFile string

	cfg *config.Config
}

// NewRootCmd builds the corpusctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "corpusctl",
		Short: "Import and inspect the retrieval corpus",
		Long: `corpusctl loads the embedded paper corpus produced by the preprocessing
pipeline into SQLite or Qdrant, and runs retrieval queries against any
configured corpus source without starting the API server.

Example usage:
  corpusctl import --from data/papers.json --sqlite data/corpus.db
  corpusctl stats --source sqlite
  corpusctl search --query question.json --top-k 5`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.source, "source", "", "corpus source: file, sqlite or qdrant (default from CORPUS_SOURCE)")
	rootCmd.PersistentFlags().StringVar(&opts.corpusPath, "corpus", "", "corpus JSON path or glob (default from CORPUS_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML tuning file (default from TUNING_FILE)")

	rootCmd.AddCommand(
		newImportCmd(opts),
		newStatsCmd(opts),
		newSearchCmd(opts),
	)
	return rootCmd
}

// load reads the environment configuration, applies flag overrides and installs
// a stderr logger in the command context.
func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if o.source != "" {
		cfg.CorpusSource = o.source
	}
	if o.corpusPath != "" {
		cfg.CorpusPath = o.corpusPath
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.configFile != "" {
		if err := cfg.ApplyTuningFile(o.configFile); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
	cmd.SetContext(contextutil.WithLogger(cmd.Context(), logger))
	return nil
}

// openService opens the configured source and wraps it in a retrieval service.
// The caller must invoke the returned close function.
func (o *globalOptions) openService(cmd *cobra.Command, lambda float64) (*retrieval.Service, func() error, error) {
	src, closeSource, err := sources.Open(cmd.Context(), o.cfg)
	if err != nil {
		return nil, nil, err
	}

	accessor := corpus.NewAccessor(src,
		corpus.WithTTL(o.cfg.CorpusTTL),
		corpus.WithDimension(o.cfg.EmbeddingDim),
	)
	opts := retrieval.DefaultOptions()
	opts.Dimension = o.cfg.EmbeddingDim
	opts.Lambda = lambda
	opts.DefaultTopK = o.cfg.Retrieval.DefaultTopK
	svc := retrieval.NewService(accessor, opts)
	return svc, closeSource, nil
}
