package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"research-rag/internal/retrieval"
)

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var (
		queryFile string
		topK      int
		lambda    float64
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a retrieval query against the configured corpus",
		Long: `Runs the same filtering, scoring and MMR diversification as the API.
The query file holds a JSON search request:

  {"queryEmbedding": [...], "topK": 5, "filter": {"year": {"min": 2015}}}

Examples:
  corpusctl search --query question.json
  corpusctl search --query question.json --top-k 8 --lambda 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(queryFile)
			if err != nil {
				return fmt.Errorf("failed to read query file: %w", err)
			}
			var req retrieval.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse query file %s: %w", queryFile, err)
			}
			if cmd.Flags().Changed("top-k") {
				req.TopK = &topK
			}

			l := opts.cfg.Retrieval.Lambda
			if cmd.Flags().Changed("lambda") {
				if lambda < 0 || lambda > 1 {
					return fmt.Errorf("--lambda must be within [0, 1], got %v", lambda)
				}
				l = lambda
			}

			svc, closeSource, err := opts.openService(cmd, l)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeSource()
			}()

			resp, err := svc.Search(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			output, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&queryFile, "query", "q", "", "JSON file with the search request (required)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (overrides the request)")
	cmd.Flags().Float64Var(&lambda, "lambda", 0, "MMR relevance weight in [0, 1] (default from config)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
