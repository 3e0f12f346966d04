package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
	"research-rag/internal/storage"
	"research-rag/internal/vectorstore"
)

const defaultBatchSize = 64

type importOptions struct {
	from       string
	sqlitePath string
	qdrantURL  string
	collection string
	batchSize  int
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	imp := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the JSON corpus into SQLite and/or Qdrant",
		Long: `Reads chunk records produced by the preprocessing pipeline, validates
them (unique chunk IDs, uniform embedding dimension) and writes them to the
selected backing stores. Both stores end up holding exactly the imported
corpus: SQLite contents are replaced in one transaction; Qdrant points are
upserted in batches with IDs derived from chunk IDs, then points left over
from earlier imports are deleted.

Examples:
  corpusctl import --from data/papers.json --sqlite data/corpus.db
  corpusctl import --from 'data/papers-*.json' --qdrant-url http://localhost:6333 --collection papers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, imp)
		},
	}

	cmd.Flags().StringVar(&imp.from, "from", "", "corpus JSON path or glob (default from --corpus)")
	cmd.Flags().StringVar(&imp.sqlitePath, "sqlite", "", "write to this SQLite database")
	cmd.Flags().StringVar(&imp.qdrantURL, "qdrant-url", "", "write to the Qdrant instance at this URL")
	cmd.Flags().StringVar(&imp.collection, "collection", "", "Qdrant collection (default from QDRANT_COLLECTION)")
	cmd.Flags().IntVar(&imp.batchSize, "batch", defaultBatchSize, "Qdrant upsert batch size")
	return cmd
}

func runImport(cmd *cobra.Command, opts *globalOptions, imp *importOptions) error {
	ctx := cmd.Context()
	logger := contextutil.LoggerFromContext(ctx)
	cfg := opts.cfg

	if imp.sqlitePath == "" && imp.qdrantURL == "" {
		return errors.New("nothing to do: pass --sqlite and/or --qdrant-url")
	}
	if imp.batchSize <= 0 {
		return fmt.Errorf("--batch must be positive, got %d", imp.batchSize)
	}
	from := imp.from
	if from == "" {
		from = cfg.CorpusPath
	}

	chunks, err := corpus.NewJSONSource(from).Load(ctx)
	if err != nil {
		return err
	}
	if err := corpus.Validate(chunks, cfg.EmbeddingDim); err != nil {
		return fmt.Errorf("corpus rejected: %w", err)
	}
	logger.InfoContext(ctx, "corpus read", "from", from, "chunks", len(chunks))

	if imp.sqlitePath != "" {
		if err := importSQLite(cmd, imp.sqlitePath, chunks); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chunks into %s\n", len(chunks), imp.sqlitePath)
	}

	if imp.qdrantURL != "" {
		collection := imp.collection
		if collection == "" {
			collection = cfg.QdrantCollection
		}
		if err := importQdrant(cmd, imp.qdrantURL, collection, cfg.EmbeddingDim, imp.batchSize, chunks); err != nil {
			return err
		}
	}
	return nil
}

func importSQLite(cmd *cobra.Command, path string, chunks []corpus.Chunk) error {
	db, err := storage.New(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := storage.NewChunkRepo(db)
	bar := newProgressBar(cmd, len(chunks), "SQLite")
	if err := repo.ReplaceAll(cmd.Context(), chunks, func() { _ = bar.Add(1) }); err != nil {
		return fmt.Errorf("failed to write chunks: %w", err)
	}
	if err := bar.Finish(); err != nil {
		return err
	}

	n, err := repo.Count(cmd.Context())
	if err != nil {
		return err
	}
	if n != len(chunks) {
		return fmt.Errorf("database holds %d chunks after import, expected %d", n, len(chunks))
	}
	return nil
}

func importQdrant(cmd *cobra.Command, url, collection string, dim, batchSize int, chunks []corpus.Chunk) error {
	ctx := cmd.Context()
	importID := uuid.NewString()

	store, err := vectorstore.NewQdrantStore(url, collection)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.EnsureCollection(ctx, dim); err != nil {
		return err
	}

	bar := newProgressBar(cmd, len(chunks), "Qdrant")
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		if err := store.UpsertChunks(ctx, chunks[start:end], start, importID); err != nil {
			return err
		}
		_ = bar.Add(end - start)
	}
	if err := bar.Finish(); err != nil {
		return err
	}

	if err := store.DeleteStale(ctx, importID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chunks into Qdrant collection %s\n", len(chunks), store.Collection())
	return nil
}

func newProgressBar(cmd *cobra.Command, total int, target string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Importing into %s[reset]", target)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)
}
