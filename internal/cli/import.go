package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rentalsearch-ai/internal/app"
	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/storage"
)

var importDBPath string

var importCmd = &cobra.Command{
	Use:   "import [listings.json]",
	Short: "Import a JSON listing file into the SQLite corpus",
	Long: `Reads a JSON array of listing records and replaces the contents of the listings
table in the database given by --db. Point CORPUS_DB_PATH at the same file to serve it.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importDBPath, "db", "./data/listings.db", "path to the SQLite corpus database")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	records, err := listing.NewFileSource(args[0]).Load(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(importDBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := app.OpenListingsDB(importDBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	repo := storage.NewListingRepo(db, importDBPath)
	if err := repo.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d listings into %s\n", len(records), importDBPath)
	return nil
}
