// Package cli implements the rentalctl command line.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rentalsearch-ai/internal/app"
	"rentalsearch-ai/internal/config"
	"rentalsearch-ai/internal/service"
)

var verbose bool

// assistantFactory builds the assistant used by the ask command. Tests replace it.
var assistantFactory = func(ctx context.Context) (service.AssistantService, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a.Assistant, a.Close, nil
}

var rootCmd = &cobra.Command{
	Use:   "rentalctl",
	Short: "Query and manage the rental listing assistant",
	Long: `rentalctl answers rental search questions against the configured listing corpus
and imports JSON listing files into the SQLite corpus database.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
