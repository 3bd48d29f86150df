// Package cmd contains the place-indexer CLI commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd serves by default when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "place-indexer",
	Short: "Keeps the place search index in sync with the place store",
	Long: `place-indexer mirrors places from PostgreSQL into Meilisearch and serves
place search, place details and crowdsourced observations over HTTP.

Example usage:
  place-indexer serve               # Run the HTTP server and change consumer
  place-indexer sync                # Rebuild the whole index once
  place-indexer sync --place <id>   # Re-index a single place`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	rootCmd.Version = v
}
