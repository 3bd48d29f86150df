package cmd

import (
	"place-indexer/bootstrap"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the search index from the store",
	Long: `Rebuild the search index from the store and print a JSON summary.

With --place only that place is re-indexed, or removed from the index when
it no longer exists in the store.

Examples:
  place-indexer sync
  place-indexer sync --place 2b7f4a3c-1d2e-4f5a-8b9c-0d1e2f3a4b5c`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("place", "", "sync a single place by id")
}

func runSync(cmd *cobra.Command, _ []string) error {
	placeID, _ := cmd.Flags().GetString("place")
	return bootstrap.RunSync(cmd.Context(), placeID, cmd.OutOrStdout())
}
