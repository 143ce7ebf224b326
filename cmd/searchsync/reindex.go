package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain/record"
)

var rebuild bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Bulk sync every record from the source database into the index",
	Long: `reindex reads documents from the configured Postgres source in keyset
pages and pushes them through the sync engine's bulk path. With --rebuild
the index is dropped and recreated first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if rebuild {
			a.logger.Info("rebuilding index", zap.String("index", a.search.IndexName()))
			if err := a.search.RebuildIndex(ctx); err != nil {
				return fmt.Errorf("rebuild index: %w", err)
			}
		}
		if err := a.resync(ctx); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}

		counts := a.sync.StatusCounts()
		fmt.Fprintf(cmd.OutOrStdout(), "synced=%d failed=%d\n", counts[record.StatusSynced], counts[record.StatusFailed])
		return nil
	},
}

func init() {
	reindexCmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop and recreate the index before syncing")
	rootCmd.AddCommand(reindexCmd)
}
