package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"page-monitor/pkg/config"
	"page-monitor/pkg/replication"
	"page-monitor/pkg/store"
)

func main() {
	var (
		fromConfig string
		toConfig   string
		batchSize  int
		verify     bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "replicatestate --to <config>",
		Short: "Copy the page snapshot and change reports from one store to another",
		Long: `replicatestate reads the snapshot and every change report from the source
store and writes them to the destination store. Stores are described by
pagemonitor configuration files; an empty --from means the default file
store in the current directory. Reports already present in the destination
are skipped.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			ctx := cmd.Context()

			src, err := openStore(ctx, fromConfig)
			if err != nil {
				return fmt.Errorf("failed to open source: %w", err)
			}
			defer src.Close()

			dst, err := openStore(ctx, toConfig)
			if err != nil {
				return fmt.Errorf("failed to open destination: %w", err)
			}
			defer dst.Close()

			r, err := replication.NewReplicator(replication.Config{
				Source:      src,
				Destination: dst,
				BatchSize:   batchSize,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			stats, err := r.Replicate(ctx)
			if err != nil {
				return err
			}
			logger.Info("replication complete",
				"snapshot_copied", stats.SnapshotCopied,
				"reports_seen", stats.ReportsSeen,
				"reports_inserted", stats.ReportsInserted,
				"reports_skipped", stats.ReportsSkipped)

			if verify {
				if err := replication.Verify(ctx, dst); err != nil {
					return fmt.Errorf("verification failed: %w", err)
				}
				logger.Info("destination verified")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromConfig, "from", "", "Configuration file of the source store")
	cmd.Flags().StringVar(&toConfig, "to", "", "Configuration file of the destination store")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "Reports copied between progress logs")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check that the newest copied report leads to the copied snapshot")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("to")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, configFile string) (store.Store, error) {
	cfg, err := config.Load(nil, configFile)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.StoreOptions())
}
