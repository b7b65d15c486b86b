package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"page-monitor/pkg/config"
	"page-monitor/pkg/display"
	"page-monitor/pkg/domain"
	"page-monitor/pkg/store"
)

func (a *app) newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List stored change reports, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.listReports(cmd)
			if err != nil {
				return err
			}
			display.PrintHistory(a.stdout, reports)
			return nil
		},
	}
}

func (a *app) newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored change report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.listReports(cmd)
			if err != nil {
				return err
			}
			for _, r := range reports {
				if r.ID == args[0] {
					display.PrintReport(a.stdout, r)
					return nil
				}
			}
			return fmt.Errorf("report %s not found", args[0])
		},
	}
}

func (a *app) listReports(cmd *cobra.Command) ([]domain.ChangeReport, error) {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return nil, err
	}
	return withStore(cmd.Context(), cfg, logger, func(s store.Store) ([]domain.ChangeReport, error) {
		reports, err := s.ListReports(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		return reports, nil
	})
}

func withStore[T any](ctx context.Context, cfg *config.Config, logger *slog.Logger, fn func(store.Store) (T, error)) (T, error) {
	var zero T
	s, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return zero, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("cli: failed to close store", "error", err)
		}
	}()
	return fn(s)
}
