// Package replication copies monitor state from one store to another, for
// example when moving from the file store to Postgres.
package replication

import (
	"context"
	"fmt"
	"log/slog"

	"page-monitor/pkg/diff"
	"page-monitor/pkg/domain"
	"page-monitor/pkg/store"
)

const defaultBatchSize = 100

// Config wires the replication dependencies.
type Config struct {
	Source      store.Store
	Destination store.Store

	// BatchSize bounds how many reports are copied between progress logs.
	BatchSize int
	Logger    *slog.Logger
}

// Stats summarizes one replication.
type Stats struct {
	SnapshotCopied  bool
	ReportsSeen     int
	ReportsInserted int
	ReportsSkipped  int
}

// Replicator copies the snapshot and all change reports from Source to
// Destination. Reports whose ID already exists in Destination are skipped,
// so running it twice is harmless.
type Replicator struct {
	src       store.Store
	dst       store.Store
	batchSize int
	logger    *slog.Logger
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source store is required")
	}
	if cfg.Destination == nil {
		return nil, fmt.Errorf("destination store is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Replicator{
		src:       cfg.Source,
		dst:       cfg.Destination,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}, nil
}

// Replicate copies everything. The destination snapshot is replaced when
// the source has one.
func (r *Replicator) Replicate(ctx context.Context) (Stats, error) {
	var stats Stats

	copied, err := r.copySnapshot(ctx)
	if err != nil {
		return stats, err
	}
	stats.SnapshotCopied = copied

	reports, err := r.src.ListReports(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list source reports: %w", err)
	}
	existing, err := r.existingIDs(ctx)
	if err != nil {
		return stats, err
	}

	r.logger.Info("replication: loaded source reports", "count", len(reports), "already_present", len(existing))

	for start := 0; start < len(reports); start += r.batchSize {
		end := min(start+r.batchSize, len(reports))
		inserted, err := r.copyBatch(ctx, reports[start:end], existing)
		stats.ReportsSeen += end - start
		stats.ReportsInserted += inserted
		stats.ReportsSkipped += end - start - inserted
		if err != nil {
			return stats, fmt.Errorf("failed to copy reports [%d:%d]: %w", start, end, err)
		}
		r.logger.Info("replication: progress", "processed", stats.ReportsSeen, "total", len(reports), "inserted", stats.ReportsInserted)
	}

	return stats, nil
}

func (r *Replicator) copySnapshot(ctx context.Context) (bool, error) {
	snap, ok, err := r.src.LoadSnapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load source snapshot: %w", err)
	}
	if !ok {
		r.logger.Info("replication: source has no snapshot")
		return false, nil
	}
	if err := snap.Verify(); err != nil {
		return false, fmt.Errorf("source snapshot is corrupt: %w", err)
	}
	if snap.Checksum == "" {
		snap.Checksum = domain.Checksum(snap.Content)
	}
	if err := r.dst.SaveSnapshot(ctx, snap); err != nil {
		return false, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return true, nil
}

func (r *Replicator) existingIDs(ctx context.Context) (map[string]bool, error) {
	reports, err := r.dst.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list destination reports: %w", err)
	}
	ids := make(map[string]bool, len(reports))
	for _, rep := range reports {
		ids[rep.ID] = true
	}
	return ids, nil
}

// copyBatch appends the reports of batch missing from existing and returns
// how many were written.
func (r *Replicator) copyBatch(ctx context.Context, batch []domain.ChangeReport, existing map[string]bool) (int, error) {
	inserted := 0
	for _, rep := range batch {
		if existing[rep.ID] {
			continue
		}
		location, err := r.dst.AppendReport(ctx, rep)
		if err != nil {
			return inserted, fmt.Errorf("append report %s: %w", rep.ID, err)
		}
		existing[rep.ID] = true
		inserted++
		r.logger.Debug("replication: report copied", "id", rep.ID, "location", location)
	}
	return inserted, nil
}

// Verify checks that the newest report in s leads to the stored snapshot:
// the report diff, reversed and applied to the snapshot, must apply cleanly
// and replaying it forward must give the snapshot back.
func Verify(ctx context.Context, s store.Store) error {
	snap, ok, err := s.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	reports, err := s.ListReports(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(reports) == 0 {
		return nil
	}

	latest := reports[len(reports)-1]
	before, err := diff.Apply(snap.Content, diff.Reverse(latest.Diff))
	if err != nil {
		return fmt.Errorf("report %s does not match the snapshot: %w", latest.ID, err)
	}
	after, err := diff.Apply(before, latest.Diff)
	if err != nil {
		return fmt.Errorf("report %s does not replay: %w", latest.ID, err)
	}
	if after != snap.Content {
		return fmt.Errorf("report %s does not lead to the snapshot", latest.ID)
	}
	return nil
}
