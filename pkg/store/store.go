// Package store persists the current snapshot and the log of change reports.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"

	"page-monitor/pkg/domain"
)

// ErrReportExists is returned when a report with the same ID is already stored
// and no free ID could be derived from it.
var ErrReportExists = errors.New("change report already exists")

// maxReportSuffix bounds the "-N" suffixes tried for colliding report IDs.
const maxReportSuffix = 1000

// Store is the persistence boundary of the pipeline.
type Store interface {
	// LoadSnapshot returns the stored snapshot. found is false when nothing
	// has been stored yet; that is not an error.
	LoadSnapshot(ctx context.Context) (snap domain.Snapshot, found bool, err error)

	// SaveSnapshot replaces the stored snapshot.
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error

	// AppendReport stores a new report and returns where it was written.
	// Existing reports are never overwritten.
	AppendReport(ctx context.Context, report domain.ChangeReport) (string, error)

	// ListReports returns all stored reports ordered by capture time, then ID.
	ListReports(ctx context.Context) ([]domain.ChangeReport, error)

	Close() error
}

// SnapshotLoader is the read side of Store.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (domain.Snapshot, bool, error)
}

// LoadPrevious loads the previous content with the soft-fail policy: a
// missing, unreadable or corrupted snapshot is logged and reported as None.
// When the stored snapshot belongs to another URL it is still used, with a warning.
func LoadPrevious(ctx context.Context, s SnapshotLoader, url string, logger *slog.Logger) domain.Previous {
	if logger == nil {
		logger = slog.Default()
	}

	snap, found, err := s.LoadSnapshot(ctx)
	if err != nil {
		logger.Warn("store: failed to load previous state, starting fresh", "error", err)
		return domain.None()
	}
	if !found {
		return domain.None()
	}
	if err := snap.Verify(); err != nil {
		logger.Warn("store: previous state is corrupted, starting fresh", "error", err)
		return domain.None()
	}
	if snap.URL != "" && snap.URL != url {
		logger.Warn("store: previous state was captured for a different URL", "stored_url", snap.URL, "url", url)
	}

	return domain.Some(snap.Content)
}

// sortReports orders reports by capture time, then by ID. IDs alone do not
// sort older report names (20060102_150405) among the current ones.
func sortReports(reports []domain.ChangeReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		if !reports[i].Timestamp.Equal(reports[j].Timestamp) {
			return reports[i].Timestamp.Before(reports[j].Timestamp)
		}
		return reports[i].ID < reports[j].ID
	})
}

// candidateID returns the ID to try for the given attempt: the report's own
// ID first, then "-1", "-2", ... suffixed variants.
func candidateID(id string, attempt int) string {
	if attempt == 0 {
		return id
	}
	return id + "-" + strconv.Itoa(attempt)
}
