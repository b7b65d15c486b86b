package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"page-monitor/pkg/db"
	"page-monitor/pkg/domain"
)

// Dialect captures the few differences between the SQL backends.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

const snapshotRowID = 1

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY,
		url TEXT NOT NULL,
		content TEXT NOT NULL,
		checksum TEXT NOT NULL,
		captured_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS change_report (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		captured_at TEXT NOT NULL,
		diff TEXT NOT NULL
	)`,
}

// SQLStore persists state in a SQL database reachable through a db.DBProvider.
// The snapshot lives in a single-row table; reports get one row each.
type SQLStore struct {
	provider db.DBProvider
	dialect  Dialect
	closer   func() error
}

// NewSQLStore wraps an already connected provider and creates the schema if needed.
// closer, if not nil, is called by Close.
func NewSQLStore(ctx context.Context, provider db.DBProvider, dialect Dialect, closer func() error) (*SQLStore, error) {
	if provider == nil || provider.DB() == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	s := &SQLStore{provider: provider, dialect: dialect, closer: closer}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.provider.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// q rewrites "?" placeholders for the dialect.
func (s *SQLStore) q(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LoadSnapshot implements Store
func (s *SQLStore) LoadSnapshot(ctx context.Context) (domain.Snapshot, bool, error) {
	var (
		snap       domain.Snapshot
		capturedAt string
	)
	err := s.provider.DB().QueryRowContext(ctx,
		s.q(`SELECT url, content, checksum, captured_at FROM snapshot WHERE id = ?`), snapshotRowID,
	).Scan(&snap.URL, &snap.Content, &snap.Checksum, &capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to query snapshot: %w", err)
	}

	snap.Timestamp, err = time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to parse snapshot timestamp: %w", err)
	}
	return snap, true, nil
}

// SaveSnapshot implements Store
func (s *SQLStore) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	_, err := s.provider.DB().ExecContext(ctx, s.q(`
		INSERT INTO snapshot (id, url, content, checksum, captured_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			url = excluded.url,
			content = excluded.content,
			checksum = excluded.checksum,
			captured_at = excluded.captured_at`),
		snapshotRowID, snap.URL, snap.Content, snap.Checksum, snap.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// AppendReport implements Store
func (s *SQLStore) AppendReport(ctx context.Context, report domain.ChangeReport) (string, error) {
	query := s.q(`
		INSERT INTO change_report (id, url, captured_at, diff)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	for attempt := 0; attempt < maxReportSuffix; attempt++ {
		id := candidateID(report.ID, attempt)
		res, err := s.provider.DB().ExecContext(ctx, query,
			id, report.URL, report.Timestamp.Format(time.RFC3339Nano), strings.Join(report.Diff, "\n"))
		if err != nil {
			return "", fmt.Errorf("failed to insert report: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("failed to insert report: %w", err)
		}
		if inserted == 1 {
			return "change_report/" + id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrReportExists, report.ID)
}

// ListReports implements Store
func (s *SQLStore) ListReports(ctx context.Context) ([]domain.ChangeReport, error) {
	rows, err := s.provider.DB().QueryContext(ctx,
		`SELECT id, url, captured_at, diff FROM change_report ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.ChangeReport
	for rows.Next() {
		var (
			r          domain.ChangeReport
			capturedAt string
			diff       string
		)
		if err := rows.Scan(&r.ID, &r.URL, &capturedAt, &diff); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, capturedAt); err != nil {
			return nil, fmt.Errorf("report %s: failed to parse timestamp: %w", r.ID, err)
		}
		if diff != "" {
			r.Diff = strings.Split(diff, "\n")
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	sortReports(reports)
	return reports, nil
}

// Close implements Store
func (s *SQLStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
