package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	supabase "github.com/supabase-community/supabase-go"

	"page-monitor/pkg/domain"
)

// snapshotRow and reportRow mirror the SQL schema for the PostgREST API.
type snapshotRow struct {
	ID         int    `json:"id"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	Checksum   string `json:"checksum"`
	CapturedAt string `json:"captured_at"`
}

type reportRow struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CapturedAt string `json:"captured_at"`
	Diff       string `json:"diff"`
}

// RESTStore talks to the snapshot and change_report tables of a Supabase
// project through its REST API. The tables must already exist; the schema is
// the one SQLStore creates.
type RESTStore struct {
	client *supabase.Client
}

// NewRESTStore wraps an initialized SDK client.
func NewRESTStore(client *supabase.Client) (*RESTStore, error) {
	if client == nil {
		return nil, fmt.Errorf("supabase SDK client is required")
	}
	return &RESTStore{client: client}, nil
}

// LoadSnapshot implements Store
func (s *RESTStore) LoadSnapshot(_ context.Context) (domain.Snapshot, bool, error) {
	var rows []snapshotRow
	_, err := s.client.From("snapshot").
		Select("*", "", false).
		Eq("id", strconv.Itoa(snapshotRowID)).
		ExecuteTo(&rows)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to query snapshot: %w", err)
	}
	if len(rows) == 0 {
		return domain.Snapshot{}, false, nil
	}

	ts, err := time.Parse(time.RFC3339Nano, rows[0].CapturedAt)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to parse snapshot timestamp: %w", err)
	}
	return domain.Snapshot{
		Timestamp: ts,
		URL:       rows[0].URL,
		Content:   rows[0].Content,
		Checksum:  rows[0].Checksum,
	}, true, nil
}

// SaveSnapshot implements Store
func (s *RESTStore) SaveSnapshot(_ context.Context, snap domain.Snapshot) error {
	row := snapshotRow{
		ID:         snapshotRowID,
		URL:        snap.URL,
		Content:    snap.Content,
		Checksum:   snap.Checksum,
		CapturedAt: snap.Timestamp.Format(time.RFC3339Nano),
	}
	if _, _, err := s.client.From("snapshot").Upsert(row, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// AppendReport implements Store
func (s *RESTStore) AppendReport(_ context.Context, report domain.ChangeReport) (string, error) {
	for attempt := 0; attempt < maxReportSuffix; attempt++ {
		row := reportRow{
			ID:         candidateID(report.ID, attempt),
			URL:        report.URL,
			CapturedAt: report.Timestamp.Format(time.RFC3339Nano),
			Diff:       strings.Join(report.Diff, "\n"),
		}
		_, _, err := s.client.From("change_report").Insert(row, false, "", "minimal", "").Execute()
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to insert report: %w", err)
		}
		return "change_report/" + row.ID, nil
	}
	return "", fmt.Errorf("%w: %s", ErrReportExists, report.ID)
}

// ListReports implements Store
func (s *RESTStore) ListReports(_ context.Context) ([]domain.ChangeReport, error) {
	var rows []reportRow
	if _, err := s.client.From("change_report").Select("*", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	reports := make([]domain.ChangeReport, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("report %s: failed to parse timestamp: %w", row.ID, err)
		}
		r := domain.ChangeReport{ID: row.ID, Timestamp: ts, URL: row.URL}
		if row.Diff != "" {
			r.Diff = strings.Split(row.Diff, "\n")
		}
		reports = append(reports, r)
	}
	sortReports(reports)
	return reports, nil
}

// Close implements Store
func (s *RESTStore) Close() error { return nil }

// isUniqueViolation recognises Postgres error 23505 as surfaced by PostgREST.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
