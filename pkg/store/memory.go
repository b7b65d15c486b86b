package store

import (
	"context"
	"fmt"
	"sync"

	"page-monitor/pkg/domain"
)

// MemoryStore keeps everything in process. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot *domain.Snapshot
	reports  map[string]domain.ChangeReport
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]domain.ChangeReport)}
}

// LoadSnapshot implements Store
func (s *MemoryStore) LoadSnapshot(_ context.Context) (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return domain.Snapshot{}, false, nil
	}
	return *s.snapshot, true, nil
}

// SaveSnapshot implements Store
func (s *MemoryStore) SaveSnapshot(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = &snap
	return nil
}

// AppendReport implements Store
func (s *MemoryStore) AppendReport(_ context.Context, report domain.ChangeReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxReportSuffix; attempt++ {
		id := candidateID(report.ID, attempt)
		if _, exists := s.reports[id]; exists {
			continue
		}
		report.ID = id
		report.Diff = append([]string(nil), report.Diff...)
		s.reports[id] = report
		return "memory:" + id, nil
	}
	return "", fmt.Errorf("%w: %s", ErrReportExists, report.ID)
}

// ListReports implements Store
func (s *MemoryStore) ListReports(_ context.Context) ([]domain.ChangeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]domain.ChangeReport, 0, len(s.reports))
	for _, r := range s.reports {
		reports = append(reports, r)
	}
	sortReports(reports)
	return reports, nil
}

// Close implements Store
func (s *MemoryStore) Close() error { return nil }
