package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"page-monitor/pkg/domain"
)

const (
	// StateFileName is the snapshot file inside the state directory.
	StateFileName = "previous_state.json"

	reportPrefix = "changes_"
	reportSuffix = ".txt"
)

// FileStore keeps the snapshot as an indented JSON file and every change
// report as its own text file.
type FileStore struct {
	stateDir   string
	changesDir string
}

// NewFileStore creates a file store, creating both directories if absent.
func NewFileStore(stateDir, changesDir string) (*FileStore, error) {
	for _, dir := range []string{stateDir, changesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &FileStore{stateDir: stateDir, changesDir: changesDir}, nil
}

// StatePath returns the path of the snapshot file.
func (s *FileStore) StatePath() string {
	return filepath.Join(s.stateDir, StateFileName)
}

// LoadSnapshot implements Store
func (s *FileStore) LoadSnapshot(_ context.Context) (domain.Snapshot, bool, error) {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Snapshot{}, false, nil
		}
		return domain.Snapshot{}, false, fmt.Errorf("failed to read state file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to parse state file: %w", err)
	}

	return snap, true, nil
}

// SaveSnapshot implements Store. The file is replaced through a rename so a
// failed write never truncates the previous snapshot.
func (s *FileStore) SaveSnapshot(_ context.Context, snap domain.Snapshot) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(s.stateDir, StateFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.StatePath()); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// AppendReport implements Store. Files are created exclusively; a name that
// is already taken gets a numeric suffix.
func (s *FileStore) AppendReport(_ context.Context, report domain.ChangeReport) (string, error) {
	for attempt := 0; attempt < maxReportSuffix; attempt++ {
		id := candidateID(report.ID, attempt)
		path := filepath.Join(s.changesDir, reportPrefix+id+reportSuffix)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create report file: %w", err)
		}

		report.ID = id
		if _, err := f.WriteString(report.Text()); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write report file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write report file: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("%w: %s", ErrReportExists, report.ID)
}

// ListReports implements Store. Files that do not parse as reports are skipped.
func (s *FileStore) ListReports(_ context.Context) ([]domain.ChangeReport, error) {
	entries, err := os.ReadDir(s.changesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var reports []domain.ChangeReport
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, reportPrefix) || !strings.HasSuffix(name, reportSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.changesDir, name))
		if err != nil {
			continue // Skip unreadable files
		}

		id := strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), reportSuffix)
		report, err := domain.ParseReport(id, string(data))
		if err != nil {
			continue // Skip files that are not reports
		}
		reports = append(reports, report)
	}

	sortReports(reports)
	return reports, nil
}

// Close implements Store
func (s *FileStore) Close() error { return nil }
