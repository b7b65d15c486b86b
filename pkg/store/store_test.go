package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-monitor/pkg/domain"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	captured := time.Date(2026, 10, 19, 13, 41, 5, 123456000, time.UTC)

	t.Run("empty store has no snapshot", func(t *testing.T) {
		s := newStore(t)
		_, found, err := s.LoadSnapshot(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		s := newStore(t)
		snap := domain.NewSnapshot("https://example.com", "A\nB & <C>\nÜber", captured)
		require.NoError(t, s.SaveSnapshot(ctx, snap))

		got, found, err := s.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, snap.Content, got.Content)
		assert.Equal(t, snap.URL, got.URL)
		assert.Equal(t, snap.Checksum, got.Checksum)
		assert.True(t, snap.Timestamp.Equal(got.Timestamp))
	})

	t.Run("snapshot is overwritten", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveSnapshot(ctx, domain.NewSnapshot("https://example.com", "old", captured)))
		require.NoError(t, s.SaveSnapshot(ctx, domain.NewSnapshot("https://example.com", "new", captured.Add(time.Minute))))

		got, found, err := s.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "new", got.Content)
	})

	t.Run("reports accumulate and never collide", func(t *testing.T) {
		s := newStore(t)
		report := domain.ChangeReport{
			ID:        domain.ReportID(captured),
			Timestamp: captured,
			URL:       "https://example.com",
			Diff:      []string{"--- Previous Version", "+++ Current Version", "@@ -1 +1 @@", "-B", "+X"},
		}

		first, err := s.AppendReport(ctx, report)
		require.NoError(t, err)
		second, err := s.AppendReport(ctx, report)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		reports, err := s.ListReports(ctx)
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, report.ID, reports[0].ID)
		assert.Equal(t, report.ID+"-1", reports[1].ID)
		for _, r := range reports {
			assert.Equal(t, report.URL, r.URL)
			assert.Equal(t, report.Diff, r.Diff)
		}
	})

	t.Run("reports are listed in capture order", func(t *testing.T) {
		s := newStore(t)
		older := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
		newer := older.Add(time.Hour)
		diff := []string{"@@ -1 +1 @@", "-a", "+b"}

		_, err := s.AppendReport(ctx, domain.ChangeReport{ID: domain.ReportID(newer), Timestamp: newer, URL: "https://example.com", Diff: diff})
		require.NoError(t, err)
		_, err = s.AppendReport(ctx, domain.ChangeReport{ID: "20261019_120000", Timestamp: older, URL: "https://example.com", Diff: diff})
		require.NoError(t, err)

		reports, err := s.ListReports(ctx)
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, "20261019_120000", reports[0].ID)
		assert.Equal(t, domain.ReportID(newer), reports[1].ID)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		dir := t.TempDir()
		s, err := NewFileStore(filepath.Join(dir, "state"), filepath.Join(dir, "changes"))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := Open(context.Background(), Options{Backend: BackendSQLite, DSN: ":memory:"})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state"), filepath.Join(dir, "changes"))
	require.NoError(t, err)
	ctx := context.Background()

	snap := domain.NewSnapshot("https://example.com/?a=1&b=2", "<b>Preis</b> – 10 €", time.Now())
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	data, err := os.ReadFile(filepath.Join(dir, "state", "previous_state.json"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "\n  \"content\": \"<b>Preis</b> – 10 €\"", "indented, HTML and non-ASCII kept as is")
	assert.Contains(t, text, `"url": "https://example.com/?a=1&b=2"`)

	at := time.Date(2026, 10, 19, 13, 41, 5, 0, time.Local)
	path, err := s.AppendReport(ctx, domain.ChangeReport{ID: domain.ReportID(at), Timestamp: at, URL: "u", Diff: []string{"+x"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "changes", "changes_20261019134105000000.txt"), path)

	report, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Changes detected at 2026-10-19 13:41:05\nURL: u\n"+strings.Repeat("-", 80)+"\n+x", string(report))

	entries, err := os.ReadDir(filepath.Join(dir, "state"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state"), filepath.Join(dir, "changes"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "changes", "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "changes", "changes_bad.txt"), []byte("garbage"), 0o644))

	reports, err := s.ListReports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestFileStore_ListsOlderReportNamesFirst(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state"), filepath.Join(dir, "changes"))
	require.NoError(t, err)

	legacy := "Changes detected at 2026-10-19 07:30:00\nURL: https://example.com\n" +
		strings.Repeat("-", 80) + "\n--- Previous Version\n+++ Current Version\n@@ -1 +1 @@\n-a\n+b"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "changes", "changes_20261019_073000.txt"), []byte(legacy), 0o644))

	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.Local)
	_, err = s.AppendReport(context.Background(), domain.ChangeReport{
		ID:        domain.ReportID(at),
		Timestamp: at,
		URL:       "https://example.com",
		Diff:      []string{"@@ -1 +1 @@", "-b", "+c"},
	})
	require.NoError(t, err)

	reports, err := s.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "20261019_073000", reports[0].ID)
	assert.Equal(t, domain.ReportID(at), reports[1].ID)
}

func TestFileStore_SaveFailsWhenStateDirIsGone(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	s, err := NewFileStore(stateDir, filepath.Join(dir, "changes"))
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(stateDir))
	require.NoError(t, os.WriteFile(stateDir, []byte("not a dir"), 0o644))

	err = s.SaveSnapshot(context.Background(), domain.NewSnapshot("u", "c", time.Now()))
	assert.Error(t, err)
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoadPrevious(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		prev := LoadPrevious(ctx, NewMemoryStore(), "u", nil)
		assert.False(t, prev.Found)
	})

	t.Run("present", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.SaveSnapshot(ctx, domain.NewSnapshot("u", "A\nB", time.Now())))

		prev := LoadPrevious(ctx, s, "u", nil)
		assert.Equal(t, domain.Some("A\nB"), prev)
	})

	t.Run("malformed file", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewFileStore(dir, dir)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(s.StatePath(), []byte("{not json"), 0o644))

		var logs bytes.Buffer
		prev := LoadPrevious(ctx, s, "u", newLogger(&logs))
		assert.False(t, prev.Found)
		assert.Contains(t, logs.String(), "failed to load previous state")
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		s := NewMemoryStore()
		snap := domain.NewSnapshot("u", "A", time.Now())
		snap.Content = "tampered"
		require.NoError(t, s.SaveSnapshot(ctx, snap))

		var logs bytes.Buffer
		prev := LoadPrevious(ctx, s, "u", newLogger(&logs))
		assert.False(t, prev.Found)
		assert.Contains(t, logs.String(), "corrupted")
	})

	t.Run("different url", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.SaveSnapshot(ctx, domain.NewSnapshot("https://a.example", "A", time.Now())))

		var logs bytes.Buffer
		prev := LoadPrevious(ctx, s, "https://b.example", newLogger(&logs))
		assert.True(t, prev.Found)
		assert.Contains(t, logs.String(), "different URL")
	})

	t.Run("legacy file without checksum", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewFileStore(dir, dir)
		require.NoError(t, err)
		legacy := `{"timestamp": "2026-10-19T13:41:05.123456+02:00", "url": "u", "content": "A\nB"}`
		require.NoError(t, os.WriteFile(s.StatePath(), []byte(legacy), 0o644))

		prev := LoadPrevious(ctx, s, "u", nil)
		assert.Equal(t, domain.Some("A\nB"), prev)
	})
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	s := &SQLStore{dialect: Postgres}
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", s.q("INSERT INTO t (a, b) VALUES (?, ?)"))

	s.dialect = SQLite
	assert.Equal(t, "SELECT ? ", s.q("SELECT ? "))
}

func TestNewSQLStore_RequiresConnection(t *testing.T) {
	_, err := NewSQLStore(context.Background(), nil, SQLite, nil)
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "redis"})
	assert.Error(t, err)
}

func TestOpen_FileIsDefault(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), Options{StateDir: filepath.Join(dir, "s"), ChangesDir: filepath.Join(dir, "c")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(errors.New(`(23505) duplicate key value violates unique constraint "change_report_pkey"`)))
	assert.False(t, isUniqueViolation(errors.New("permission denied")))
}

func TestNewMongoStore_RequiresCollections(t *testing.T) {
	_, err := NewMongoStore(nil, nil, nil)
	assert.Error(t, err)
}

func TestNewRESTStore_RequiresClient(t *testing.T) {
	_, err := NewRESTStore(nil)
	assert.Error(t, err)
}
