package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-monitor/pkg/apperr"
	"page-monitor/pkg/store"
)

// page serves a replaceable HTML body
type page struct {
	mu   sync.Mutex
	body string
}

func (p *page) set(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.body = body
}

func (p *page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(p.body))
}

type run struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) run {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return run{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func dirs(t *testing.T) (string, string, []string) {
	t.Helper()
	root := t.TempDir()
	stateDir := filepath.Join(root, "state")
	changesDir := filepath.Join(root, "changes")
	return stateDir, changesDir, []string{"--state-dir", stateDir, "--changes-dir", changesDir}
}

func TestCheck_WrongArgumentCount(t *testing.T) {
	for _, args := range [][]string{nil, {"https://a.example", "https://b.example"}} {
		r := execute(t, args...)
		require.Error(t, r.err)
		assert.ErrorIs(t, r.err, ErrUsage)
		assert.Equal(t, apperr.Usage, apperr.KindOf(r.err))
		assert.Equal(t, "usage: pagemonitor <url>", r.err.Error())
	}
}

func TestCheck_RejectsSchemeWithoutWriting(t *testing.T) {
	stateDir, changesDir, flags := dirs(t)

	r := execute(t, append([]string{"ftp://example.com"}, flags...)...)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "URL must start with http:// or https://")
	assert.Empty(t, r.stdout)

	assert.NoDirExists(t, stateDir)
	assert.NoDirExists(t, changesDir)
}

func TestCheck_UnreachableURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	stateDir, _, flags := dirs(t)

	r := execute(t, append([]string{srv.URL}, flags...)...)
	require.Error(t, r.err)
	assert.Equal(t, apperr.Network, apperr.KindOf(r.err))
	assert.NotContains(t, r.stdout, "Checking webpage")
	assert.NoDirExists(t, stateDir)
}

func TestCheck_EndToEnd(t *testing.T) {
	p := &page{body: "<html><body>\n<p>A</p>\n<p>B</p>\n<p>C</p>\n<script>var x = 1;</script>\n</body></html>"}
	srv := httptest.NewServer(p)
	defer srv.Close()
	stateDir, changesDir, flags := dirs(t)
	args := append([]string{srv.URL}, flags...)

	// first run: initial capture
	r := execute(t, args...)
	require.NoError(t, r.err)
	assert.Equal(t, "Checking webpage: "+srv.URL+"\nInitial state captured.\nState saved.\n", r.stdout)
	assert.FileExists(t, filepath.Join(stateDir, store.StateFileName))
	entries, err := os.ReadDir(changesDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// second run: nothing changed
	r = execute(t, args...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "No changes detected.")
	entries, err = os.ReadDir(changesDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// third run: B became X
	p.set("<html><body>\n<p>A</p>\n<p>X</p>\n<p>C</p>\n</body></html>")
	r = execute(t, append(args, "--print-diff")...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Changes detected!")
	assert.Contains(t, r.stdout, "Changes saved to ")
	assert.Contains(t, r.stdout, "State saved.")

	entries, err = os.ReadDir(changesDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "changes_"))

	report, err := os.ReadFile(filepath.Join(changesDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(report), "URL: "+srv.URL+"\n")
	assert.Contains(t, string(report), "\n-B\n")
	assert.Contains(t, string(report), "\n+X")
	assert.NotContains(t, string(report), "var x")

	// history and show read the same store
	r = execute(t, append([]string{"history"}, flags...)...)
	require.NoError(t, r.err)
	id := strings.TrimSuffix(strings.TrimPrefix(entries[0].Name(), "changes_"), ".txt")
	assert.Contains(t, r.stdout, id)

	r = execute(t, append([]string{"show", id}, flags...)...)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "+X")

	r = execute(t, append([]string{"show", "19700101000000000000"}, flags...)...)
	assert.Error(t, r.err)
}

func TestCheck_SkipProbe(t *testing.T) {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain text"))
	}))
	defer srv.Close()
	_, _, flags := dirs(t)

	r := execute(t, append([]string{srv.URL, "--skip-probe"}, flags...)...)
	require.NoError(t, r.err)
	assert.Zero(t, heads.Load())
	assert.Contains(t, r.stdout, "Initial state captured.")
}

func TestCheck_FailOnEmpty(t *testing.T) {
	srv := httptest.NewServer(&page{body: "<html><body><script>only()</script></body></html>"})
	defer srv.Close()
	stateDir, _, flags := dirs(t)

	r := execute(t, append([]string{srv.URL, "--fail-on-empty"}, flags...)...)
	require.Error(t, r.err)
	assert.Equal(t, apperr.EmptyContent, apperr.KindOf(r.err))
	assert.NoFileExists(t, filepath.Join(stateDir, store.StateFileName))
}

func TestCheck_SQLiteStore(t *testing.T) {
	srv := httptest.NewServer(&page{body: "<p>hello</p>"})
	defer srv.Close()
	dsn := filepath.Join(t.TempDir(), "monitor.db")

	r := execute(t, srv.URL, "--store", "sqlite", "--dsn", dsn)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Initial state captured.")

	r = execute(t, srv.URL, "--store", "sqlite", "--dsn", dsn)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "No changes detected.")
}

func TestCheck_InvalidConfig(t *testing.T) {
	r := execute(t, "https://example.com", "--store", "redis")
	require.Error(t, r.err)
	assert.Equal(t, apperr.Usage, apperr.KindOf(r.err))
	assert.False(t, errors.Is(r.err, ErrUsage))
}
