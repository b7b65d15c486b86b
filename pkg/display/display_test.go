package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"page-monitor/pkg/domain"
)

func TestDiffLine_KeepsText(t *testing.T) {
	for _, line := range []string{"--- Previous Version", "+++ Current Version", "@@ -1,3 +1,3 @@", "-B", "+X", " A"} {
		assert.Contains(t, DiffLine(line), line)
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, []domain.ChangeReport{{
		ID:        "20261019090000000001",
		Timestamp: time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local),
		URL:       "https://example.com",
		Diff:      []string{"--- Previous Version", "+++ Current Version", "@@ -1 +1 @@", "-B", "+X", "+Y"},
	}})

	out := buf.String()
	assert.Contains(t, out, "20261019090000000001")
	assert.Contains(t, out, "2026-10-19 09:00:00")
	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "-1")
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No change reports recorded.")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, domain.ChangeReport{
		Timestamp: time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local),
		URL:       "https://example.com",
		Diff:      []string{"@@ -1 +1 @@", "-old", "+new"},
	})

	out := buf.String()
	assert.Contains(t, out, "URL: https://example.com")
	assert.Contains(t, out, "-old")
	assert.Contains(t, out, "+new")
}
