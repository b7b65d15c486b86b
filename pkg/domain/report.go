package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ReportTimeLayout is the timestamp format of the report header.
	ReportTimeLayout = "2006-01-02 15:04:05"
	reportHeader     = "Changes detected at "
	reportURLPrefix  = "URL: "
)

// ReportRule separates the report header from the diff.
var ReportRule = strings.Repeat("-", 80)

// ChangeReport records one detected difference between two snapshots.
// Reports are immutable once written and accumulate over time.
type ChangeReport struct {
	// ID is unique per report and sorts in capture order.
	ID string `bson:"_id" json:"id"`

	// Timestamp is when the change was detected.
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	// URL is the monitored page.
	URL string `bson:"url" json:"url"`

	// Diff holds the unified diff lines, without line terminators.
	Diff []string `bson:"diff" json:"diff"`
}

// ReportID derives a report ID from the capture time with microsecond
// resolution, so runs within the same second get distinct IDs.
func ReportID(t time.Time) string {
	return strings.Replace(t.Format("20060102150405.000000"), ".", "", 1)
}

// Text renders the plain-text form of the report.
func (r ChangeReport) Text() string {
	var b strings.Builder
	b.WriteString(reportHeader + r.Timestamp.Format(ReportTimeLayout) + "\n")
	b.WriteString(reportURLPrefix + r.URL + "\n")
	b.WriteString(ReportRule + "\n")
	b.WriteString(strings.Join(r.Diff, "\n"))
	return b.String()
}

// Added counts the lines the diff adds, ignoring the file headers.
func (r ChangeReport) Added() int {
	n := 0
	for _, line := range r.Diff {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++ ") {
			n++
		}
	}
	return n
}

// Removed counts the lines the diff removes, ignoring the file headers.
func (r ChangeReport) Removed() int {
	n := 0
	for _, line := range r.Diff {
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "--- ") {
			n++
		}
	}
	return n
}

// ParseReport reads back the output of Text. Timestamps are interpreted in
// local time since that is how they were written.
func ParseReport(id, text string) (ChangeReport, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return ChangeReport{}, fmt.Errorf("report %s: too short", id)
	}
	if !strings.HasPrefix(lines[0], reportHeader) {
		return ChangeReport{}, fmt.Errorf("report %s: missing header", id)
	}
	ts, err := time.ParseInLocation(ReportTimeLayout, strings.TrimPrefix(lines[0], reportHeader), time.Local)
	if err != nil {
		return ChangeReport{}, fmt.Errorf("report %s: invalid timestamp: %w", id, err)
	}
	if !strings.HasPrefix(lines[1], reportURLPrefix) {
		return ChangeReport{}, fmt.Errorf("report %s: missing URL line", id)
	}
	if lines[2] != ReportRule {
		return ChangeReport{}, fmt.Errorf("report %s: missing separator", id)
	}

	var diff []string
	if len(lines) > 3 {
		diff = lines[3:]
	}

	return ChangeReport{
		ID:        id,
		Timestamp: ts,
		URL:       strings.TrimPrefix(lines[1], reportURLPrefix),
		Diff:      diff,
	}, nil
}
