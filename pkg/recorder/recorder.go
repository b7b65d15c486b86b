// Package recorder turns a non-empty diff into a persisted change report.
package recorder

import (
	"context"
	"errors"
	"time"

	"page-monitor/pkg/apperr"
	"page-monitor/pkg/domain"
)

var errEmptyDiff = errors.New("refusing to record an empty diff")

// ReportAppender is the part of the store the recorder needs.
type ReportAppender interface {
	AppendReport(ctx context.Context, report domain.ChangeReport) (string, error)
}

// Recorder writes one report per detected change.
type Recorder struct {
	appender ReportAppender
	now      func() time.Time
}

// New creates a Recorder. A nil now uses time.Now.
func New(appender ReportAppender, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{appender: appender, now: now}
}

// Record stores the diff for url and returns the report location.
func (r *Recorder) Record(ctx context.Context, url string, diff []string) (string, error) {
	if len(diff) == 0 {
		return "", errEmptyDiff
	}

	capturedAt := r.now()
	report := domain.ChangeReport{
		ID:        domain.ReportID(capturedAt),
		Timestamp: capturedAt,
		URL:       url,
		Diff:      diff,
	}

	location, err := r.appender.AppendReport(ctx, report)
	if err != nil {
		return "", apperr.E(apperr.Write, "save changes", err)
	}
	return location, nil
}
