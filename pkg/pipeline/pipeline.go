// Package pipeline implements the check operation: fetch the page, compare
// it with the stored snapshot, record any change and save the new snapshot.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"page-monitor/pkg/apperr"
	"page-monitor/pkg/diff"
	"page-monitor/pkg/domain"
	"page-monitor/pkg/recorder"
	"page-monitor/pkg/store"
)

// State tells which path a run took.
type State int

const (
	// StateInitial means no previous snapshot existed; only the snapshot was saved.
	StateInitial State = iota
	// StateUnchanged means the page text matched the previous snapshot.
	StateUnchanged
	// StateChanged means a diff was found and a report was recorded.
	StateChanged
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateUnchanged:
		return "unchanged"
	case StateChanged:
		return "changed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ContentFetcher returns the normalized text of a page
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ChangeRecorder persists a non-empty diff and returns where it went
type ChangeRecorder interface {
	Record(ctx context.Context, url string, diff []string) (string, error)
}

// Config wires the pipeline dependencies.
type Config struct {
	Fetcher ContentFetcher
	Store   store.Store
	// Recorder defaults to a recorder on Store.
	Recorder ChangeRecorder
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes one run.
type Result struct {
	URL   string
	State State
	// Diff and ReportLocation are set for StateChanged only.
	Diff           []string
	ReportLocation string
	// Snapshot is what was saved at the end of the run.
	Snapshot domain.Snapshot
}

// Pipeline runs the stages strictly in sequence. It holds no state between runs.
type Pipeline struct {
	fetcher  ContentFetcher
	store    store.Store
	recorder ChangeRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = recorder.New(cfg.Store, cfg.Now)
	}

	return &Pipeline{
		fetcher:  cfg.Fetcher,
		store:    cfg.Store,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// Run performs one check of url. Any returned error is fatal for the run;
// an unreadable previous snapshot is not an error and is treated as a first run.
func (p *Pipeline) Run(ctx context.Context, url string) (Result, error) {
	log := p.logger.With("url", url)
	result := Result{URL: url}

	current, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return result, fmt.Errorf("failed to fetch page: %w", err)
	}
	log.Debug("pipeline: page fetched", "lines", countLines(current))

	previous := store.LoadPrevious(ctx, p.store, url, p.logger)

	if !previous.Found {
		result.State = StateInitial
		log.Info("pipeline: no previous state, capturing initial snapshot")
	} else {
		lines, err := diff.Unified(previous.Content, current)
		if err != nil {
			return result, err
		}

		if len(lines) == 0 {
			result.State = StateUnchanged
			log.Info("pipeline: no changes detected")
		} else {
			location, err := p.recorder.Record(ctx, url, lines)
			if err != nil {
				return result, err
			}
			result.State = StateChanged
			result.Diff = lines
			result.ReportLocation = location
			log.Info("pipeline: changes recorded", "diff_lines", len(lines), "report", location)
		}
	}

	snap := domain.NewSnapshot(url, current, p.now())
	if err := p.store.SaveSnapshot(ctx, snap); err != nil {
		return result, apperr.E(apperr.Write, "save state", err)
	}
	result.Snapshot = snap
	log.Debug("pipeline: state saved", "checksum", snap.Checksum)

	return result, nil
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			n++
		}
	}
	return n
}
