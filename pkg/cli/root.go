// Package cli wires the pagemonitor command line onto the pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"page-monitor/pkg/apperr"
	"page-monitor/pkg/config"
	"page-monitor/pkg/display"
	"page-monitor/pkg/fetcher"
	"page-monitor/pkg/pipeline"
	"page-monitor/pkg/store"
	"page-monitor/pkg/urls"
)

// ErrUsage is returned when the command line has the wrong shape.
var ErrUsage = errors.New("usage: pagemonitor <url>")

// app holds what the commands share.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configFile string
}

// Execute runs the command line against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Output goes to stdout, logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "pagemonitor <url>",
		Short: "Report textual changes of a web page since the last run",
		Long: `pagemonitor fetches a single web page, extracts its visible text and
compares it with the snapshot saved by the previous run. Differences are
written as a unified diff to a change report, and the snapshot is replaced.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return apperr.E(apperr.Usage, "", ErrUsage)
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.runCheck,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to a YAML or JSON configuration file")
	config.InitFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(a.newHistoryCommand(), a.newShowCommand())
	return rootCmd
}

// load resolves the configuration and the logger for cmd.
func (a *app) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags(), a.configFile)
	if err != nil {
		return nil, nil, apperr.E(apperr.Usage, "", err)
	}
	return cfg, newLogger(a.stderr, cfg.Verbose), nil
}

func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url := args[0]

	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}

	fc := cfg.FetcherConfig()
	fc.Logger = logger
	f := fetcher.New(fc)

	var prober urls.Prober = f
	if cfg.SkipProbe {
		prober = nil
	}
	if err := urls.Validate(ctx, url, prober); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Checking webpage: %s\n", url)

	s, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("cli: failed to close store", "error", err)
		}
	}()

	p, err := pipeline.New(pipeline.Config{
		Fetcher: f,
		Store:   s,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, url)
	switch result.State {
	case pipeline.StateInitial:
		if err == nil {
			fmt.Fprintln(a.stdout, "Initial state captured.")
		}
	case pipeline.StateUnchanged:
		fmt.Fprintln(a.stdout, "No changes detected.")
	case pipeline.StateChanged:
		fmt.Fprintln(a.stdout, "Changes detected!")
		if cfg.PrintDiff {
			display.PrintDiff(a.stdout, result.Diff)
		}
		fmt.Fprintf(a.stdout, "Changes saved to %s\n", result.ReportLocation)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "State saved.")
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
