package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/bamsammich/reclaim/internal/config"
	"github.com/bamsammich/reclaim/internal/dupes"
	"github.com/bamsammich/reclaim/internal/enumerate"
	"github.com/bamsammich/reclaim/internal/event"
	"github.com/bamsammich/reclaim/internal/filter"
	"github.com/bamsammich/reclaim/internal/rank"
	"github.com/bamsammich/reclaim/internal/report"
	"github.com/bamsammich/reclaim/internal/stats"
	"github.com/bamsammich/reclaim/internal/sysscan"
	"github.com/bamsammich/reclaim/internal/ui"
)

// scanRun holds everything a walk-based subcommand needs.
type scanRun struct {
	rootPaths []string
	params    scanParams
	flags     *scanFlags
	collector *stats.Collector
	events    chan event.Event
	presenter ui.Presenter
	cfg       config.Config
}

// newScanRun parses flags, loads config defaults and builds the shared
// collector/presenter plumbing.
func newScanRun(cmd *cobra.Command, args []string, rf *rootFlags, sf *scanFlags) (*scanRun, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	applyConfigDefaults(cmd, cfg.Defaults, sf)

	roots, err := resolveRoots(args, cfg.Defaults)
	if err != nil {
		return nil, err
	}
	params, err := parseScanFlags(sf)
	if err != nil {
		return nil, err
	}

	collector := stats.NewCollector()
	presenter := ui.NewPresenter(ui.Config{
		Writer:     os.Stdout,
		ErrWriter:  os.Stderr,
		Stats:      collector,
		IsTTY:      ui.IsTTY(os.Stderr.Fd()),
		Quiet:      rf.quiet,
		Verbose:    rf.verbose,
		NoProgress: sf.noProgress,
	})

	return &scanRun{
		rootPaths: roots,
		params:    params,
		flags:     sf,
		collector: collector,
		events:    make(chan event.Event, 256),
		presenter: presenter,
		cfg:       cfg,
	}, nil
}

// detect runs the enumerator and duplicate engine with the presenter in
// the background. each walked record is also passed to tap when set
// (used by analyze to feed the ranker from the same walk).
func (s *scanRun) detect(ctx context.Context, tap func(enumerate.FileRecord)) (dupes.Result, error) {
	enum := enumerate.New(enumerate.Config{
		Roots:      s.rootPaths,
		Excludes:   s.params.excludes,
		SameDevice: s.flags.sameDevice,
		Stats:      s.collector,
		Events:     s.events,
	})
	eng := dupes.New(dupes.Config{
		MinSize:     s.params.minSize,
		Workers:     s.flags.workers,
		Digests:     s.flags.digests,
		HashTimeout: s.params.hashTimeout,
		BWLimit:     s.params.bwLimit,
		Stats:       s.collector,
		Events:      s.events,
	})

	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		_ = s.presenter.Run(s.events) //nolint:errcheck // presenter error is non-fatal
	}()

	records := enum.Enumerate(ctx)
	if tap != nil {
		teed := make(chan enumerate.FileRecord, 256)
		go func() {
			defer close(teed)
			for rec := range records {
				tap(rec)
				select {
				case teed <- rec:
				case <-ctx.Done():
					return
				}
			}
		}()
		records = teed
	}

	result, err := eng.Run(ctx, records)
	// On cancellation the engine returns while fastwalk workers are
	// still emitting; closing the event channel before the walk has
	// terminated would panic them.
	<-enum.Done()
	close(s.events)
	presenterWg.Wait()
	return result, err
}

func (s *scanRun) printSummary(quiet bool) {
	if quiet {
		return
	}
	if summary := s.presenter.Summary(); summary != "" {
		fmt.Fprintln(os.Stderr, summary)
	}
}

// exitCode maps hash failures to the partial-failure exit code.
func (s *scanRun) exitCode() error {
	if s.collector.Snapshot().HashFailures > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func analyzeCmd(rf *rootFlags) *cobra.Command {
	sf := &scanFlags{}
	var (
		output  string
		jsonOut bool
		topN    int
		noDupes bool
		noSys   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [volume]...",
		Short: "Run the full space analysis",
		Long: heredoc.Doc(`
			Walks the given volumes once, finding duplicate files and the
			largest files and directories, then probes recycle bins,
			btrfs snapshots, Docker and oversized logs. Results are
			rendered to the terminal and optionally written as JSON.
		`),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := setupLogging(rf)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer() //nolint:errcheck // log file close error is non-actionable
			}

			ctx, stop := signalContext()
			defer stop()

			s, err := newScanRun(cmd, args, rf, sf)
			if err != nil {
				return err
			}

			analysis := report.New(s.rootPaths)
			analysis.Volumes = report.StatVolumes(s.rootPaths)

			ranker := rank.New(topN, s.rootPaths)
			if noDupes {
				// Walk only for the ranking.
				enum := enumerate.New(enumerate.Config{
					Roots:      s.rootPaths,
					Excludes:   s.params.excludes,
					SameDevice: sf.sameDevice,
					Stats:      s.collector,
				})
				for rec := range enum.Enumerate(ctx) {
					ranker.Add(rec)
				}
			} else {
				result, err := s.detect(ctx, ranker.Add)
				if err != nil {
					return err
				}
				analysis.Duplicates = &result
			}
			analysis.Ranking = ranker.Finalize()

			if !noSys {
				runSystemScans(ctx, analysis, s.cfg.Scanners, s.rootPaths)
			}

			analysis.Elapsed = s.collector.Elapsed()
			analysis.Finalize()

			s.printSummary(rf.quiet)

			if output != "" {
				if err := analysis.WriteSummary(output); err != nil {
					return err
				}
				slog.Info("summary written", "path", output)
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(analysis); err != nil {
					return err
				}
				return s.exitCode()
			}

			renderer := &report.Renderer{Color: isatty.IsTerminal(os.Stdout.Fd())}
			renderer.Render(os.Stdout, analysis)
			return s.exitCode()
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the analysis as JSON to FILE")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the analysis as JSON to stdout instead of the report")
	cmd.Flags().IntVar(&topN, "top", rank.DefaultTopN, "number of largest files/directories to track")
	cmd.Flags().BoolVar(&noDupes, "no-dupes", false, "skip duplicate detection")
	cmd.Flags().BoolVar(&noSys, "no-system", false, "skip recycle-bin, snapshot, docker and log scans")
	return cmd
}

// runSystemScans fills in the scanner sections of the analysis. Every
// scanner degrades gracefully; none of them can fail the run.
func runSystemScans(ctx context.Context, analysis *report.Analysis, cfg config.ScannersConfig, roots []string) {
	if bins, err := sysscan.ScanRecycleBins(ctx, roots); err == nil {
		analysis.RecycleBins = bins
	}

	logRoots := cfg.LogRoots
	var logThreshold int64
	if cfg.LogThreshold != nil {
		if n, err := filter.ParseSize(*cfg.LogThreshold); err == nil {
			logThreshold = n
		}
	}
	if logs, err := sysscan.ScanLogs(ctx, logRoots, logThreshold); err == nil {
		analysis.Logs = logs
	}

	docker := &sysscan.DockerScanner{}
	analysis.Docker = docker.Scan(ctx)

	snaps := &sysscan.SnapshotScanner{}
	if cfg.SnapshotMaxDays != nil && *cfg.SnapshotMaxDays > 0 {
		snaps.MaxAge = time.Duration(*cfg.SnapshotMaxDays) * 24 * time.Hour
	}
	for _, root := range roots {
		analysis.Snapshots = append(analysis.Snapshots, snaps.Scan(ctx, root))
	}
}

func dupesCmd(rf *rootFlags) *cobra.Command {
	sf := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "dupes [volume]...",
		Short: "Find duplicate files and print them as JSON",
		Long: heredoc.Doc(`
			Runs duplicate detection only: files are grouped by size, and
			only sizes shared by two or more files are hashed. The result
			is a JSON document on stdout with one group per content hash,
			sorted by wasted bytes.
		`),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := setupLogging(rf)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer() //nolint:errcheck // log file close error is non-actionable
			}

			ctx, stop := signalContext()
			defer stop()

			s, err := newScanRun(cmd, args, rf, sf)
			if err != nil {
				return err
			}

			result, err := s.detect(ctx, nil)
			if err != nil {
				return err
			}

			s.printSummary(rf.quiet)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			return s.exitCode()
		},
	}

	sf.register(cmd)
	return cmd
}

func largestCmd(rf *rootFlags) *cobra.Command {
	sf := &scanFlags{}
	var (
		topN    int
		jsonOut bool
		dirs    bool
	)

	cmd := &cobra.Command{
		Use:   "largest [volume]...",
		Short: "List the largest files or directories",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := setupLogging(rf)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer() //nolint:errcheck // log file close error is non-actionable
			}

			ctx, stop := signalContext()
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults, sf)

			roots, err := resolveRoots(args, cfg.Defaults)
			if err != nil {
				return err
			}
			params, err := parseScanFlags(sf)
			if err != nil {
				return err
			}

			collector := stats.NewCollector()
			enum := enumerate.New(enumerate.Config{
				Roots:      roots,
				Excludes:   params.excludes,
				SameDevice: sf.sameDevice,
				Stats:      collector,
			})

			ranker := rank.New(topN, roots)
			for rec := range enum.Enumerate(ctx) {
				ranker.Add(rec)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ranking := ranker.Finalize()

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ranking)
			}

			if dirs {
				for i, d := range ranking.TopDirs {
					fmt.Fprintf(os.Stdout, "%3d. %10s  %s\n", i+1, d.HumanSize, d.Path)
				}
			} else {
				for i, f := range ranking.TopFiles {
					fmt.Fprintf(os.Stdout, "%3d. %10s  %-20s  %s\n", i+1, f.HumanSize, f.Modified, f.Path)
				}
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().IntVar(&topN, "top", rank.DefaultTopN, "number of entries to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&dirs, "dirs", false, "rank directories instead of files")
	return cmd
}
