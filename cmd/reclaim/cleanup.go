package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bamsammich/reclaim/internal/cleanup"
	"github.com/bamsammich/reclaim/internal/config"
	"github.com/bamsammich/reclaim/internal/report"
)

func cleanupCmd(rf *rootFlags) *cobra.Command {
	var (
		input  string
		dryRun bool
		only   []string
	)

	cmd := &cobra.Command{
		Use:   "cleanup [volume]...",
		Short: "Interactively reclaim space found by a previous analysis",
		Long: heredoc.Doc(`
			Walks through the reclaimable categories of an analysis and
			asks before every action. With --input the saved JSON summary
			from "reclaim analyze --output" is used; otherwise the system
			scanners run fresh against the given volumes.

			Duplicate files are never deleted automatically; cleanup
			covers recycle bins, old btrfs snapshots, Docker leftovers
			and oversized logs. Use --dry-run to preview everything.
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

			analysis, err := loadOrScan(ctx, input, args)
			if err != nil {
				return err
			}

			cleaner := cleanup.New(cleanup.Options{DryRun: dryRun})

			want := func(category string) bool {
				if len(only) == 0 {
					return true
				}
				for _, o := range only {
					if o == category {
						return true
					}
				}
				return false
			}

			if want("recycle") && analysis.RecycleBins != nil {
				cleaner.EmptyRecycleBins(ctx, analysis.RecycleBins)
			}
			if want("snapshots") && len(analysis.Snapshots) > 0 {
				cleaner.RemoveSnapshots(ctx, analysis.Snapshots)
			}
			if want("docker") && analysis.Docker != nil {
				cleaner.PruneDocker(ctx, analysis.Docker)
			}
			if want("logs") && analysis.Logs != nil {
				cleaner.CleanLogs(ctx, analysis.Logs)
			}

			freed := cleaner.TotalFreed()
			verb := "freed"
			if dryRun {
				verb = "would free"
			}
			fmt.Fprintf(os.Stdout, "\n%s %s\n", verb, humanize.IBytes(uint64(max(freed, 0))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "read the analysis from a saved JSON summary")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview actions without changing anything")
	cmd.Flags().StringSliceVar(&only, "only", nil, "restrict to categories: recycle, snapshots, docker, logs")
	return cmd
}

// loadOrScan reads a saved summary or, absent one, runs the system
// scanners against the given volumes.
func loadOrScan(ctx context.Context, input string, args []string) (*report.Analysis, error) {
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("read summary: %w", err)
		}
		var analysis report.Analysis
		if err := json.Unmarshal(data, &analysis); err != nil {
			return nil, fmt.Errorf("parse summary: %w", err)
		}
		return &analysis, nil
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	roots, err := resolveRoots(args, cfg.Defaults)
	if err != nil {
		return nil, err
	}

	analysis := report.New(roots)
	runSystemScans(ctx, analysis, cfg.Scanners, roots)
	analysis.Finalize()
	return analysis, nil
}
