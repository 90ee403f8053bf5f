package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/bamsammich/reclaim/internal/config"
	"github.com/bamsammich/reclaim/internal/enumerate"
	"github.com/bamsammich/reclaim/internal/filter"
	"github.com/bamsammich/reclaim/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	verbose bool
	quiet   bool
	logFile string
}

// scanFlags configure the walk and the duplicate engine.
type scanFlags struct {
	minSizeStr     string
	workers        int
	excludes       []string
	filterFile     string
	digests        []string
	hashTimeoutStr string
	bwLimitStr     string
	sameDevice     bool
	noProgress     bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.minSizeStr, "min-size", "", "ignore files smaller than SIZE (e.g. 1M, 100K; default 1M)")
	cmd.Flags().IntVarP(&f.workers, "workers", "n", 0, "number of hash workers (default: min(NumCPU, 8))")
	cmd.Flags().StringArrayVar(&f.excludes, "exclude", nil, "exclude paths matching PATTERN (repeatable)")
	cmd.Flags().StringVar(&f.filterFile, "filter", "", "read exclude patterns from FILE")
	cmd.Flags().StringSliceVar(&f.digests, "digest", nil, "hash algorithm preference (e.g. blake3,md5)")
	cmd.Flags().StringVar(&f.hashTimeoutStr, "hash-timeout", "", "per-file hash timeout (e.g. 5m)")
	cmd.Flags().StringVar(&f.bwLimitStr, "bwlimit", "", "hash read bandwidth limit (e.g. 100M)")
	cmd.Flags().BoolVarP(&f.sameDevice, "one-file-system", "x", false, "don't cross filesystem boundaries")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "disable progress display")
}

//nolint:gocyclo // main CLI entry point orchestrates all command wiring
func run() int {
	var (
		rf          rootFlags
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Find duplicate files and reclaimable space on NAS volumes",
		Long: heredoc.Doc(`
			reclaim analyzes one or more storage volumes for reclaimable
			space: exact duplicate files (size-first, hash-second), the
			largest files and directories, recycle bins, stale btrfs
			snapshots, Docker leftovers and oversized logs.

			Detection never modifies the filesystem. The cleanup
			subcommand acts on a saved analysis, one confirmation at a
			time.
		`),
		Example: heredoc.Doc(`
			# full analysis of two volumes, summary to terminal and JSON file
			reclaim analyze /volume1 /volume2 --output summary.json

			# duplicate detection only, JSON on stdout
			reclaim dupes /volume1 --min-size 10M

			# preview cleanup actions without touching anything
			reclaim cleanup --input summary.json --dry-run
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "reclaim %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&rf.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().StringVar(&rf.logFile, "log-file", "", "write structured JSON log to FILE")

	rootCmd.AddCommand(analyzeCmd(&rf))
	rootCmd.AddCommand(dupesCmd(&rf))
	rootCmd.AddCommand(largestCmd(&rf))
	rootCmd.AddCommand(cleanupCmd(&rf))
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// setupLogging configures the default slog logger. When a log file is
// given, structured JSON is mirrored there at debug level. The returned
// closer is nil when no file was opened.
func setupLogging(rf *rootFlags) (func() error, error) {
	logLevel := slog.LevelWarn
	if rf.verbose {
		logLevel = slog.LevelDebug
	} else if !rf.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})

	var handler slog.Handler = textHandler
	var closer func() error
	if rf.logFile != "" {
		lf, err := os.Create(rf.logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closer = lf.Close
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// applyConfigDefaults fills in scan flags from the config file for flags
// not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, f *scanFlags) {
	if !cmd.Flags().Changed("min-size") && defaults.MinSize != nil {
		f.minSizeStr = *defaults.MinSize
	}
	if !cmd.Flags().Changed("workers") && defaults.Workers != nil {
		f.workers = *defaults.Workers
	}
	if !cmd.Flags().Changed("digest") && defaults.Digest != nil {
		f.digests = strings.Split(*defaults.Digest, ",")
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		f.bwLimitStr = *defaults.BWLimit
	}
	if !cmd.Flags().Changed("hash-timeout") && defaults.HashTimeout != nil {
		f.hashTimeoutStr = *defaults.HashTimeout
	}
	f.excludes = append(f.excludes, defaults.Excludes...)
}

// resolveRoots returns CLI args, falling back to configured roots.
func resolveRoots(args []string, defaults config.DefaultsConfig) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(defaults.Roots) > 0 {
		return defaults.Roots, nil
	}
	return nil, fmt.Errorf("no volumes given (pass roots as arguments or set them in %s)", config.Path())
}

// parseScanFlags converts string flags into engine-ready values.
type scanParams struct {
	minSize     int64
	bwLimit     int64
	hashTimeout time.Duration
	excludes    *filter.Set
}

func parseScanFlags(f *scanFlags) (scanParams, error) {
	var p scanParams
	var err error

	if f.minSizeStr != "" {
		p.minSize, err = filter.ParseSize(f.minSizeStr)
		if err != nil {
			return p, fmt.Errorf("invalid --min-size: %w", err)
		}
	}
	if f.bwLimitStr != "" {
		p.bwLimit, err = filter.ParseSize(f.bwLimitStr)
		if err != nil {
			return p, fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}
	if f.hashTimeoutStr != "" {
		p.hashTimeout, err = time.ParseDuration(f.hashTimeoutStr)
		if err != nil {
			return p, fmt.Errorf("invalid --hash-timeout: %w", err)
		}
	}

	patterns := make([]string, 0, len(enumerate.DefaultExcludes)+len(f.excludes))
	patterns = append(patterns, enumerate.DefaultExcludes...)
	patterns = append(patterns, f.excludes...)
	p.excludes, err = filter.NewSet(patterns...)
	if err != nil {
		return p, fmt.Errorf("invalid --exclude: %w", err)
	}
	if f.filterFile != "" {
		if err := p.excludes.LoadFile(f.filterFile); err != nil {
			return p, fmt.Errorf("load filter file: %w", err)
		}
	}
	return p, nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
