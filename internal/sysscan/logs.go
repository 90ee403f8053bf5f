package sysscan

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultLogThreshold is the size past which a log file is reported.
const DefaultLogThreshold = 50 * 1024 * 1024

// DefaultLogRoots are the directories searched for oversized logs.
var DefaultLogRoots = []string{"/var/log"}

// rotatedSuffixes mark logs that rotation has already closed. These can
// be deleted outright; anything else must be truncated so the writing
// service keeps a valid file descriptor.
var rotatedSuffixes = []string{".gz", ".bz2", ".xz", ".zip", ".old", ".1"}

// LogFile is one oversized log.
type LogFile struct {
	// Path is the absolute path of the log file.
	Path string `json:"path"`
	// SizeBytes is the file size.
	SizeBytes int64 `json:"size_bytes"`
	// HumanSize is SizeBytes rendered for display.
	HumanSize string `json:"human_size"`
	// SafeToClean reports whether the file can be cleaned without
	// breaking a running service.
	SafeToClean bool `json:"safe_to_clean"`
}

// LogReport lists oversized log files, largest first.
type LogReport struct {
	Logs           []LogFile `json:"logs"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	ThresholdBytes int64     `json:"threshold_bytes"`
}

// ScanLogs walks roots for log files at least threshold bytes large.
// threshold <= 0 uses DefaultLogThreshold; empty roots use DefaultLogRoots.
func ScanLogs(ctx context.Context, roots []string, threshold int64) (*LogReport, error) {
	if threshold <= 0 {
		threshold = DefaultLogThreshold
	}
	if len(roots) == 0 {
		roots = DefaultLogRoots
	}

	report := &LogReport{Logs: make([]LogFile, 0), ThresholdBytes: threshold}

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("skipping log path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if !d.Type().IsRegular() || !isLogName(d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil || info.Size() < threshold {
				return nil
			}
			report.Logs = append(report.Logs, LogFile{
				Path:        path,
				SizeBytes:   info.Size(),
				HumanSize:   humanize.IBytes(uint64(info.Size())),
				SafeToClean: SafeToClean(path),
			})
			report.TotalSizeBytes += info.Size()
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("log scan incomplete", "path", root, "error", err)
		}
	}

	sort.Slice(report.Logs, func(i, j int) bool {
		if report.Logs[i].SizeBytes != report.Logs[j].SizeBytes {
			return report.Logs[i].SizeBytes > report.Logs[j].SizeBytes
		}
		return report.Logs[i].Path < report.Logs[j].Path
	})
	return report, nil
}

func isLogName(name string) bool {
	if strings.Contains(name, ".log") {
		return true
	}
	for _, suffix := range rotatedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// SafeToClean reports whether path can be cleaned without breaking a
// running service: rotated logs can be deleted, plain logs truncated.
// Anything not recognizably a log is left alone.
func SafeToClean(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".log") || IsRotated(path)
}

// IsRotated reports whether path names a closed, rotation-produced log
// that is safe to delete rather than truncate.
func IsRotated(path string) bool {
	for _, suffix := range rotatedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
