package sysscan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
)

// RecycleDirName is the per-share trash directory used by Synology DSM.
const RecycleDirName = "#recycle"

// RecycleBin describes the recycle directory of a single share.
type RecycleBin struct {
	// Share is the share name, e.g. "photos".
	Share string `json:"share"`
	// Path is the absolute path of the recycle directory.
	Path string `json:"path"`
	// SizeBytes is the cumulative size of everything in the bin.
	SizeBytes int64 `json:"size_bytes"`
	// HumanSize is SizeBytes rendered for display.
	HumanSize string `json:"human_size"`
	// FileCount is the number of files in the bin.
	FileCount int64 `json:"file_count"`
}

// RecycleReport summarizes the recycle bins of all scanned volumes.
type RecycleReport struct {
	Bins           []RecycleBin `json:"bins"`
	TotalSizeBytes int64        `json:"total_size_bytes"`
	TotalFiles     int64        `json:"total_files"`
}

// ScanRecycleBins inspects the direct children of each volume root for a
// "#recycle" directory and sums its contents. Shares without a recycle
// directory, and unreadable entries, are skipped.
func ScanRecycleBins(ctx context.Context, roots []string) (*RecycleReport, error) {
	report := &RecycleReport{Bins: make([]RecycleBin, 0)}

	for _, root := range roots {
		shares, err := os.ReadDir(root)
		if err != nil {
			slog.Warn("skipping volume", "path", root, "error", err)
			continue
		}
		for _, share := range shares {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !share.IsDir() {
				continue
			}
			binPath := filepath.Join(root, share.Name(), RecycleDirName)
			if info, err := os.Stat(binPath); err != nil || !info.IsDir() {
				continue
			}
			bin := RecycleBin{Share: share.Name(), Path: binPath}
			if err := sumTree(binPath, &bin.SizeBytes, &bin.FileCount); err != nil {
				slog.Warn("recycle bin scan incomplete", "path", binPath, "error", err)
			}
			bin.HumanSize = humanize.IBytes(uint64(bin.SizeBytes))
			report.Bins = append(report.Bins, bin)
			report.TotalSizeBytes += bin.SizeBytes
			report.TotalFiles += bin.FileCount
		}
	}

	sort.Slice(report.Bins, func(i, j int) bool {
		if report.Bins[i].SizeBytes != report.Bins[j].SizeBytes {
			return report.Bins[i].SizeBytes > report.Bins[j].SizeBytes
		}
		return report.Bins[i].Share < report.Bins[j].Share
	})
	return report, nil
}

// sumTree totals regular-file sizes under root. fastwalk invokes the
// callback from multiple goroutines, hence the atomics.
func sumTree(root string, size *int64, count *int64) error {
	conf := fastwalk.Config{Follow: false}
	var total, files atomic.Int64
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total.Add(info.Size())
		files.Add(1)
		return nil
	})
	*size = total.Load()
	*count = files.Load()
	return err
}
