package report

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// VolumeUsage is the capacity of one scanned volume.
type VolumeUsage struct {
	Path        string  `json:"path"`
	TotalBytes  int64   `json:"total_bytes"`
	FreeBytes   int64   `json:"free_bytes"`
	UsedBytes   int64   `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
	HumanTotal  string  `json:"human_total"`
	HumanUsed   string  `json:"human_used"`
}

// statfs is swapped out in tests.
var statfs = unix.Statfs

// StatVolumes reports filesystem usage for each root. Roots that cannot
// be statted are skipped with a warning.
func StatVolumes(roots []string) []VolumeUsage {
	usages := make([]VolumeUsage, 0, len(roots))
	for _, root := range roots {
		var st unix.Statfs_t
		if err := statfs(root, &st); err != nil {
			slog.Warn("statfs failed", "path", root, "error", err)
			continue
		}
		bsize := int64(st.Bsize)
		u := VolumeUsage{
			Path:       root,
			TotalBytes: bsize * int64(st.Blocks),
			FreeBytes:  bsize * int64(st.Bavail),
		}
		u.UsedBytes = u.TotalBytes - bsize*int64(st.Bfree)
		if u.TotalBytes > 0 {
			u.UsedPercent = 100 * float64(u.UsedBytes) / float64(u.TotalBytes)
		}
		u.HumanTotal = humanize.IBytes(uint64(u.TotalBytes))
		u.HumanUsed = humanize.IBytes(uint64(u.UsedBytes))
		usages = append(usages, u)
	}
	return usages
}
