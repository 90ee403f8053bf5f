// Package cleanup reclaims the space an analysis found, one confirmed
// action at a time. Every destructive step requires an explicit y/N
// answer, dry-run mode simulates without touching the filesystem, and
// external commands inherit the scanner command timeout.
package cleanup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/bamsammich/reclaim/internal/sysscan"
)

// Options configures a Cleaner.
type Options struct {
	// DryRun simulates all actions and auto-declines every prompt.
	DryRun bool
	// In supplies prompt answers. Defaults to os.Stdin.
	In io.Reader
	// Out receives prompts and progress. Defaults to os.Stdout.
	Out io.Writer
	// Run executes external commands. Defaults to sysscan.DefaultRunner.
	Run sysscan.CommandRunner
}

// Cleaner walks the user through reclaiming space.
type Cleaner struct {
	dryRun bool
	in     *bufio.Scanner
	out    io.Writer
	run    sysscan.CommandRunner
	freed  int64
}

// New creates a Cleaner.
func New(opts Options) *Cleaner {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Run == nil {
		opts.Run = sysscan.DefaultRunner
	}
	return &Cleaner{
		dryRun: opts.DryRun,
		in:     bufio.NewScanner(opts.In),
		out:    opts.Out,
		run:    opts.Run,
	}
}

// TotalFreed returns the bytes freed (or simulated) so far.
func (c *Cleaner) TotalFreed() int64 {
	return c.freed
}

// Confirm asks a y/N question. Dry-run mode reports the question and
// declines; empty input and EOF decline.
func (c *Cleaner) Confirm(prompt string) bool {
	if c.dryRun {
		fmt.Fprintf(c.out, "  [dry-run] would ask: %s\n", prompt)
		return false
	}
	for {
		fmt.Fprintf(c.out, "  %s [y/N]: ", prompt)
		if !c.in.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(c.in.Text())) {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		}
		fmt.Fprintln(c.out, "  Please answer y or n.")
	}
}

func (c *Cleaner) runCmd(ctx context.Context, description string, name string, args ...string) bool {
	fmt.Fprintf(c.out, "  Running: %s %s\n", name, strings.Join(args, " "))
	if c.dryRun {
		fmt.Fprintf(c.out, "  [dry-run] skipped: %s\n", description)
		return true
	}
	if _, err := c.run(ctx, name, args...); err != nil {
		fmt.Fprintf(c.out, "  failed: %v\n", err)
		slog.Warn("cleanup command failed", "command", name, "error", err)
		return false
	}
	fmt.Fprintf(c.out, "  done: %s\n", description)
	return true
}

// EmptyRecycleBins offers to empty each recycle bin from the report.
// Paths not containing the recycle directory name are refused outright.
func (c *Cleaner) EmptyRecycleBins(ctx context.Context, report *sysscan.RecycleReport) int64 {
	if report == nil || len(report.Bins) == 0 {
		fmt.Fprintln(c.out, "  No recycle bin data available.")
		return 0
	}

	var freed int64
	emptyAll := c.Confirm(fmt.Sprintf("Empty ALL recycle bins? (%s)",
		humanize.IBytes(uint64(report.TotalSizeBytes))))

	for _, bin := range report.Bins {
		if err := ctx.Err(); err != nil {
			break
		}
		if bin.FileCount == 0 {
			continue
		}
		if !emptyAll && !c.Confirm(fmt.Sprintf("Empty %s/%s? (%s, %d files)",
			bin.Share, sysscan.RecycleDirName, bin.HumanSize, bin.FileCount)) {
			continue
		}
		n, err := c.emptyBin(bin.Path)
		if err != nil {
			fmt.Fprintf(c.out, "  failed: %v\n", err)
			continue
		}
		freed += n
	}

	if freed > 0 {
		fmt.Fprintf(c.out, "  Freed %s\n", humanize.IBytes(uint64(freed)))
	}
	c.freed += freed
	return freed
}

func (c *Cleaner) emptyBin(path string) (int64, error) {
	if !strings.Contains(path, sysscan.RecycleDirName) {
		return 0, fmt.Errorf("refusing to empty %q: not a recycle path", path)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", path)
	}

	fmt.Fprintf(c.out, "  Emptying %s...\n", path)
	if c.dryRun {
		return 0, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	var freed int64
	for _, entry := range entries {
		target := filepath.Join(path, entry.Name())
		size := treeSize(target)
		if err := os.RemoveAll(target); err != nil {
			fmt.Fprintf(c.out, "  could not remove %s: %v\n", target, err)
			continue
		}
		freed += size
	}
	return freed, nil
}

func treeSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// RemoveSnapshots offers to delete snapshots past the retention period.
func (c *Cleaner) RemoveSnapshots(ctx context.Context, reports []*sysscan.SnapshotReport) int64 {
	var old []sysscan.Snapshot
	for _, report := range reports {
		if report == nil || !report.Available {
			continue
		}
		for _, snap := range report.Snapshots {
			if snap.IsOld {
				old = append(old, snap)
			}
		}
	}
	if len(old) == 0 {
		fmt.Fprintln(c.out, "  No old snapshots to remove.")
		return 0
	}

	var freed int64
	removeAll := c.Confirm(fmt.Sprintf("Remove all %d old snapshots?", len(old)))
	for _, snap := range old {
		if err := ctx.Err(); err != nil {
			break
		}
		if !removeAll && !c.Confirm(fmt.Sprintf("Remove snapshot %s (%s)?", snap.ID, snap.Date)) {
			continue
		}
		target := filepath.Join(snap.Volume, snap.Path)
		if c.runCmd(ctx, "deleted snapshot "+snap.ID, "btrfs", "subvolume", "delete", target) {
			freed += snap.ExclusiveBytes
		}
	}

	if freed > 0 {
		fmt.Fprintf(c.out, "  Freed approximately %s\n", humanize.IBytes(uint64(freed)))
	}
	c.freed += freed
	return freed
}

// PruneDocker offers the docker prune actions that the scan found
// worthwhile. Sizes freed are reported by Docker itself, so the return
// counts only what the scan estimated as reclaimable.
func (c *Cleaner) PruneDocker(ctx context.Context, report *sysscan.DockerReport) int64 {
	if report == nil || !report.Available {
		fmt.Fprintln(c.out, "  Docker not available.")
		return 0
	}

	pruned := false
	if report.DanglingImages > 0 && c.Confirm("Remove dangling Docker images?") {
		pruned = c.runCmd(ctx, "pruned dangling images", "docker", "image", "prune", "-f") || pruned
	}
	if report.StoppedContainers > 0 && c.Confirm("Remove stopped Docker containers?") {
		pruned = c.runCmd(ctx, "pruned stopped containers", "docker", "container", "prune", "-f") || pruned
	}
	if report.UnusedVolumes > 0 && c.Confirm("Remove unused Docker volumes? (data in volumes will be lost)") {
		pruned = c.runCmd(ctx, "pruned unused volumes", "docker", "volume", "prune", "-f") || pruned
	}
	if c.Confirm("Clean Docker build cache?") {
		pruned = c.runCmd(ctx, "pruned build cache", "docker", "builder", "prune", "-f") || pruned
	}

	if !pruned {
		return 0
	}
	c.freed += report.ReclaimableBytes
	return report.ReclaimableBytes
}

// CleanLogs removes rotated logs and truncates active ones. Only files
// the scan marked safe are touched; active logs are truncated rather
// than deleted so writing services keep a valid file handle.
func (c *Cleaner) CleanLogs(ctx context.Context, report *sysscan.LogReport) int64 {
	if report == nil {
		fmt.Fprintln(c.out, "  No log data available.")
		return 0
	}
	var safe []sysscan.LogFile
	for _, l := range report.Logs {
		if l.SafeToClean {
			safe = append(safe, l)
		}
	}
	if len(safe) == 0 {
		fmt.Fprintln(c.out, "  No logs marked as safe to clean.")
		return 0
	}

	var total int64
	for _, l := range safe {
		total += l.SizeBytes
	}
	if !c.Confirm(fmt.Sprintf("Clean all %d safe log files? (%s)",
		len(safe), humanize.IBytes(uint64(total)))) {
		return 0
	}

	var freed int64
	for _, l := range safe {
		if err := ctx.Err(); err != nil {
			break
		}
		if sysscan.IsRotated(l.Path) {
			fmt.Fprintf(c.out, "  Removing %s...\n", l.Path)
			if c.dryRun {
				continue
			}
			if err := os.Remove(l.Path); err != nil {
				fmt.Fprintf(c.out, "  failed: %v\n", err)
				continue
			}
		} else {
			fmt.Fprintf(c.out, "  Truncating %s...\n", l.Path)
			if c.dryRun {
				continue
			}
			if err := os.Truncate(l.Path, 0); err != nil {
				fmt.Fprintf(c.out, "  failed: %v\n", err)
				continue
			}
		}
		freed += l.SizeBytes
	}

	if freed > 0 {
		fmt.Fprintf(c.out, "  Freed %s\n", humanize.IBytes(uint64(freed)))
	}
	c.freed += freed
	return freed
}
