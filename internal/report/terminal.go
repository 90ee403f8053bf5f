package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiHeader  = "\033[1;36m"
	ansiSection = "\033[1;33m"
	ansiWarn    = "\033[31m"
	ansiGood    = "\033[32m"

	barWidth = 40
)

// Renderer writes a human-readable analysis summary. Color output is
// disabled when the destination is not a terminal.
type Renderer struct {
	Color bool
	// TopFiles limits the large-file listing. Zero means 20.
	TopFiles int
	// TopDirs limits the large-directory listing. Zero means 10.
	TopDirs int
}

func (r *Renderer) paint(code, s string) string {
	if !r.Color {
		return s
	}
	return code + s + ansiReset
}

func (r *Renderer) section(w io.Writer, title string) {
	fmt.Fprintln(w, r.paint(ansiSection, "--- "+title+" ---"))
}

// Render writes the full terminal summary for a finalized Analysis.
func (r *Renderer) Render(w io.Writer, a *Analysis) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, r.paint(ansiHeader, rule))
	fmt.Fprintln(w, r.paint(ansiHeader, "  Space Analysis Report"))
	fmt.Fprintln(w, r.paint(ansiHeader, rule))
	fmt.Fprintf(w, "  Run %s at %s\n\n", a.RunID, a.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	r.renderVolumes(w, a)
	r.renderDuplicates(w, a)
	r.renderRanking(w, a)
	r.renderRecycle(w, a)
	r.renderSnapshots(w, a)
	r.renderDocker(w, a)
	r.renderLogs(w, a)
	r.renderReclaimable(w, a)
}

func (r *Renderer) renderVolumes(w io.Writer, a *Analysis) {
	if len(a.Volumes) == 0 {
		return
	}
	r.section(w, "Volumes")
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, v := range a.Volumes {
		fmt.Fprintf(tw, "  %s\t%s used of %s\t(%.1f%%)\n", v.Path, v.HumanUsed, v.HumanTotal, v.UsedPercent)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func (r *Renderer) renderDuplicates(w io.Writer, a *Analysis) {
	if a.Duplicates == nil {
		return
	}
	d := a.Duplicates
	r.section(w, fmt.Sprintf("Duplicate Files (%d groups)", len(d.Groups)))
	if d.Error != "" {
		fmt.Fprintf(w, "  %s\n\n", r.paint(ansiWarn, "no usable hash algorithm; duplicate detection skipped"))
		return
	}
	if len(d.Groups) == 0 {
		fmt.Fprintln(w, "  No duplicates found.")
		fmt.Fprintln(w)
		return
	}
	limit := len(d.Groups)
	if limit > 10 {
		limit = 10
	}
	for _, g := range d.Groups[:limit] {
		fmt.Fprintf(w, "  %s wasted  (%d copies of %s)\n",
			humanize.IBytes(uint64(g.Wasted)), g.Count, humanize.IBytes(uint64(g.Size)))
		for _, f := range g.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
	fmt.Fprintf(w, "\n  Total wasted: %s\n\n",
		r.paint(ansiBold, humanize.IBytes(uint64(d.TotalWastedBytes))))
}

func (r *Renderer) renderRanking(w io.Writer, a *Analysis) {
	if a.Ranking == nil {
		return
	}
	topFiles := r.TopFiles
	if topFiles <= 0 {
		topFiles = 20
	}
	topDirs := r.TopDirs
	if topDirs <= 0 {
		topDirs = 10
	}

	r.section(w, "Large Files")
	files := a.Ranking.TopFiles
	if len(files) > topFiles {
		files = files[:topFiles]
	}
	for i, f := range files {
		fmt.Fprintf(w, "  %3d. %10s  %-20s  %s\n", i+1, f.HumanSize, f.Modified, f.Path)
	}
	fmt.Fprintln(w)

	r.section(w, "Large Directories")
	dirs := a.Ranking.TopDirs
	if len(dirs) > topDirs {
		dirs = dirs[:topDirs]
	}
	for i, d := range dirs {
		fmt.Fprintf(w, "  %3d. %10s  %s\n", i+1, d.HumanSize, d.Path)
	}
	fmt.Fprintln(w)
}

func (r *Renderer) renderRecycle(w io.Writer, a *Analysis) {
	if a.RecycleBins == nil {
		return
	}
	r.section(w, "Recycle Bins")
	if len(a.RecycleBins.Bins) == 0 || a.RecycleBins.TotalSizeBytes == 0 {
		fmt.Fprintln(w, "  Recycle bins are empty.")
		fmt.Fprintln(w)
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, b := range a.RecycleBins.Bins {
		fmt.Fprintf(tw, "  %s\t%s\t(%d files)\n", b.Share, b.HumanSize, b.FileCount)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n  Total reclaimable: %s\n\n",
		r.paint(ansiWarn, humanize.IBytes(uint64(a.RecycleBins.TotalSizeBytes))))
}

func (r *Renderer) renderSnapshots(w io.Writer, a *Analysis) {
	if len(a.Snapshots) == 0 {
		return
	}
	for _, sr := range a.Snapshots {
		if !sr.Available {
			r.section(w, "Btrfs Snapshots")
			fmt.Fprintln(w, "  Btrfs not available or not accessible.")
			fmt.Fprintln(w)
			continue
		}
		r.section(w, fmt.Sprintf("Btrfs Snapshots (%d total, %d old)", sr.Total, sr.OldCount))
		for _, s := range sr.Snapshots {
			marker := "      "
			if s.IsOld {
				marker = r.paint(ansiWarn, "[OLD]") + " "
			}
			fmt.Fprintf(w, "  %sID: %-6s  Date: %-20s  Path: %s\n", marker, s.ID, s.Date, s.Path)
		}
		fmt.Fprintln(w)
	}
}

func (r *Renderer) renderDocker(w io.Writer, a *Analysis) {
	if a.Docker == nil {
		return
	}
	r.section(w, "Docker")
	if !a.Docker.Available {
		fmt.Fprintln(w, "  Docker not available.")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "  Dangling images:    %d\n", a.Docker.DanglingImages)
	fmt.Fprintf(w, "  Stopped containers: %d\n", a.Docker.StoppedContainers)
	fmt.Fprintf(w, "  Unused volumes:     %d\n", a.Docker.UnusedVolumes)
	if a.Docker.ReclaimableBytes > 0 {
		fmt.Fprintf(w, "  Reclaimable:        %s\n", humanize.IBytes(uint64(a.Docker.ReclaimableBytes)))
	}
	fmt.Fprintln(w)
}

func (r *Renderer) renderLogs(w io.Writer, a *Analysis) {
	if a.Logs == nil {
		return
	}
	r.section(w, "Oversized Logs")
	if len(a.Logs.Logs) == 0 {
		fmt.Fprintln(w, "  No oversized log files.")
		fmt.Fprintln(w)
		return
	}
	for _, l := range a.Logs.Logs {
		safe := "  "
		if l.SafeToClean {
			safe = r.paint(ansiGood, "✓ ")
		}
		fmt.Fprintf(w, "  %s%10s  %s\n", safe, l.HumanSize, l.Path)
	}
	fmt.Fprintf(w, "\n  Total oversized logs: %s\n\n",
		humanize.IBytes(uint64(a.Logs.TotalSizeBytes)))
}

func (r *Renderer) renderReclaimable(w io.Writer, a *Analysis) {
	r.section(w, "Reclaimable Space")
	if a.Reclaimable.TotalBytes == 0 {
		fmt.Fprintln(w, "  Nothing obviously reclaimable. Nice and tidy.")
		return
	}

	categories := make([]Category, len(a.Reclaimable.Categories))
	copy(categories, a.Reclaimable.Categories)
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Bytes > categories[j].Bytes
	})

	max := categories[0].Bytes
	for _, c := range categories {
		width := int(int64(barWidth) * c.Bytes / max)
		if width == 0 {
			width = 1
		}
		bar := strings.Repeat("#", width)
		fmt.Fprintf(w, "  %-22s %10s  %s\n", c.Name, humanize.IBytes(uint64(c.Bytes)), r.paint(ansiGood, bar))
	}
	fmt.Fprintf(w, "\n  %s %s\n", "Total reclaimable:",
		r.paint(ansiBold, humanize.IBytes(uint64(a.Reclaimable.TotalBytes))))
}
