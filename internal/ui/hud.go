package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bamsammich/reclaim/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

const (
	sparklineWidth   = 20
	progressBarWidth = 20
	hudMinInterval   = 50 * time.Millisecond // don't redraw faster than this
)

// hudPresenter provides a rich TTY display with a scrolling feed of
// duplicate groups and hash failures, and a 2-line HUD that redraws in
// place. Before digesting starts it shows a one-line scan counter.
type hudPresenter struct {
	w     io.Writer
	stats *stats.Collector

	// Internal state.
	hashing      bool
	hudDrawn     bool
	hudLineCount int
	lastHUDDraw  time.Time
}

func (p *hudPresenter) Run(events <-chan Event) error {
	// Fire first tick quickly to seed the ring buffer with initial speed data,
	// then switch to 1s interval.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw ticker for when no events are flowing (e.g., one huge file
	// being hashed).
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.drawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(1 * time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case HashStarted:
		p.hashing = true
		p.clearHUD()
		fmt.Fprintf(p.w, "%shashing %s candidates (%s)...%s\n",
			ansiDim, FormatCount(ev.Total), FormatBytes(ev.TotalSize), ansiReset)
		p.drawHUD()

	case GroupFound:
		p.clearHUD()
		fmt.Fprintf(p.w, "≡  %s  %s × %s\n",
			p.styledPath(ev.Path), FormatCount(ev.Total), FormatBytes(ev.Size))
		p.drawHUD()

	case FileFailed:
		p.clearHUD()
		p.printFileFailed(ev)
		p.drawHUD()

	case ScanComplete, HashComplete:
		p.clearHUD()
		p.drawHUD()
	}
}

func (p *hudPresenter) printFileFailed(ev Event) {
	errMsg := "error"
	if ev.Error != nil {
		errMsg = ev.Error.Error()
	}
	fmt.Fprintf(p.w, "✗  %s  %10s  %s\n",
		p.styledPath(ev.Path), FormatBytes(ev.Size), errMsg)
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	now := time.Now()
	if now.Sub(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	snap := p.stats.Snapshot()

	// Clear previous HUD if drawn.
	p.clearHUD()

	lines := 0

	if !p.hashing {
		// Scan phase: one counter line.
		fmt.Fprintf(p.w, " scanning   %s files seen   %s candidates\n",
			FormatCount(snap.FilesSeen), FormatCount(snap.FilesCataloged))
		lines++
	} else {
		var pct float64
		if snap.BytesToHash > 0 {
			pct = float64(snap.BytesHashed) / float64(snap.BytesToHash)
		}
		speed := p.stats.RollingSpeed(10)
		eta := p.stats.ETA()

		// Line 1: throughput sparkline + speed + byte totals.
		spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)
		fmt.Fprintf(p.w, "       %s   %s   %s / %s\n",
			spark, FormatRate(speed),
			FormatBytes(snap.BytesHashed), FormatBytes(snap.BytesToHash))
		lines++

		// Line 2: progress bar (▪/□) + files + groups + eta.
		bar := ProgressBar(pct, progressBarWidth)
		fmt.Fprintf(p.w, " %3.0f%%  %s   %s / %s files   %s groups   eta %s\n",
			pct*100, bar,
			FormatCount(snap.FilesHashed), FormatCount(snap.FilesToHash),
			FormatCount(snap.GroupsFound),
			FormatETA(eta))
		lines++
	}

	p.hudDrawn = true
	p.hudLineCount = lines
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	lines := p.hudLineCount
	if lines == 0 {
		lines = 2 // fallback
	}
	// Move cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", lines)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// styledPath returns the path with the directory portion dimmed and the
// filename in normal weight, making the actual filename stand out.
func (p *hudPresenter) styledPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return base
	}
	return fmt.Sprintf("%s%s/%s%s", ansiDim, dir, ansiReset, base)
}
