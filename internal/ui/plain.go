package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/reclaim/internal/stats"
)

// plainPresenter outputs one line per notable event to stdout, and
// periodic progress to stderr when not a TTY.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	verbose bool
	hashing bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	secTicker := time.NewTicker(1 * time.Second)
	defer secTicker.Stop()
	progressTicker := time.NewTicker(5 * time.Second)
	defer progressTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-secTicker.C:
			p.stats.Tick()
		case <-progressTicker.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case HashStarted:
		p.hashing = true
		fmt.Fprintf(p.errW, "hashing %s candidates (%s)\n",
			FormatCount(ev.Total), FormatBytes(ev.TotalSize))
	case FileHashed:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s\n", ev.Path, FormatBytes(ev.Size))
		}
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s\n", ev.Path, errMsg)
	case FileSkipped:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  skipped\n", ev.Path)
		}
	case GroupFound:
		fmt.Fprintf(p.w, "duplicate group: %s copies of %s  (%s)\n",
			FormatCount(ev.Total), FormatBytes(ev.Size), ev.Path)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if p.hashing && snap.BytesToHash > 0 {
		pct := float64(snap.BytesHashed) / float64(snap.BytesToHash) * 100
		speed := p.stats.RollingSpeed(10)
		eta := p.stats.ETA()
		fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s %s/%s files %s eta %s\n",
			pct,
			FormatBytes(snap.BytesHashed), FormatBytes(snap.BytesToHash),
			FormatCount(snap.FilesHashed), FormatCount(snap.FilesToHash),
			FormatRate(speed),
			FormatETA(eta),
		)
	} else {
		fmt.Fprintf(p.errW, "progress: %s files seen %s cataloged\n",
			FormatCount(snap.FilesSeen),
			FormatCount(snap.FilesCataloged),
		)
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
