package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/reclaim/internal/event"
	"github.com/bamsammich/reclaim/internal/stats"
)

func newHUD() (*hudPresenter, *bytes.Buffer) {
	var buf bytes.Buffer
	return &hudPresenter{w: &buf, stats: stats.NewCollector()}, &buf
}

func TestHUDScanPhase(t *testing.T) {
	p, buf := newHUD()
	p.stats.AddFilesSeen(123)
	p.stats.AddFilesCataloged(45)

	p.drawHUD()

	out := buf.String()
	assert.Contains(t, out, "scanning")
	assert.Contains(t, out, "123 files seen")
	assert.Contains(t, out, "45 candidates")
	assert.Equal(t, 1, p.hudLineCount)
}

func TestHUDHashPhase(t *testing.T) {
	p, buf := newHUD()
	p.hashing = true
	p.stats.SetHashTotals(10, 1000)
	p.stats.AddFilesHashed(5)
	p.stats.AddBytesHashed(500)
	p.stats.AddGroupsFound(2)

	p.drawHUD()

	out := buf.String()
	assert.Contains(t, out, " 50%")
	assert.Contains(t, out, "5 / 10 files")
	assert.Contains(t, out, "2 groups")
	assert.Equal(t, 2, p.hudLineCount)
}

func TestHUDClearAfterDraw(t *testing.T) {
	p, buf := newHUD()
	p.drawHUD()
	p.clearHUD()

	// Cursor-up and clear-to-end sequences present.
	assert.Contains(t, buf.String(), "\033[1A\033[J")
	assert.False(t, p.hudDrawn)
}

func TestHUDClearWithoutDrawIsNoop(t *testing.T) {
	p, buf := newHUD()
	p.clearHUD()
	assert.Empty(t, buf.String())
}

func TestHUDGroupFoundFeedLine(t *testing.T) {
	p, buf := newHUD()
	p.handleEvent(Event{Type: event.GroupFound, Path: "/vol1/media/movie.mkv", Size: 1 << 30, Total: 3})

	out := buf.String()
	assert.Contains(t, out, "≡")
	assert.Contains(t, out, "movie.mkv")
	assert.Contains(t, out, "1.0 GiB")
}

func TestHUDFileFailedFeedLine(t *testing.T) {
	p, buf := newHUD()
	p.handleEvent(Event{Type: event.FileFailed, Path: "/vol1/locked.db", Error: errors.New("permission denied")})

	out := buf.String()
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "permission denied")
}

func TestHUDHashStartedSwitchesPhase(t *testing.T) {
	p, buf := newHUD()
	p.handleEvent(Event{Type: event.HashStarted, Total: 7, TotalSize: 7000})

	assert.True(t, p.hashing)
	assert.Contains(t, buf.String(), "hashing 7 candidates")
}

func TestHUDRunDrainsAndClears(t *testing.T) {
	p, buf := newHUD()
	events := make(chan Event, 4)
	events <- Event{Type: event.ScanStarted}
	events <- Event{Type: event.HashStarted, Total: 1, TotalSize: 100}
	events <- Event{Type: event.FileHashed, Path: "/vol1/a.bin", Size: 100}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.False(t, p.hudDrawn, "HUD cleared when events channel closes")
	assert.NotEmpty(t, buf.String())
}

func TestStyledPath(t *testing.T) {
	p, _ := newHUD()
	styled := p.styledPath("/vol1/media/movie.mkv")
	assert.True(t, strings.HasSuffix(styled, "movie.mkv"))
	assert.Contains(t, styled, ansiDim)
}
