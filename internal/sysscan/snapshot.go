package sysscan

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// DefaultSnapshotMaxAge is the retention period past which a snapshot is
// flagged as old.
const DefaultSnapshotMaxAge = 30 * 24 * time.Hour

// Snapshot is one btrfs snapshot subvolume.
type Snapshot struct {
	// ID is the subvolume ID.
	ID string `json:"id"`
	// Date is the creation time in "2006-01-02 15:04:05" form.
	Date string `json:"date"`
	// Path is the subvolume path relative to the volume root.
	Path string `json:"path"`
	// Volume is the mount point the snapshot lives on.
	Volume string `json:"volume"`
	// IsOld reports whether the snapshot exceeds the retention period.
	IsOld bool `json:"is_old"`
	// ExclusiveBytes is space freed by deleting this snapshot alone.
	// Zero when quota groups are disabled on the volume.
	ExclusiveBytes int64 `json:"exclusive_bytes"`
}

// SnapshotReport lists the btrfs snapshots of one volume.
type SnapshotReport struct {
	Available  bool       `json:"available"`
	Total      int        `json:"total"`
	OldCount   int        `json:"old_count"`
	MaxAgeDays int        `json:"max_age_days"`
	Snapshots  []Snapshot `json:"snapshots"`
}

// SnapshotScanner lists btrfs snapshots via the btrfs CLI.
type SnapshotScanner struct {
	// Run executes btrfs commands. Defaults to the real CLI.
	Run CommandRunner
	// MaxAge overrides DefaultSnapshotMaxAge when positive.
	MaxAge time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scan lists the snapshots of volume and flags those older than the
// retention period. A missing btrfs CLI or a non-btrfs volume yields
// Available=false, never an error.
func (s *SnapshotScanner) Scan(ctx context.Context, volume string) *SnapshotReport {
	run := s.Run
	if run == nil {
		run = runCommand
	}
	maxAge := s.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultSnapshotMaxAge
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	report := &SnapshotReport{
		MaxAgeDays: int(maxAge / (24 * time.Hour)),
		Snapshots:  make([]Snapshot, 0),
	}

	out, err := run(ctx, "btrfs", "subvolume", "list", "-s", "-o", volume)
	if err != nil {
		slog.Debug("btrfs unavailable", "volume", volume, "error", err)
		return report
	}
	report.Available = true

	exclusive := qgroupExclusive(run, ctx, volume)
	cutoff := now().Add(-maxAge)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		snap, ok := parseSnapshotLine(scanner.Text())
		if !ok {
			continue
		}
		snap.Volume = volume
		snap.ExclusiveBytes = exclusive[snap.ID]
		if created, err := time.ParseInLocation(time.DateTime, snap.Date, time.Local); err == nil {
			snap.IsOld = created.Before(cutoff)
		}
		report.Snapshots = append(report.Snapshots, snap)
		report.Total++
		if snap.IsOld {
			report.OldCount++
		}
	}
	return report
}

// parseSnapshotLine parses one line of `btrfs subvolume list -s`:
//
//	ID 257 gen 10 cgen 10 top level 5 otime 2024-01-01 00:00:00 path @snapshots/daily.0
func parseSnapshotLine(line string) (Snapshot, bool) {
	fields := strings.Fields(line)
	var snap Snapshot
	for i := 0; i < len(fields)-1; i++ {
		switch fields[i] {
		case "ID":
			snap.ID = fields[i+1]
		case "otime":
			if i+2 < len(fields) {
				snap.Date = fields[i+1] + " " + fields[i+2]
			}
		case "path":
			snap.Path = fields[i+1]
		}
	}
	return snap, snap.ID != "" && snap.Path != ""
}

// qgroupExclusive maps subvolume IDs to their exclusive byte counts from
// `btrfs qgroup show --raw`. Returns an empty map when quota groups are
// disabled.
func qgroupExclusive(run CommandRunner, ctx context.Context, volume string) map[string]int64 {
	sizes := make(map[string]int64)
	out, err := run(ctx, "btrfs", "qgroup", "show", "--raw", volume)
	if err != nil {
		return sizes
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// Rows look like "0/257 1048576 524288".
		if len(fields) < 3 {
			continue
		}
		id, ok := strings.CutPrefix(fields[0], "0/")
		if !ok {
			continue
		}
		excl, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		sizes[id] = excl
	}
	return sizes
}
