package ui

import (
	"fmt"

	"github.com/bamsammich/reclaim/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  seen 48,917  hashed 1,204  read 2.1 GiB  avg 641 MB/s  groups 37  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesHashed) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.HashFailures > 0 {
		icon = "✗"
	}

	return fmt.Sprintf("done %s  seen %s  hashed %s  read %s  avg %s  groups %s  time %s  errors %d",
		icon,
		FormatCount(snap.FilesSeen),
		FormatCount(snap.FilesHashed),
		FormatBytes(snap.BytesHashed),
		FormatRate(avgSpeed),
		FormatCount(snap.GroupsFound),
		FormatDuration(snap.Elapsed),
		snap.HashFailures,
	)
}
