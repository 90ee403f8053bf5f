package sysscan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotScannerUnavailable(t *testing.T) {
	s := &SnapshotScanner{Run: fakeRunner(nil)}
	report := s.Scan(context.Background(), "/volume1")
	assert.False(t, report.Available)
	assert.Empty(t, report.Snapshots)
	assert.Equal(t, 30, report.MaxAgeDays)
}

func TestSnapshotScanner(t *testing.T) {
	list := `ID 257 gen 100 cgen 90 top level 5 otime 2026-01-01 00:00:00 path @snapshots/daily.2
ID 258 gen 200 cgen 190 top level 5 otime 2026-08-20 12:00:00 path @snapshots/daily.1
garbage line
`
	qgroup := `qgroupid rfer excl
-------- ---- ----
0/257 1048576 524288
0/258 2097152 131072
`
	s := &SnapshotScanner{
		Run: fakeRunner(map[string]string{
			"btrfs subvolume list -s -o /volume1": list,
			"btrfs qgroup show --raw /volume1":    qgroup,
		}),
		Now: func() time.Time {
			return time.Date(2026, 8, 29, 0, 0, 0, 0, time.Local)
		},
	}

	report := s.Scan(context.Background(), "/volume1")
	assert.True(t, report.Available)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.OldCount)
	require.Len(t, report.Snapshots, 2)

	old := report.Snapshots[0]
	assert.Equal(t, "257", old.ID)
	assert.Equal(t, "2026-01-01 00:00:00", old.Date)
	assert.Equal(t, "@snapshots/daily.2", old.Path)
	assert.Equal(t, "/volume1", old.Volume)
	assert.True(t, old.IsOld)
	assert.Equal(t, int64(524288), old.ExclusiveBytes)

	recent := report.Snapshots[1]
	assert.Equal(t, "258", recent.ID)
	assert.False(t, recent.IsOld)
	assert.Equal(t, int64(131072), recent.ExclusiveBytes)
}

func TestSnapshotScannerNoQgroups(t *testing.T) {
	list := "ID 300 gen 1 cgen 1 top level 5 otime 2026-08-28 00:00:00 path @snapshots/new\n"
	s := &SnapshotScanner{
		Run: fakeRunner(map[string]string{
			"btrfs subvolume list -s -o /volume1": list,
		}),
	}

	report := s.Scan(context.Background(), "/volume1")
	assert.True(t, report.Available)
	require.Len(t, report.Snapshots, 1)
	assert.Zero(t, report.Snapshots[0].ExclusiveBytes)
}

func TestSnapshotScannerMaxAgeOverride(t *testing.T) {
	list := "ID 301 gen 1 cgen 1 top level 5 otime 2026-08-25 00:00:00 path @snapshots/daily.0\n"
	s := &SnapshotScanner{
		Run: fakeRunner(map[string]string{
			"btrfs subvolume list -s -o /volume1": list,
		}),
		MaxAge: 48 * time.Hour,
		Now: func() time.Time {
			return time.Date(2026, 8, 29, 0, 0, 0, 0, time.Local)
		},
	}

	report := s.Scan(context.Background(), "/volume1")
	assert.Equal(t, 2, report.MaxAgeDays)
	require.Len(t, report.Snapshots, 1)
	assert.True(t, report.Snapshots[0].IsOld)
}

func TestParseSnapshotLine(t *testing.T) {
	snap, ok := parseSnapshotLine("ID 257 gen 10 cgen 10 top level 5 otime 2024-01-01 00:00:00 path @snapshots/daily.0")
	require.True(t, ok)
	assert.Equal(t, "257", snap.ID)
	assert.Equal(t, "2024-01-01 00:00:00", snap.Date)
	assert.Equal(t, "@snapshots/daily.0", snap.Path)

	_, ok = parseSnapshotLine("garbage")
	assert.False(t, ok)
}
