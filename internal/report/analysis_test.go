package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/reclaim/internal/dupes"
	"github.com/bamsammich/reclaim/internal/sysscan"
)

func sampleAnalysis() *Analysis {
	a := New([]string{"/volume1"})
	a.Duplicates = &dupes.Result{
		Groups: []dupes.Group{
			{Hash: "aa", Size: 100, Count: 3, Wasted: 200, Files: []string{"/volume1/a", "/volume1/b", "/volume1/c"}},
		},
		TotalWastedBytes: 200,
	}
	a.RecycleBins = &sysscan.RecycleReport{
		Bins:           []sysscan.RecycleBin{{Share: "photos", Path: "/volume1/photos/#recycle", SizeBytes: 500, HumanSize: "500 B", FileCount: 4}},
		TotalSizeBytes: 500,
		TotalFiles:     4,
	}
	a.Logs = &sysscan.LogReport{
		Logs: []sysscan.LogFile{
			{Path: "/var/log/big.log", SizeBytes: 300, HumanSize: "300 B", SafeToClean: true},
			{Path: "/var/log/system.journal", SizeBytes: 900, HumanSize: "900 B", SafeToClean: false},
		},
		TotalSizeBytes: 1200,
	}
	a.Snapshots = []*sysscan.SnapshotReport{{
		Available: true,
		Total:     2,
		OldCount:  1,
		Snapshots: []sysscan.Snapshot{
			{ID: "257", IsOld: true, ExclusiveBytes: 1000},
			{ID: "258", IsOld: false, ExclusiveBytes: 9999},
		},
	}}
	a.Docker = &sysscan.DockerReport{Available: true, DanglingImages: 2, ReclaimableBytes: 50}
	return a
}

func TestAnalysisRunID(t *testing.T) {
	a := New([]string{"/volume1"})
	_, err := uuid.Parse(a.RunID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"/volume1"}, a.Roots)
	assert.False(t, a.GeneratedAt.IsZero())
}

func TestFinalizeCategories(t *testing.T) {
	a := sampleAnalysis()
	a.Finalize()

	byName := map[string]int64{}
	for _, c := range a.Reclaimable.Categories {
		byName[c.Name] = c.Bytes
	}
	assert.Equal(t, int64(200), byName[CategoryDuplicates])
	assert.Equal(t, int64(500), byName[CategoryRecycle])
	assert.Equal(t, int64(1000), byName[CategorySnapshots])
	assert.Equal(t, int64(300), byName[CategoryLogs], "only safe-to-clean logs count")
	assert.Equal(t, int64(50), byName[CategoryDocker])
	assert.Equal(t, int64(2050), a.Reclaimable.TotalBytes)
}

func TestFinalizeSkipsEmptyCategories(t *testing.T) {
	a := New([]string{"/volume1"})
	a.Docker = &sysscan.DockerReport{Available: false}
	a.Finalize()
	assert.Empty(t, a.Reclaimable.Categories)
	assert.Zero(t, a.Reclaimable.TotalBytes)
}

func TestFinalizeIdempotent(t *testing.T) {
	a := sampleAnalysis()
	a.Finalize()
	first := a.Reclaimable
	a.Finalize()
	assert.Equal(t, first, a.Reclaimable)
}

func TestWriteSummary(t *testing.T) {
	a := sampleAnalysis()
	a.Finalize()

	path := filepath.Join(t.TempDir(), "out", "summary.json")
	require.NoError(t, a.WriteSummary(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Analysis
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, a.RunID, decoded.RunID)
	assert.Equal(t, int64(2050), decoded.Reclaimable.TotalBytes)
	require.NotNil(t, decoded.Duplicates)
	assert.Equal(t, int64(200), decoded.Duplicates.TotalWastedBytes)
}
