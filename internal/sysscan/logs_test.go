package sysscan

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLogs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.log"), 2000)
	writeFile(t, filepath.Join(root, "sub", "huge.log.1"), 5000)
	writeFile(t, filepath.Join(root, "small.log"), 10)
	writeFile(t, filepath.Join(root, "data.bin"), 9000)

	report, err := ScanLogs(context.Background(), []string{root}, 1000)
	require.NoError(t, err)

	require.Len(t, report.Logs, 2)
	assert.Equal(t, filepath.Join(root, "sub", "huge.log.1"), report.Logs[0].Path)
	assert.Equal(t, int64(5000), report.Logs[0].SizeBytes)
	assert.Equal(t, filepath.Join(root, "big.log"), report.Logs[1].Path)
	assert.Equal(t, int64(7000), report.TotalSizeBytes)
	assert.Equal(t, int64(1000), report.ThresholdBytes)
}

func TestScanLogsThresholdBoundary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "exact.log"), 1000)
	writeFile(t, filepath.Join(root, "under.log"), 999)

	report, err := ScanLogs(context.Background(), []string{root}, 1000)
	require.NoError(t, err)
	require.Len(t, report.Logs, 1)
	assert.Equal(t, filepath.Join(root, "exact.log"), report.Logs[0].Path)
}

func TestScanLogsMissingRoot(t *testing.T) {
	report, err := ScanLogs(context.Background(), []string{"/does/not/exist/logs"}, 1000)
	require.NoError(t, err)
	assert.Empty(t, report.Logs)
}

func TestSafeToClean(t *testing.T) {
	assert.True(t, SafeToClean("/var/log/messages.log"))
	assert.True(t, SafeToClean("/var/log/syslog.2.gz"))
	assert.True(t, SafeToClean("/var/log/auth.log.1"))
	assert.False(t, SafeToClean("/var/log/journal/system.journal"))
}

func TestIsRotated(t *testing.T) {
	assert.True(t, IsRotated("/var/log/syslog.2.gz"))
	assert.True(t, IsRotated("/var/log/messages.old"))
	assert.False(t, IsRotated("/var/log/messages.log"))
}
