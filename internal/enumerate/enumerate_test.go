package enumerate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/reclaim/internal/event"
	"github.com/bamsammich/reclaim/internal/filter"
	"github.com/bamsammich/reclaim/internal/stats"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func collect(t *testing.T, e *Enumerator) map[string]FileRecord {
	t.Helper()
	out := make(map[string]FileRecord)
	for rec := range e.Enumerate(context.Background()) {
		out[rec.Path] = rec
	}
	return out
}

func TestEnumerateRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), 100)
	writeFile(t, filepath.Join(root, "sub", "b.bin"), 200)
	writeFile(t, filepath.Join(root, "sub", "deep", "c.bin"), 300)

	e := New(Config{Roots: []string{root}})
	got := collect(t, e)

	require.Len(t, got, 3)
	assert.Equal(t, int64(100), got[filepath.Join(root, "a.bin")].Size)
	assert.Equal(t, int64(200), got[filepath.Join(root, "sub", "b.bin")].Size)
	assert.Equal(t, int64(300), got[filepath.Join(root, "sub", "deep", "c.bin")].Size)
	for _, rec := range got {
		assert.WithinDuration(t, time.Now(), rec.ModTime, time.Minute)
	}
}

func TestEnumerateSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.bin")
	writeFile(t, target, 50)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link.bin")))

	e := New(Config{Roots: []string{root}})
	got := collect(t, e)

	require.Len(t, got, 1)
	assert.Contains(t, got, target)
}

func TestEnumerateExcludesSubtrees(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.bin"), 10)
	writeFile(t, filepath.Join(root, "#recycle", "trash.bin"), 10)
	writeFile(t, filepath.Join(root, "photo", "@eaDir", "thumb.bin"), 10)

	excl, err := filter.NewSet(DefaultExcludes...)
	require.NoError(t, err)

	e := New(Config{Roots: []string{root}, Excludes: excl})
	got := collect(t, e)

	require.Len(t, got, 1)
	assert.Contains(t, got, filepath.Join(root, "keep.bin"))
}

func TestEnumerateExcludesFilePattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "movie.mkv"), 10)
	writeFile(t, filepath.Join(root, "download.part"), 10)

	excl, err := filter.NewSet("*.part")
	require.NoError(t, err)

	e := New(Config{Roots: []string{root}, Excludes: excl})
	got := collect(t, e)

	require.Len(t, got, 1)
	assert.Contains(t, got, filepath.Join(root, "movie.mkv"))
}

func TestEnumerateMultipleRoots(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	writeFile(t, filepath.Join(root1, "a.bin"), 10)
	writeFile(t, filepath.Join(root2, "b.bin"), 20)

	e := New(Config{Roots: []string{root1, root2}})
	got := collect(t, e)

	assert.Len(t, got, 2)
}

func TestEnumerateMissingRoot(t *testing.T) {
	c := stats.NewCollector()
	e := New(Config{
		Roots: []string{filepath.Join(t.TempDir(), "does-not-exist")},
		Stats: c,
	})
	got := collect(t, e)

	assert.Empty(t, got)
	assert.Equal(t, int64(1), c.Snapshot().FilesSkipped)
}

func TestEnumerateCountsSeen(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(root, "f"+string(rune('a'+i))+".bin"), 10)
	}

	c := stats.NewCollector()
	e := New(Config{Roots: []string{root}, Stats: c})
	got := collect(t, e)

	assert.Len(t, got, 5)
	assert.Equal(t, int64(5), c.Snapshot().FilesSeen)
}

func TestEnumerateCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, filepath.Join(root, "dir", "f"+string(rune('a'+i%26))+string(rune('0'+i/26))+".bin"), 10)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the walk starts

	e := New(Config{Roots: []string{root}})
	var n int
	for range e.Enumerate(ctx) {
		n++
	}
	assert.Zero(t, n)
}

// A consumer that gives up on cancellation must be able to close its
// event channel without racing fastwalk workers that are still calling
// Emit. Done is the termination signal; the record channel closing is
// not. Closing the events channel before Done would panic here.
func TestEnumerateDoneGuardsEventChannel(t *testing.T) {
	for i := 0; i < 20; i++ {
		root := t.TempDir()
		for i := 0; i < 40; i++ {
			writeFile(t, filepath.Join(root, "d"+string(rune('a'+i%4)), "f"+string(rune('a'+i%26))+string(rune('0'+i/26))+".bin"), 10)
		}

		events := make(chan event.Event, 1)
		ctx, cancel := context.WithCancel(context.Background())

		e := New(Config{Roots: []string{root}, Events: events})
		records := e.Enumerate(ctx)

		// Abandon the walk after the first record, as a SIGINT would.
		<-records
		cancel()
		for range records {
		}

		<-e.Done()
		close(events)
		for range events {
		}
	}
}

func TestEnumerateDoneClosesAfterCleanRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), 10)

	e := New(Config{Roots: []string{root}})
	got := collect(t, e)

	require.Len(t, got, 1)
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("walk never signalled termination")
	}
}
