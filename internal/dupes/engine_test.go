package dupes

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"hash"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/reclaim/internal/enumerate"
	"github.com/bamsammich/reclaim/internal/event"
	"github.com/bamsammich/reclaim/internal/stats"
)

// feed returns a closed channel carrying the given records, standing in
// for a live enumerator.
func feed(records ...enumerate.FileRecord) <-chan enumerate.FileRecord {
	ch := make(chan enumerate.FileRecord, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

// writeAndRecord creates a file with the given content and returns its record.
func writeAndRecord(t *testing.T, dir, name string, content []byte) enumerate.FileRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return enumerate.FileRecord{Path: path, Size: int64(len(content))}
}

// spyDigest registers a counting digest and returns its name plus the
// invocation counter. One count per hashed file.
func spyDigest(t *testing.T, name string) *atomic.Int64 {
	t.Helper()
	var calls atomic.Int64
	Register(Algorithm{
		Name: name,
		New: func() hash.Hash {
			calls.Add(1)
			return sha256.New()
		},
	})
	return &calls
}

func TestEngineDuplicateScenario(t *testing.T) {
	dir := t.TempDir()
	same := make([]byte, 100)
	for i := range same {
		same[i] = 'x'
	}
	diff := make([]byte, 100)
	for i := range diff {
		diff[i] = 'y'
	}

	r1 := writeAndRecord(t, dir, "copy1.bin", same)
	r2 := writeAndRecord(t, dir, "copy2.bin", same)
	r3 := writeAndRecord(t, dir, "copy3.bin", same)
	r4 := writeAndRecord(t, dir, "other.bin", diff)
	r5 := writeAndRecord(t, dir, "unique.bin", make([]byte, 50))

	e := New(Config{MinSize: 1})
	result, err := e.Run(context.Background(), feed(r1, r2, r3, r4, r5))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	g := result.Groups[0]
	assert.Equal(t, 3, g.Count)
	assert.Equal(t, int64(100), g.Size)
	assert.Equal(t, int64(200), g.Wasted)
	assert.ElementsMatch(t, []string{r1.Path, r2.Path, r3.Path}, g.Files)
	assert.Equal(t, int64(200), result.TotalWastedBytes)

	// The differing-content and unique-size files appear in no group.
	for _, g := range result.Groups {
		assert.NotContains(t, g.Files, r4.Path)
		assert.NotContains(t, g.Files, r5.Path)
	}
}

func TestEngineNeverHashesSmallFiles(t *testing.T) {
	dir := t.TempDir()
	content := []byte("below threshold")
	r1 := writeAndRecord(t, dir, "s1.bin", content)
	r2 := writeAndRecord(t, dir, "s2.bin", content)

	calls := spyDigest(t, "spy-small")
	e := New(Config{MinSize: 1024, Digests: []string{"spy-small"}})
	result, err := e.Run(context.Background(), feed(r1, r2))
	require.NoError(t, err)

	assert.Empty(t, result.Groups)
	assert.Zero(t, result.FilesCataloged)
	assert.Zero(t, calls.Load(), "files below min-size must never be hashed")
}

func TestEngineNeverHashesUniqueSizes(t *testing.T) {
	dir := t.TempDir()
	r1 := writeAndRecord(t, dir, "a.bin", make([]byte, 100))
	r2 := writeAndRecord(t, dir, "b.bin", make([]byte, 200))
	r3 := writeAndRecord(t, dir, "c.bin", make([]byte, 300))

	calls := spyDigest(t, "spy-unique")
	e := New(Config{MinSize: 1, Digests: []string{"spy-unique"}})
	result, err := e.Run(context.Background(), feed(r1, r2, r3))
	require.NoError(t, err)

	assert.Empty(t, result.Groups)
	assert.Empty(t, result.Error, "empty result is success, not tool failure")
	assert.Zero(t, result.TotalWastedBytes)
	assert.Equal(t, int64(3), result.FilesCataloged)
	assert.Zero(t, calls.Load(), "unique-size files must never be hashed")
}

func TestEngineMinSizeBoundary(t *testing.T) {
	dir := t.TempDir()
	at := make([]byte, 1024)
	below := make([]byte, 1023)
	r1 := writeAndRecord(t, dir, "at1.bin", at)
	r2 := writeAndRecord(t, dir, "at2.bin", at)
	r3 := writeAndRecord(t, dir, "below1.bin", below)
	r4 := writeAndRecord(t, dir, "below2.bin", below)

	e := New(Config{MinSize: 1024})
	result, err := e.Run(context.Background(), feed(r1, r2, r3, r4))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, int64(1024), result.Groups[0].Size)
	assert.Equal(t, int64(2), result.FilesCataloged)
}

func TestEngineNoHashTool(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 100)
	r1 := writeAndRecord(t, dir, "d1.bin", content)
	r2 := writeAndRecord(t, dir, "d2.bin", content)

	c := stats.NewCollector()
	e := New(Config{MinSize: 1, Digests: []string{"whirlpool"}, Stats: c})
	result, err := e.Run(context.Background(), feed(r1, r2))
	require.NoError(t, err)

	assert.Equal(t, NoHashTool, result.Error)
	assert.Empty(t, result.Groups)
	assert.Zero(t, result.TotalWastedBytes)
	assert.Zero(t, c.Snapshot().BytesHashed, "no content read when no digest is usable")

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"groups":[],"total_wasted_bytes":0,"error":"no_hash_tool"}`, string(data))
}

func TestEngineEmptyResultSchema(t *testing.T) {
	e := New(Config{MinSize: 1})
	result, err := e.Run(context.Background(), feed())
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	// Normal empty result carries no error field.
	assert.JSONEq(t, `{"groups":[],"total_wasted_bytes":0}`, string(data))
}

func TestEngineUnreadableFileDropped(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 100)
	r1 := writeAndRecord(t, dir, "d1.bin", content)
	r2 := writeAndRecord(t, dir, "d2.bin", content)
	// Cataloged, then removed before digesting.
	gone := enumerate.FileRecord{Path: filepath.Join(dir, "gone.bin"), Size: 100}

	c := stats.NewCollector()
	e := New(Config{MinSize: 1, Stats: c})
	result, err := e.Run(context.Background(), feed(r1, r2, gone))
	require.NoError(t, err)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, 2, result.Groups[0].Count)
	assert.NotContains(t, result.Groups[0].Files, gone.Path)

	assert.Equal(t, int64(3), result.FilesCataloged)
	assert.Equal(t, int64(2), result.FilesHashed, "processed is one less than cataloged")
	assert.Equal(t, int64(1), result.HashFailures)
}

func TestEngineIdempotent(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 2048)
	records := []enumerate.FileRecord{
		writeAndRecord(t, dir, "a.bin", content),
		writeAndRecord(t, dir, "b.bin", content),
		writeAndRecord(t, dir, "c.bin", make([]byte, 2048)),
	}

	run := func() Result {
		e := New(Config{MinSize: 1, Workers: 4})
		result, err := e.Run(context.Background(), feed(records...))
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.Groups, second.Groups)
	assert.Equal(t, first.TotalWastedBytes, second.TotalWastedBytes)
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := make(chan enumerate.FileRecord, 1)
	records <- enumerate.FileRecord{Path: "/v/a", Size: 100}
	close(records)

	e := New(Config{MinSize: 1})
	_, err := e.Run(ctx, records)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineSelectedAlgorithmReported(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 64)
	r1 := writeAndRecord(t, dir, "a.bin", content)
	r2 := writeAndRecord(t, dir, "b.bin", content)

	e := New(Config{MinSize: 1, Digests: []string{"md5"}})
	result, err := e.Run(context.Background(), feed(r1, r2))
	require.NoError(t, err)
	assert.Equal(t, "md5", result.Algorithm)
}

func TestEngineGroupFoundEventCarriesCopyCount(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 100)
	r1 := writeAndRecord(t, dir, "a.bin", content)
	r2 := writeAndRecord(t, dir, "b.bin", content)
	r3 := writeAndRecord(t, dir, "c.bin", content)

	events := make(chan event.Event, 64)
	e := New(Config{MinSize: 1, Events: events})
	_, err := e.Run(context.Background(), feed(r1, r2, r3))
	require.NoError(t, err)
	close(events)

	var groups []event.Event
	for ev := range events {
		if ev.Type == event.GroupFound {
			groups = append(groups, ev)
		}
	}
	require.Len(t, groups, 1)
	// Presenters render "<Total> copies of <Size>"; Size is the
	// per-file size, not the group's wasted bytes.
	assert.Equal(t, int64(3), groups[0].Total)
	assert.Equal(t, int64(100), groups[0].Size)
	assert.Contains(t, []string{r1.Path, r2.Path, r3.Path}, groups[0].Path)
}

func TestResultJSONEscapesPaths(t *testing.T) {
	result := Result{
		Groups: []Group{{
			Hash:   "aa",
			Size:   10,
			Count:  2,
			Wasted: 10,
			Files:  []string{`/v/with"quote.bin`, "/v/with\ttab.bin"},
		}},
		TotalWastedBytes: 10,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	// Escaping happens on the wire only; in-memory paths survive intact.
	assert.Equal(t, result.Groups[0].Files, decoded.Groups[0].Files)
}
