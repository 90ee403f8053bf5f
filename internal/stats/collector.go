package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks analysis progress using lock-free atomic counters.
// The walk, the digest workers, and the aggregator all write concurrently.
type Collector struct {
	filesSeen      atomic.Int64
	filesSkipped   atomic.Int64
	filesCataloged atomic.Int64
	filesHashed    atomic.Int64
	hashFailures   atomic.Int64
	bytesHashed    atomic.Int64
	bytesToHash    atomic.Int64
	filesToHash    atomic.Int64
	groupsFound    atomic.Int64
	startTime      time.Time

	// Ring buffer — written only by the progress ticker, never by workers.
	mu         sync.Mutex
	throughput [ringSize]int64 // hashed bytes delta per second
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetHashTotals records the candidate workload (called once after
// collision-size selection, before digesting starts).
func (c *Collector) SetHashTotals(files, bytes int64) {
	c.filesToHash.Store(files)
	c.bytesToHash.Store(bytes)
}

func (c *Collector) AddFilesSeen(n int64)      { c.filesSeen.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)   { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesCataloged(n int64) { c.filesCataloged.Add(n) }
func (c *Collector) AddFilesHashed(n int64)    { c.filesHashed.Add(n) }
func (c *Collector) AddHashFailures(n int64)   { c.hashFailures.Add(n) }
func (c *Collector) AddBytesHashed(n int64)    { c.bytesHashed.Add(n) }
func (c *Collector) AddGroupsFound(n int64)    { c.groupsFound.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesSeen      int64
	FilesSkipped   int64
	FilesCataloged int64
	FilesHashed    int64
	HashFailures   int64
	BytesHashed    int64
	BytesToHash    int64
	FilesToHash    int64
	GroupsFound    int64
	Elapsed        time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesSeen:      c.filesSeen.Load(),
		FilesSkipped:   c.filesSkipped.Load(),
		FilesCataloged: c.filesCataloged.Load(),
		FilesHashed:    c.filesHashed.Load(),
		HashFailures:   c.hashFailures.Load(),
		BytesHashed:    c.bytesHashed.Load(),
		BytesToHash:    c.bytesToHash.Load(),
		FilesToHash:    c.filesToHash.Load(),
		GroupsFound:    c.groupsFound.Load(),
		Elapsed:        c.Elapsed(),
	}
}

// Tick snapshots the hashed-byte delta into the ring buffer.
// Called once per second by the progress reporter.
func (c *Collector) Tick() {
	current := c.bytesHashed.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average hashed bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := seconds
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < count; i++ {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n throughput samples, oldest first,
// as float64 for sparkline rendering.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n > c.ringCount {
		n = c.ringCount
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := (c.ringIdx - n + i + ringSize) % ringSize
		out[i] = float64(c.throughput[idx])
	}
	return out
}

// ETA estimates remaining digest time based on rolling speed.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesToHash.Load() - c.bytesHashed.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"seen=%d skipped=%d cataloged=%d hashed=%d failed=%d bytes=%d groups=%d",
		s.FilesSeen, s.FilesSkipped, s.FilesCataloged, s.FilesHashed,
		s.HashFailures, s.BytesHashed, s.GroupsFound,
	)
}
