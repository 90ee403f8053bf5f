package dupes

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bamsammich/reclaim/internal/enumerate"
	"github.com/bamsammich/reclaim/internal/event"
	"github.com/bamsammich/reclaim/internal/stats"
)

// Config describes a duplicate-detection run.
type Config struct {
	// MinSize is the catalog threshold in bytes; files below it are
	// never cataloged or hashed. Zero means DefaultMinSize.
	MinSize int64
	// Workers bounds the digest pool. Zero means min(NumCPU, 8).
	Workers int
	// Digests is the ordered algorithm preference. Nil means
	// DefaultPreference.
	Digests []string
	// HashTimeout bounds a single file's digest computation so one
	// stuck device cannot hang the run. Zero means no timeout.
	HashTimeout time.Duration
	// BWLimit caps aggregate digest read throughput in bytes/sec.
	// Zero means unlimited.
	BWLimit int64
	Stats   *stats.Collector
	Events  chan<- event.Event
}

// Engine finds exact duplicate files in two phases: group by size,
// then digest only files whose size collides with another file's.
type Engine struct {
	cfg Config
}

// New creates an engine with the given config, applying defaults.
func New(cfg Config) *Engine {
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultMinSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	if cfg.Digests == nil {
		cfg.Digests = DefaultPreference
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	return &Engine{cfg: cfg}
}

// Run consumes the record stream and returns the duplicate groups.
// It never fails the whole run for a single unreadable file; the only
// error it returns is context cancellation, in which case partial
// results are discarded.
func (e *Engine) Run(ctx context.Context, records <-chan enumerate.FileRecord) (Result, error) {
	// Phase 1: stream the records into the size catalog.
	catalog := NewCatalog(e.cfg.MinSize)
	for rec := range records {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if catalog.Add(rec) {
			e.cfg.Stats.AddFilesCataloged(1)
		}
	}
	cataloged := int64(catalog.Len())

	// Phase 2: candidate selection. No collision sizes proves no
	// duplicates are possible; don't touch a single file's content.
	collisions := catalog.CollisionSizes()
	if len(collisions) == 0 {
		result := emptyResult()
		result.FilesCataloged = cataloged
		return result, nil
	}

	alg, err := Select(e.cfg.Digests)
	if err != nil {
		slog.Warn("duplicate detection disabled", "error", err)
		result := emptyResult()
		result.Error = NoHashTool
		result.FilesCataloged = cataloged
		return result, nil
	}

	var candidateFiles, candidateBytes int64
	for _, size := range collisions {
		n := int64(len(catalog.Bucket(size)))
		candidateFiles += n
		candidateBytes += n * size
	}
	e.cfg.Stats.SetHashTotals(candidateFiles, candidateBytes)
	event.Emit(e.cfg.Events, event.Event{
		Type:      event.HashStarted,
		Total:     candidateFiles,
		TotalSize: candidateBytes,
	})

	// Phase 3: digest every candidate across a bounded worker pool.
	entries, err := e.digestCandidates(ctx, alg, catalog, collisions)
	if err != nil {
		return Result{}, err
	}

	// Phase 4: merge entries into groups.
	groups, totalWasted := aggregate(entries)
	for _, g := range groups {
		e.cfg.Stats.AddGroupsFound(1)
		event.Emit(e.cfg.Events, event.Event{
			Type:  event.GroupFound,
			Path:  g.Files[0],
			Size:  g.Size,
			Total: int64(g.Count),
		})
	}
	event.Emit(e.cfg.Events, event.Event{Type: event.HashComplete})

	snap := e.cfg.Stats.Snapshot()
	return Result{
		Groups:           groups,
		TotalWastedBytes: totalWasted,
		FilesCataloged:   cataloged,
		FilesHashed:      snap.FilesHashed,
		HashFailures:     snap.HashFailures,
		Algorithm:        alg.Name,
	}, nil
}

type digestTask struct {
	path string
	size int64
}

// digestCandidates fans candidate files out to the worker pool and
// collects one DigestEntry per successfully hashed file. Digest failure
// for an individual file drops that file and continues.
func (e *Engine) digestCandidates(
	ctx context.Context,
	alg Algorithm,
	catalog *Catalog,
	collisions []int64,
) ([]DigestEntry, error) {
	var limiter *rate.Limiter
	if e.cfg.BWLimit > 0 {
		limiter = NewBWLimiter(e.cfg.BWLimit)
	}

	tasks := make(chan digestTask, e.cfg.Workers*2)
	results := make(chan DigestEntry, e.cfg.Workers*2)

	var wg sync.WaitGroup
	for id := 0; id < e.cfg.Workers; id++ {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if ctx.Err() != nil {
					return
				}
				e.digestOne(ctx, alg, task, limiter, results, id)
			}
		}()
	}

	// Feed smallest collision sizes first so early partial progress is
	// informative; order is not correctness-critical.
	go func() {
		defer close(tasks)
		for _, size := range collisions {
			for _, path := range catalog.Bucket(size) {
				select {
				case tasks <- digestTask{path: path, size: size}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var entries []DigestEntry
	for entry := range results {
		entries = append(entries, entry)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *Engine) digestOne(
	ctx context.Context,
	alg Algorithm,
	task digestTask,
	limiter *rate.Limiter,
	results chan<- DigestEntry,
	workerID int,
) {
	hashCtx := ctx
	if e.cfg.HashTimeout > 0 {
		var cancel context.CancelFunc
		hashCtx, cancel = context.WithTimeout(ctx, e.cfg.HashTimeout)
		defer cancel()
	}

	digest, n, err := hashFile(hashCtx, alg, task.path, limiter)
	e.cfg.Stats.AddBytesHashed(n)
	if err != nil {
		// A file removed or made unreadable between cataloguing and
		// digesting is dropped from consideration, not fatal.
		if ctx.Err() == nil {
			e.cfg.Stats.AddHashFailures(1)
			slog.Warn("digest failed", "path", task.path, "error", err)
			event.Emit(e.cfg.Events, event.Event{
				Type:     event.FileFailed,
				Path:     task.path,
				Size:     task.size,
				Error:    err,
				WorkerID: workerID,
			})
		}
		return
	}

	e.cfg.Stats.AddFilesHashed(1)
	event.Emit(e.cfg.Events, event.Event{
		Type:     event.FileHashed,
		Path:     task.path,
		Size:     task.size,
		WorkerID: workerID,
	})

	select {
	case results <- DigestEntry{Digest: digest, Size: task.size, Path: task.path}:
	case <-ctx.Done():
	}
}
