package enumerate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/bamsammich/reclaim/internal/event"
	"github.com/bamsammich/reclaim/internal/filter"
	"github.com/bamsammich/reclaim/internal/stats"
)

// DefaultExcludes prunes pseudo-directories that hold no user-reclaimable
// data: Synology recycle bins, metadata dirs, snapshot trees.
var DefaultExcludes = []string{
	"#recycle/",
	"#snapshot/",
	"@eaDir/",
	"@snapshots/",
	"@tmp/",
	"lost+found/",
}

// FileRecord describes one regular file seen by the walk.
type FileRecord struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Config controls enumerator behavior.
type Config struct {
	Roots      []string
	Excludes   *filter.Set
	SameDevice bool // do not descend onto a different storage device
	Stats      *stats.Collector
	Events     chan<- event.Event
}

// Enumerator walks a set of root volumes and emits FileRecord items for
// every regular file, pruning excluded subtrees. Directories, symlinks
// and special files are never emitted.
type Enumerator struct {
	cfg     Config
	records chan FileRecord
	done    chan struct{}
}

// New creates an enumerator with the given config.
func New(cfg Config) *Enumerator {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	return &Enumerator{
		cfg:     cfg,
		records: make(chan FileRecord, 256),
		done:    make(chan struct{}),
	}
}

// Enumerate starts the walk and returns the record channel. The channel
// closes once all roots have been walked or the context is cancelled.
// Unreadable entries are counted and skipped, never fatal.
func (e *Enumerator) Enumerate(ctx context.Context) <-chan FileRecord {
	go func() {
		defer close(e.done)
		defer close(e.records)
		event.Emit(e.cfg.Events, event.Event{Type: event.ScanStarted})
		for _, root := range e.cfg.Roots {
			if ctx.Err() != nil {
				return
			}
			e.walkRoot(ctx, root)
		}
		event.Emit(e.cfg.Events, event.Event{Type: event.ScanComplete})
	}()
	return e.records
}

// Done is closed once the walk has fully terminated, including every
// fastwalk worker goroutine. No event is emitted after Done closes, so
// the consumer may only close the event channel after waiting here.
// The record channel closing is not that signal: on cancellation it
// closes while workers are still winding down.
func (e *Enumerator) Done() <-chan struct{} {
	return e.done
}

func (e *Enumerator) walkRoot(ctx context.Context, root string) {
	root = filepath.Clean(root)

	rootDev, err := deviceOf(root)
	if err != nil {
		e.cfg.Stats.AddFilesSkipped(1)
		event.Emit(e.cfg.Events, event.Event{
			Type: event.FileSkipped, Path: root,
			Error: fmt.Errorf("stat root %s: %w", root, err),
		})
		return
	}

	conf := &fastwalk.Config{
		Follow: false, // never follow symlinks
	}

	// fastwalk invokes the callback from multiple goroutines; everything
	// touched here must be concurrency-safe (stats is atomic, the record
	// channel is shared).
	_ = fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.skip(path, err)
			return nil
		}

		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if e.cfg.Excludes != nil && e.cfg.Excludes.Excluded(relPath, true) {
				return filepath.SkipDir
			}
			if e.cfg.SameDevice {
				dev, devErr := deviceOf(path)
				if devErr != nil {
					e.skip(path, devErr)
					return filepath.SkipDir
				}
				if dev != rootDev {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if e.cfg.Excludes != nil && e.cfg.Excludes.Excluded(relPath, false) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			e.skip(path, infoErr)
			return nil
		}

		e.cfg.Stats.AddFilesSeen(1)

		select {
		case e.records <- FileRecord{Path: path, Size: info.Size(), ModTime: info.ModTime()}:
		case <-ctx.Done():
			return context.Canceled
		}
		return nil
	})
}

// skip records an unreadable entry. The walk continues; a single bad
// file must never fail the run.
func (e *Enumerator) skip(path string, err error) {
	e.cfg.Stats.AddFilesSkipped(1)
	event.Emit(e.cfg.Events, event.Event{Type: event.FileSkipped, Path: path, Error: err})
}

// deviceOf returns the device number of the filesystem holding path.
func deviceOf(path string) (uint64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("unsupported stat type for %s", path)
	}
	return devFromStat(stat), nil
}
