// Package rank tracks the largest files and directories seen during a scan.
package rank

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bamsammich/reclaim/internal/enumerate"
)

// FileEntry is one ranked file.
type FileEntry struct {
	// Path is the file path in slash format.
	Path string `json:"path"`
	// Size is the size in bytes.
	Size int64 `json:"size"`
	// HumanSize is Size rendered for display, e.g. "1.5 GiB".
	HumanSize string `json:"human_size"`
	// Modified is the last modification time in RFC 3339 format.
	Modified string `json:"modified,omitempty"`
}

// DirEntry is one ranked directory with its cumulative size.
type DirEntry struct {
	// Path is the directory path in slash format.
	Path string `json:"path"`
	// Size is the cumulative size of all files under the directory.
	Size int64 `json:"size"`
	// HumanSize is Size rendered for display.
	HumanSize string `json:"human_size"`
	// FileCount is the number of files under the directory.
	FileCount int64 `json:"file_count"`
}

// Ranking holds the finalized results of a ranked scan.
type Ranking struct {
	// TopFiles contains the N largest files, largest first.
	TopFiles []FileEntry `json:"top_files"`
	// TopDirs contains the N largest directories, largest first.
	TopDirs []DirEntry `json:"top_dirs"`
	// FileCount is the total number of files ranked.
	FileCount int64 `json:"file_count"`
	// TotalBytes is the cumulative size of all ranked files.
	TotalBytes int64 `json:"total_bytes"`
	// TopN is the number of top results tracked.
	TopN int `json:"top_n"`
}

// DefaultTopN is the number of entries tracked when none is requested.
const DefaultTopN = 50

type dirStat struct {
	size  int64
	count int64
}

// Ranker aggregates file records from concurrent producers using a mutex.
// Directory sizes are accumulated into every ancestor up to the nearest
// scan root, so a directory's size reflects its whole subtree.
type Ranker struct {
	mu         sync.Mutex
	topN       int
	roots      []string
	files      []FileEntry
	dirs       map[string]*dirStat
	fileCount  int64
	totalBytes int64
}

// New creates a Ranker tracking the topN largest entries under roots.
func New(topN int, roots []string) *Ranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}
	return &Ranker{
		topN:  topN,
		roots: cleaned,
		files: make([]FileEntry, 0),
		dirs:  make(map[string]*dirStat),
	}
}

// Add records a file. Safe for concurrent use.
func (r *Ranker) Add(rec enumerate.FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fileCount++
	r.totalBytes += rec.Size

	entry := FileEntry{Path: rec.Path, Size: rec.Size}
	if !rec.ModTime.IsZero() {
		entry.Modified = rec.ModTime.Format(time.RFC3339)
	}
	r.files = append(r.files, entry)

	// Trim periodically so memory stays bounded on large trees.
	if len(r.files) > 4*r.topN {
		r.trimLocked()
	}

	for dir := filepath.Dir(rec.Path); !r.isRoot(dir) && dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		stat := r.dirs[dir]
		if stat == nil {
			stat = &dirStat{}
			r.dirs[dir] = stat
		}
		stat.size += rec.Size
		stat.count++
	}
}

func (r *Ranker) isRoot(dir string) bool {
	for _, root := range r.roots {
		if dir == root {
			return true
		}
	}
	return false
}

func (r *Ranker) trimLocked() {
	sort.Slice(r.files, func(i, j int) bool {
		return r.files[i].Size > r.files[j].Size
	})
	r.files = r.files[:r.topN]
}

// Finalize produces the Ranking from the collected data. The Ranker
// should not be used after Finalize.
func (r *Ranker) Finalize() *Ranking {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.Slice(r.files, func(i, j int) bool {
		if r.files[i].Size != r.files[j].Size {
			return r.files[i].Size > r.files[j].Size
		}
		return r.files[i].Path < r.files[j].Path
	})
	if len(r.files) > r.topN {
		r.files = r.files[:r.topN]
	}

	topFiles := make([]FileEntry, len(r.files))
	for i, f := range r.files {
		f.Path = displayPath(f.Path)
		f.HumanSize = humanize.IBytes(uint64(f.Size))
		topFiles[i] = f
	}

	topDirs := make([]DirEntry, 0, len(r.dirs))
	for path, stat := range r.dirs {
		topDirs = append(topDirs, DirEntry{
			Path:      displayPath(path),
			Size:      stat.size,
			HumanSize: humanize.IBytes(uint64(stat.size)),
			FileCount: stat.count,
		})
	}
	sort.Slice(topDirs, func(i, j int) bool {
		if topDirs[i].Size != topDirs[j].Size {
			return topDirs[i].Size > topDirs[j].Size
		}
		return topDirs[i].Path < topDirs[j].Path
	})
	if len(topDirs) > r.topN {
		topDirs = topDirs[:r.topN]
	}

	return &Ranking{
		TopFiles:   topFiles,
		TopDirs:    topDirs,
		FileCount:  r.fileCount,
		TotalBytes: r.totalBytes,
		TopN:       r.topN,
	}
}

func displayPath(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), "./")
}
