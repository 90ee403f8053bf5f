package dupes

import (
	"sort"

	"github.com/bamsammich/reclaim/internal/enumerate"
)

// DefaultMinSize is the smallest file the engine will consider.
// Duplicates below 1 MiB rarely reclaim meaningful space and hashing
// them dominates the digest workload on real volumes.
const DefaultMinSize = 1 << 20

// Catalog indexes file paths by size. It is built once by a single
// writer while records stream in, then read-only for the rest of the run.
type Catalog struct {
	minSize int64
	buckets map[int64][]string
}

// NewCatalog creates an empty catalog. Files smaller than minSize are
// dropped on Add; a file exactly at minSize is kept.
func NewCatalog(minSize int64) *Catalog {
	return &Catalog{
		minSize: minSize,
		buckets: make(map[int64][]string),
	}
}

// Add catalogs one file record. Paths within a bucket keep arrival order.
func (c *Catalog) Add(rec enumerate.FileRecord) bool {
	if rec.Size < c.minSize {
		return false
	}
	c.buckets[rec.Size] = append(c.buckets[rec.Size], rec.Path)
	return true
}

// Len returns the number of cataloged files.
func (c *Catalog) Len() int {
	n := 0
	for _, paths := range c.buckets {
		n += len(paths)
	}
	return n
}

// CollisionSizes returns every size shared by two or more cataloged
// files, ascending. A file at a unique size can never be a duplicate,
// so only these sizes are eligible for digest confirmation.
func (c *Catalog) CollisionSizes() []int64 {
	sizes := make([]int64, 0, len(c.buckets))
	for size, paths := range c.buckets {
		if len(paths) > 1 {
			sizes = append(sizes, size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}

// Bucket returns the paths cataloged at the given size, in arrival order.
func (c *Catalog) Bucket(size int64) []string {
	return c.buckets[size]
}
