// Package report aggregates the outputs of the analysis modules into a
// single document and renders it for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bamsammich/reclaim/internal/dupes"
	"github.com/bamsammich/reclaim/internal/rank"
	"github.com/bamsammich/reclaim/internal/sysscan"
)

// Category names used in the reclaimable-space summary.
const (
	CategoryDuplicates = "Duplicate Files"
	CategoryRecycle    = "Recycle Bins"
	CategorySnapshots  = "Old Snapshots"
	CategoryLogs       = "Log Files"
	CategoryDocker     = "Docker"
)

// Category is one reclaimable-space bucket.
type Category struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

// Reclaimable summarizes space that cleanup could free, by category.
type Reclaimable struct {
	Categories []Category `json:"categories"`
	TotalBytes int64      `json:"total_bytes"`
}

// Analysis is the aggregate result of one analyzer run. Module fields
// are nil when the corresponding scan did not run.
type Analysis struct {
	RunID       string                    `json:"run_id"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Roots       []string                  `json:"roots"`
	Elapsed     time.Duration             `json:"elapsed_ns"`
	Volumes     []VolumeUsage             `json:"volumes,omitempty"`
	Duplicates  *dupes.Result             `json:"duplicates,omitempty"`
	Ranking     *rank.Ranking             `json:"ranking,omitempty"`
	RecycleBins *sysscan.RecycleReport    `json:"recycle_bins,omitempty"`
	Logs        *sysscan.LogReport        `json:"logs,omitempty"`
	Docker      *sysscan.DockerReport     `json:"docker,omitempty"`
	Snapshots   []*sysscan.SnapshotReport `json:"snapshots,omitempty"`
	Reclaimable Reclaimable               `json:"reclaimable"`
}

// New creates an Analysis for roots with a fresh run ID.
func New(roots []string) *Analysis {
	return &Analysis{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Roots:       roots,
	}
}

// Finalize computes the reclaimable-space summary from whichever module
// results are present. Idempotent.
func (a *Analysis) Finalize() {
	categories := make([]Category, 0, 5)
	add := func(name string, bytes int64) {
		if bytes > 0 {
			categories = append(categories, Category{Name: name, Bytes: bytes})
		}
	}

	if a.Duplicates != nil {
		add(CategoryDuplicates, a.Duplicates.TotalWastedBytes)
	}
	if a.RecycleBins != nil {
		add(CategoryRecycle, a.RecycleBins.TotalSizeBytes)
	}
	var snapBytes int64
	for _, sr := range a.Snapshots {
		for _, snap := range sr.Snapshots {
			if snap.IsOld {
				snapBytes += snap.ExclusiveBytes
			}
		}
	}
	add(CategorySnapshots, snapBytes)
	if a.Logs != nil {
		var safe int64
		for _, l := range a.Logs.Logs {
			if l.SafeToClean {
				safe += l.SizeBytes
			}
		}
		add(CategoryLogs, safe)
	}
	if a.Docker != nil && a.Docker.Available {
		add(CategoryDocker, a.Docker.ReclaimableBytes)
	}

	a.Reclaimable = Reclaimable{Categories: categories}
	for _, c := range categories {
		a.Reclaimable.TotalBytes += c.Bytes
	}
}

// WriteSummary writes the analysis as indented JSON to path, creating
// parent directories as needed.
func (a *Analysis) WriteSummary(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
