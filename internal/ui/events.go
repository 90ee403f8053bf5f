package ui

import "github.com/bamsammich/reclaim/internal/event"

// Event is re-exported so presenters and their callers share one type.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted  = event.ScanStarted
	ScanComplete = event.ScanComplete
	HashStarted  = event.HashStarted
	FileHashed   = event.FileHashed
	FileFailed   = event.FileFailed
	FileSkipped  = event.FileSkipped
	GroupFound   = event.GroupFound
	HashComplete = event.HashComplete
)
