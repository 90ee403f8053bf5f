package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	HashStarted
	FileHashed
	FileFailed
	FileSkipped
	GroupFound
	HashComplete
)

var typeNames = [...]string{
	ScanStarted:  "ScanStarted",
	ScanComplete: "ScanComplete",
	HashStarted:  "HashStarted",
	FileHashed:   "FileHashed",
	FileFailed:   "FileFailed",
	FileSkipped:  "FileSkipped",
	GroupFound:   "GroupFound",
	HashComplete: "HashComplete",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the analysis pipeline.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string
	Size      int64 // per-file size (FileHashed, GroupFound)
	Total     int64 // candidate file count (HashStarted), copy count (GroupFound)
	TotalSize int64 // candidate byte count (HashStarted)
	Error     error
	WorkerID  int
}

// Emit sends e on ch without blocking; the event is dropped if the
// consumer is behind. ch may be nil.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
