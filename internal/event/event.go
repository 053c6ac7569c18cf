package event

import (
	"sync/atomic"
	"time"
)

// Type identifies the kind of event.
type Type int

const (
	FileStarted Type = iota + 1
	FileProgress
	FileCompleted
	FileFailed
	VerifyStarted
	VerifyOK
	VerifyFailed
)

var typeNames = [...]string{
	FileStarted:   "FileStarted",
	FileProgress:  "FileProgress",
	FileCompleted: "FileCompleted",
	FileFailed:    "FileFailed",
	VerifyStarted: "VerifyStarted",
	VerifyOK:      "VerifyOK",
	VerifyFailed:  "VerifyFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // destination path
	Size      int64  // file size, or bytes so far for FileProgress
	Total     int64  // file size (FileProgress)
	Strategy  string // how the data moved (FileCompleted)
	Error     error
}

// Emit sends e on ch without blocking. Events are dropped when nobody is
// keeping up with the channel.
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

// ChannelSink turns byte reports from a copy into FileProgress events.
// Errors are not forwarded; the engine emits FileFailed with context.
type ChannelSink struct {
	Ch    chan<- Event
	Path  string
	Total int64

	done atomic.Int64
}

// Report implements copier.Sink.
func (s *ChannelSink) Report(n int64, err error) error {
	if err != nil {
		return nil
	}
	Emit(s.Ch, Event{
		Type:  FileProgress,
		Path:  s.Path,
		Size:  s.done.Add(n),
		Total: s.Total,
	})
	return nil
}
