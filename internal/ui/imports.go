package ui

import "github.com/bamsammich/sparsecp/internal/event"

// Event is re-exported so presenters read without the package prefix.
type Event = event.Event

const (
	FileStarted   = event.FileStarted
	FileProgress  = event.FileProgress
	FileCompleted = event.FileCompleted
	FileFailed    = event.FileFailed
	VerifyStarted = event.VerifyStarted
	VerifyOK      = event.VerifyOK
	VerifyFailed  = event.VerifyFailed
)
