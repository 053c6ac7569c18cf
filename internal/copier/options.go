package copier

import (
	"errors"
	"fmt"
)

// DefaultBatchSize bounds a single kernel copy call and the granularity of
// progress reports.
const DefaultBatchSize = 64 * 1024 * 1024

// ErrInvalidBatchSize is returned for a non-positive batch size.
var ErrInvalidBatchSize = errors.New("invalid batch size")

// Options is the configuration shared, read-only, by every Handle.
type Options struct {
	Reflink   Reflink
	NoPerms   bool  // skip copying owner/mode at finalization
	Fsync     bool  // fsync the destination at finalization
	BatchSize int64 // max bytes per kernel copy call / progress report
	Verify    bool  // BLAKE3-compare source and destination after copying
}

// DefaultOptions returns auto reflink, permission copying on, no fsync and
// a 64 MiB batch.
func DefaultOptions() Options {
	return Options{
		Reflink:   ReflinkAuto,
		BatchSize: DefaultBatchSize,
	}
}

// Validate rejects option values the copy loop cannot run with.
func (o *Options) Validate() error {
	if o == nil {
		return errors.New("nil copy options")
	}
	if o.Reflink < ReflinkAuto || o.Reflink > ReflinkNever {
		return fmt.Errorf("%w: %d", ErrInvalidReflink, int(o.Reflink))
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBatchSize, o.BatchSize)
	}
	return nil
}
