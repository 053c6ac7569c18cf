package platform

import (
	"fmt"
	"io"
)

// Decision is the outcome of classifying a kernel error.
type Decision int

const (
	// Fatal errors propagate to the caller unchanged in meaning.
	Fatal Decision = iota
	// Fallback means the primitive is unavailable for this call and the
	// caller should take its alternate path.
	Fallback
)

func (d Decision) String() string {
	if d == Fallback {
		return "fallback"
	}
	return "fatal"
}

// Extent is a half-open logical byte range [Start, End) known to be
// allocated.
type Extent struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the extent.
func (e Extent) Len() int64 { return e.End - e.Start }

func (e Extent) String() string {
	return fmt.Sprintf("[%d, %d)", e.Start, e.End)
}

// SeekOff is the result of a SEEK_DATA/SEEK_HOLE probe. EOF is set when
// the kernel reports there is nothing further in the file (ENXIO).
type SeekOff struct {
	Offset int64
	EOF    bool
}

// ErrShortCopy is returned when a copy primitive makes no progress while
// bytes remain, which happens when the source shrinks underneath us.
var ErrShortCopy = fmt.Errorf("no progress copying file data: %w", io.ErrUnexpectedEOF)
