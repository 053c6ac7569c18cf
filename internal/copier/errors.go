package copier

import (
	"errors"
	"fmt"
)

var (
	// ErrReflinkFailed matches any *ReflinkError.
	ErrReflinkFailed = errors.New("reflink failed")
	// ErrSameFile is returned when source and destination are one file.
	ErrSameFile = errors.New("source and destination are the same file")
)

// ReflinkError reports that a clone was required (ReflinkAlways) but the
// filesystem could not provide one for this pair of files.
type ReflinkError struct {
	Src string
	Dst string
}

func (e *ReflinkError) Error() string {
	return fmt.Sprintf("reflink failed: %s -> %s", e.Src, e.Dst)
}

// Is makes errors.Is(err, ErrReflinkFailed) true for any *ReflinkError.
func (e *ReflinkError) Is(target error) bool {
	return target == ErrReflinkFailed
}
