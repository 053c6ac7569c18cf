//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Preallocate reserves blocks for [0, size) of f without changing its
// length. It is advisory: callers only use it for files that will be
// written densely, and may ignore the error since not every filesystem
// implements fallocate(2).
//
//nolint:gosec // G115: fd values are small non-negative integers
func Preallocate(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	if err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, size); err != nil {
		return fmt.Errorf("fallocate %s: %w", f.Name(), err)
	}
	return nil
}
