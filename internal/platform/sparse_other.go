//go:build !linux

package platform

import (
	"fmt"
	"io"
	"os"
)

// NextSparseSegment treats everything from pos to EOF as data; there is no
// hole probing here. Both cursors are positioned at pos.
func NextSparseSegment(src, dst *os.File, pos int64) (data, hole int64, err error) {
	size, err := fileSize(src)
	if err != nil {
		return 0, 0, err
	}
	if pos >= size {
		return size, size, nil
	}
	if _, err := src.Seek(pos, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("seek %s: %w", src.Name(), err)
	}
	if _, err := dst.Seek(pos, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("seek %s: %w", dst.Name(), err)
	}
	return pos, size, nil
}
