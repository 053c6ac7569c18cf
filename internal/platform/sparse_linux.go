//go:build linux

package platform

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Lseek wraps lseek(2), mapping ENXIO (no more data, or no more holes) to
// SeekOff{EOF: true}.
//
//nolint:gosec // G115: fd values are small non-negative integers
func Lseek(f *os.File, off int64, whence int) (SeekOff, error) {
	pos, err := unix.Seek(int(f.Fd()), off, whence)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return SeekOff{EOF: true}, nil
		}
		return SeekOff{}, err
	}
	return SeekOff{Offset: pos}, nil
}

// NextSparseSegment finds the next data region at or after pos in src and
// the hole that follows it, then positions both cursors at the start of
// the data. Either end is clamped to src's length when the kernel reports
// nothing further.
func NextSparseSegment(src, dst *os.File, pos int64) (data, hole int64, err error) {
	size, err := fileSize(src)
	if err != nil {
		return 0, 0, err
	}

	data, err = seekOrEOF(src, pos, unix.SEEK_DATA, size)
	if err != nil {
		return 0, 0, err
	}
	if data >= size {
		return size, size, nil
	}

	hole, err = seekOrEOF(src, data, unix.SEEK_HOLE, size)
	if err != nil {
		return 0, 0, err
	}
	hole = min(hole, size)

	if _, err := src.Seek(data, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("seek %s: %w", src.Name(), err)
	}
	if _, err := dst.Seek(data, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("seek %s: %w", dst.Name(), err)
	}
	return data, hole, nil
}

// seekOrEOF runs one SEEK_DATA/SEEK_HOLE probe. A filesystem that rejects
// the whence with EINVAL is treated as all data from off to EOF.
func seekOrEOF(f *os.File, off int64, whence int, size int64) (int64, error) {
	res, err := Lseek(f, off, whence)
	switch {
	case errors.Is(err, unix.EINVAL):
		if whence == unix.SEEK_DATA {
			return off, nil
		}
		return size, nil
	case err != nil:
		return 0, fmt.Errorf("lseek %s at %d: %w", f.Name(), off, err)
	case res.EOF:
		return size, nil
	}
	return res.Offset, nil
}
