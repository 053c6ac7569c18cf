package platform

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyBytesUserspace reads up to n bytes at src's cursor into a pooled
// buffer and writes all of it at dst's cursor.
//
//nolint:gosec // G115: fd values are small non-negative integers
func copyBytesUserspace(src, dst *os.File, n int64) (int64, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := (*bufp)[:min(n, bufferSize)]

	r, err := readRetry(int(src.Fd()), buf)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	if r == 0 {
		return 0, fmt.Errorf("read %s: %w", src.Name(), ErrShortCopy)
	}

	written := 0
	for written < r {
		w, err := unix.Write(int(dst.Fd()), buf[written:r])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return int64(written), fmt.Errorf("write %s: %w", dst.Name(), err)
		}
		written += w
	}
	return int64(r), nil
}

// copyRangeUserspace is the pread/pwrite variant of copyBytesUserspace:
// both files are addressed at off and neither cursor moves.
//
//nolint:gosec // G115: fd values are small non-negative integers
func copyRangeUserspace(src, dst *os.File, n, off int64) (int64, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := (*bufp)[:min(n, bufferSize)]

	r, err := unix.Pread(int(src.Fd()), buf, off)
	if err != nil {
		return 0, fmt.Errorf("pread %s at %d: %w", src.Name(), off, err)
	}
	if r == 0 {
		return 0, fmt.Errorf("pread %s at %d: %w", src.Name(), off, ErrShortCopy)
	}

	written := 0
	for written < r {
		w, err := unix.Pwrite(int(dst.Fd()), buf[written:r], off+int64(written))
		if err != nil {
			return int64(written), fmt.Errorf("pwrite %s at %d: %w", dst.Name(), off+int64(written), err)
		}
		written += w
	}
	return int64(r), nil
}

func readRetry(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

// clampLen keeps a byte count inside what a single syscall accepts.
func clampLen(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func errnoOf(err error) (unix.Errno, bool) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
