//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CopyFileBytes copies up to n bytes from the current cursor of src to the
// current cursor of dst, advancing both by the amount transferred. It tries
// copy_file_range(2) first and drops to a user-space read/write copy when
// the kernel reports the call unsupported for this pair of descriptors.
//
// A single call may transfer fewer than n bytes; callers loop.
func CopyFileBytes(src, dst *os.File, n int64) (int64, error) {
	copied, ok, err := tryCopyFileRange(src, nil, dst, nil, n)
	if ok {
		return copied, err
	}
	return copyBytesUserspace(src, dst, n)
}

// CopyFileOffset copies up to n bytes from offset off in src to the same
// offset in dst. Neither descriptor's cursor moves.
func CopyFileOffset(src, dst *os.File, n, off int64) (int64, error) {
	roff, woff := off, off
	copied, ok, err := tryCopyFileRange(src, &roff, dst, &woff, n)
	if ok {
		return copied, err
	}
	return copyRangeUserspace(src, dst, n, off)
}

// tryCopyFileRange wraps copy_file_range(2). ok is false when the caller
// should fall back to user space: the errno is in the fallback set, or the
// kernel moved nothing without complaining (procfs and some FUSE mounts
// do this), which the user-space path will turn into a real answer.
//
//nolint:gosec // G115: fd values are small non-negative integers
func tryCopyFileRange(src *os.File, roff *int64, dst *os.File, woff *int64, n int64) (copied int64, ok bool, err error) {
	c, err := unix.CopyFileRange(int(src.Fd()), roff, int(dst.Fd()), woff, clampLen(n), 0)
	if err != nil {
		if classifyCopyErr(err) == Fallback {
			return 0, false, nil
		}
		return 0, true, fmt.Errorf("copy_file_range %s -> %s: %w", src.Name(), dst.Name(), err)
	}
	if c == 0 && n > 0 {
		return 0, false, nil
	}
	return int64(c), true, nil
}

// classifyCopyErr decides whether a copy_file_range(2) failure means
// "use read/write instead". The list is closed: ENOSYS (kernel too old),
// EPERM and EINVAL (descriptors not eligible, e.g. immutable or special
// files), EXDEV (cross-filesystem on pre-5.3 kernels or a filesystem that
// refuses it) and EOPNOTSUPP (filesystem has no implementation).
func classifyCopyErr(err error) Decision {
	errno, ok := errnoOf(err)
	if !ok {
		return Fatal
	}
	switch errno {
	case unix.ENOSYS, unix.EPERM, unix.EXDEV, unix.EINVAL, unix.EOPNOTSUPP:
		return Fallback
	}
	return Fatal
}
