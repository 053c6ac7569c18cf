//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Reflink makes dst a copy-on-write clone of the whole of src with the
// FICLONE ioctl. It returns false, with no error, when cloning is not
// possible for this pair of files.
//
//nolint:gosec // G115: fd values are small non-negative integers
func Reflink(src, dst *os.File) (bool, error) {
	err := unix.IoctlFileClone(int(dst.Fd()), int(src.Fd()))
	if err == nil {
		return true, nil
	}
	if classifyCloneErr(err) == Fallback {
		return false, nil
	}
	return false, fmt.Errorf("ficlone %s -> %s: %w", src.Name(), dst.Name(), err)
}

// classifyCloneErr separates "this filesystem/pair cannot clone" from real
// failures. EOPNOTSUPP: filesystem has no reflink support. EXDEV: files on
// different filesystems. EINVAL: unaligned or otherwise ineligible files.
// ENOTTY and ENOSYS: the ioctl is not wired up at all.
func classifyCloneErr(err error) Decision {
	errno, ok := errnoOf(err)
	if !ok {
		return Fatal
	}
	switch errno {
	case unix.EOPNOTSUPP, unix.EXDEV, unix.EINVAL, unix.ENOTTY, unix.ENOSYS:
		return Fallback
	}
	return Fatal
}
