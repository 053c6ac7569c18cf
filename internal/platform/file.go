package platform

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"golang.org/x/sys/unix"
)

// AllocateFile sets f's length to size without allocating storage, so
// regions never written stay holes.
func AllocateFile(f *os.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("truncate %s to %d: %w", f.Name(), size, err)
	}
	return nil
}

// CopyPermissions copies ownership and mode bits from src to dst.
// Ownership is best-effort: without CAP_CHOWN the kernel refuses with
// EPERM and the file keeps the caller's uid/gid. Mode is set last since
// chown can clear setuid/setgid.
//
//nolint:gosec // G115: fd values are small non-negative integers
func CopyPermissions(src, dst *os.File) error {
	var st unix.Stat_t
	if err := unix.Fstat(int(src.Fd()), &st); err != nil {
		return fmt.Errorf("fstat %s: %w", src.Name(), err)
	}

	rawFd := int(dst.Fd())
	if err := unix.Fchown(rawFd, int(st.Uid), int(st.Gid)); err != nil && !errors.Is(err, unix.EPERM) {
		return fmt.Errorf("fchown %s: %w", dst.Name(), err)
	}
	if err := unix.Fchmod(rawFd, uint32(st.Mode)&0o7777); err != nil {
		return fmt.Errorf("fchmod %s: %w", dst.Name(), err)
	}
	return nil
}

// Sync forces f's data to stable storage.
func Sync(f *os.File) error {
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync %s: %w", f.Name(), err)
	}
	return nil
}

// IsSameFile reports whether two paths name the same underlying file. A
// missing b is simply "not the same".
func IsSameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// MergeExtents returns the minimal sorted set of extents covering the same
// bytes as exts, joining any that overlap or touch.
func MergeExtents(exts []Extent) []Extent {
	if len(exts) == 0 {
		return exts
	}
	sorted := slices.Clone(exts)
	slices.SortFunc(sorted, func(a, b Extent) int { return cmp.Compare(a.Start, b.Start) })

	merged := []Extent{sorted[0]}
	for _, e := range sorted[1:] {
		last := &merged[len(merged)-1]
		if e.Start <= last.End {
			last.End = max(last.End, e.End)
			continue
		}
		merged = append(merged, e)
	}
	return merged
}

func fileSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	return fi.Size(), nil
}
