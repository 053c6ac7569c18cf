//go:build !linux

package platform

import "os"

// CopyFileBytes copies up to n bytes between the descriptors' cursors.
// There is no in-kernel file-to-file copy here, so this is always the
// user-space path.
func CopyFileBytes(src, dst *os.File, n int64) (int64, error) {
	return copyBytesUserspace(src, dst, n)
}

// CopyFileOffset copies up to n bytes at offset off without moving either
// cursor.
func CopyFileOffset(src, dst *os.File, n, off int64) (int64, error) {
	return copyRangeUserspace(src, dst, n, off)
}
