package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// stNBlockSize is the unit of st_blocks, fixed by POSIX regardless of the
// filesystem's own block size.
const stNBlockSize = 512

// ProbablySparse guesses whether f has holes: it does if fewer bytes are
// allocated than its length implies. This is the test coreutils cp uses. A
// false positive only costs extra SEEK_DATA probes.
//
//nolint:gosec // G115: fd values are small non-negative integers
func ProbablySparse(f *os.File) (bool, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return false, fmt.Errorf("fstat %s: %w", f.Name(), err)
	}
	return st.Blocks*stNBlockSize < st.Size, nil
}

// AllocatedBytes returns the storage actually allocated to f, in bytes.
//
//nolint:gosec // G115: fd values are small non-negative integers
func AllocatedBytes(f *os.File) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return 0, fmt.Errorf("fstat %s: %w", f.Name(), err)
	}
	return st.Blocks * stNBlockSize, nil
}
