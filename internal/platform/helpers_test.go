package platform

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// Filesystems that allocate eagerly or cannot map extents. CI sets
// SPARSECP_TEST_FS to the filesystem the temp dir lives on.
var unsupportedTestFS = []string{"ext2", "ntfs", "fat", "vfat", "zfs"}

func testFSSupportsSparse() bool {
	fs, ok := os.LookupEnv("SPARSECP_TEST_FS")
	return !ok || !slices.Contains(unsupportedTestFS, fs)
}

// truncatedFile creates path with the given length and no data.
func truncatedFile(t *testing.T, path string, size int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

// requireSparseDir returns a temp dir whose filesystem keeps holes,
// skipping the test otherwise.
func requireSparseDir(t *testing.T) string {
	t.Helper()
	if !testFSSupportsSparse() {
		t.Skip("test filesystem does not support sparse files")
	}
	dir := t.TempDir()
	probe := filepath.Join(dir, "probe")
	truncatedFile(t, probe, 1<<20)

	f, err := os.Open(probe)
	require.NoError(t, err)
	defer f.Close()
	sparse, err := ProbablySparse(f)
	require.NoError(t, err)
	if !sparse {
		t.Skip("test filesystem allocates truncated files eagerly")
	}
	return dir
}

// copyAll drives CopyFileBytes until n bytes have moved.
func copyAll(t *testing.T, src, dst *os.File, n int64) {
	t.Helper()
	var total int64
	for total < n {
		c, err := CopyFileBytes(src, dst, n-total)
		require.NoError(t, err)
		require.Positive(t, c)
		total += c
	}
}

func openRW(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
