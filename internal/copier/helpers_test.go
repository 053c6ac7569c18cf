package copier

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/sparsecp/internal/platform"
)

var unsupportedTestFS = []string{"ext2", "ntfs", "fat", "vfat", "zfs"}

// requireSparseDir returns a temp dir whose filesystem keeps holes,
// skipping the test otherwise.
func requireSparseDir(t *testing.T) string {
	t.Helper()
	if fs, ok := os.LookupEnv("SPARSECP_TEST_FS"); ok && slices.Contains(unsupportedTestFS, fs) {
		t.Skip("test filesystem does not support sparse files")
	}
	dir := t.TempDir()
	probe := filepath.Join(dir, "probe")
	truncatedFile(t, probe, 1<<20)

	f, err := os.Open(probe)
	require.NoError(t, err)
	defer f.Close()
	sparse, err := platform.ProbablySparse(f)
	require.NoError(t, err)
	if !sparse {
		t.Skip("test filesystem allocates truncated files eagerly")
	}
	return dir
}

func truncatedFile(t *testing.T, path string, size int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

// writeSparse creates a file of the given size with payload written at
// each offset and holes everywhere else.
func writeSparse(t *testing.T, path string, size int64, payload []byte, offsets ...int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	for _, off := range offsets {
		_, err := f.WriteAt(payload, off)
		require.NoError(t, err)
	}
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
}

func testOptions(mode Reflink) *Options {
	opts := DefaultOptions()
	opts.Reflink = mode
	return &opts
}

// cloneSpy stands in for platform.Reflink and counts calls.
type cloneSpy struct {
	calls  int
	worked bool
	err    error
}

func (s *cloneSpy) clone(_, _ *os.File) (bool, error) {
	s.calls++
	return s.worked, s.err
}

// recordingSink keeps every report.
type recordingSink struct {
	mu      sync.Mutex
	reports []int64
	errs    []error
}

func (s *recordingSink) Report(n int64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errs = append(s.errs, err)
		return nil
	}
	s.reports = append(s.reports, n)
	return nil
}

func (s *recordingSink) total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, n := range s.reports {
		sum += n
	}
	return sum
}
