package engine

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/bamsammich/sparsecp/internal/copier"
	"github.com/bamsammich/sparsecp/internal/event"
	"github.com/bamsammich/sparsecp/internal/platform"
	"github.com/bamsammich/sparsecp/internal/stats"
)

func hashFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	h := blake3.Sum256(data)
	return h[:]
}

func writeRandom(t *testing.T, path string, size int) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func drain(ch chan event.Event) []event.Event {
	close(ch)
	var out []event.Event
	for e := range ch {
		out = append(out, e)
	}
	return out
}

func types(events []event.Event) []event.Type {
	out := make([]event.Type, 0, len(events))
	for _, e := range events {
		if e.Type != event.FileProgress {
			out = append(out, e.Type)
		}
	}
	return out
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandom(t, src, 2<<20)

	events := make(chan event.Event, 256)
	res := CopyFile(context.Background(), Config{
		Src:     src,
		Dst:     dst,
		Options: copier.DefaultOptions(),
		Events:  events,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, dst, res.Dst)
	assert.Equal(t, int64(2<<20), res.Bytes)
	assert.NotEqual(t, copier.StrategyNone, res.Strategy)
	assert.False(t, res.Verified)
	assert.Equal(t, hashFile(t, src), hashFile(t, dst))

	assert.Equal(t, int64(1), res.Stats.FilesCopied)
	assert.Equal(t, int64(2<<20), res.Stats.BytesCopied)
	assert.Equal(t, int64(2<<20), res.Stats.BytesTotal)

	got := drain(events)
	assert.Equal(t, []event.Type{event.FileStarted, event.FileCompleted}, types(got))
	last := got[len(got)-1]
	assert.Equal(t, res.Strategy.String(), last.Strategy)
}

func TestCopyFileIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload.dat")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	writeRandom(t, src, 1000)

	res := CopyFile(context.Background(), Config{Src: src, Dst: out, Options: copier.DefaultOptions()})
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(out, "payload.dat"), res.Dst)
	assert.Equal(t, hashFile(t, src), hashFile(t, res.Dst))
}

func TestCopyFileVerify(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeRandom(t, src, 300_000)

	opts := copier.DefaultOptions()
	opts.Verify = true
	events := make(chan event.Event, 256)
	res := CopyFile(context.Background(), Config{Src: src, Dst: dst, Options: opts, Events: events})
	require.NoError(t, res.Err)
	assert.True(t, res.Verified)
	assert.Equal(t, int64(1), res.Stats.FilesVerified)

	assert.Equal(t,
		[]event.Type{event.FileStarted, event.FileCompleted, event.VerifyStarted, event.VerifyOK},
		types(drain(events)))
}

func TestCopyFileSparseStrategy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sparse.img")
	dst := filepath.Join(dir, "sparse.copy")

	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(4<<20))
	_, err = f.WriteAt([]byte("test data"), 2<<20)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	probe, err := os.Open(src)
	require.NoError(t, err)
	sparse, err := platform.ProbablySparse(probe)
	probe.Close()
	require.NoError(t, err)
	if !sparse {
		t.Skip("test filesystem allocates truncated files eagerly")
	}

	opts := copier.DefaultOptions()
	opts.Reflink = copier.ReflinkNever
	opts.Verify = true
	res := CopyFile(context.Background(), Config{Src: src, Dst: dst, Options: opts})
	require.NoError(t, res.Err)
	assert.Equal(t, copier.StrategySparse, res.Strategy)
	assert.Equal(t, int64(1), res.Stats.FilesSparse)
	assert.True(t, res.Verified)
}

func TestCopyFileUseExtents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeRandom(t, src, 256<<10)

	opts := copier.DefaultOptions()
	opts.Reflink = copier.ReflinkNever
	res := CopyFile(context.Background(), Config{Src: src, Dst: dst, Options: opts, UseExtents: true})
	require.NoError(t, res.Err)
	// Either FIEMAP worked or the engine fell back to the normal path.
	assert.Contains(t, []copier.Strategy{copier.StrategyExtents, copier.StrategyDense, copier.StrategySparse}, res.Strategy)
	assert.Equal(t, hashFile(t, src), hashFile(t, dst))
}

func TestCopyFileSharedCollector(t *testing.T) {
	dir := t.TempDir()
	collector := stats.NewCollector()
	for _, name := range []string{"a", "b", "c"} {
		src := filepath.Join(dir, name)
		writeRandom(t, src, 1000)
		res := CopyFile(context.Background(), Config{
			Src:     src,
			Dst:     src + ".copy",
			Options: copier.DefaultOptions(),
			Stats:   collector,
		})
		require.NoError(t, res.Err)
	}
	s := collector.Snapshot()
	assert.Equal(t, int64(3), s.FilesCopied)
	assert.Equal(t, int64(3000), s.BytesCopied)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	events := make(chan event.Event, 8)
	res := CopyFile(context.Background(), Config{
		Src:     filepath.Join(dir, "missing"),
		Dst:     filepath.Join(dir, "dst"),
		Options: copier.DefaultOptions(),
		Events:  events,
	})
	require.ErrorIs(t, res.Err, os.ErrNotExist)
	assert.Equal(t, int64(1), res.Stats.FilesFailed)
	assert.Equal(t, []event.Type{event.FileFailed}, types(drain(events)))
}

func TestCopyFileReflinkAlwaysOnUnsupported(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeRandom(t, src, 4096)

	opts := copier.DefaultOptions()
	opts.Reflink = copier.ReflinkAlways
	res := CopyFile(context.Background(), Config{Src: src, Dst: filepath.Join(dir, "dst"), Options: opts})
	if res.Err == nil {
		t.Skip("test filesystem supports reflinks")
	}
	assert.ErrorIs(t, res.Err, copier.ErrReflinkFailed)
	assert.Equal(t, int64(1), res.Stats.FilesFailed)
}

func TestCopyFileCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeRandom(t, src, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := CopyFile(ctx, Config{Src: src, Dst: dst, Options: copier.DefaultOptions()})
	require.ErrorIs(t, res.Err, context.Canceled)

	_, err := os.Stat(dst)
	assert.ErrorIs(t, err, os.ErrNotExist, "nothing is created after cancellation")
}

func TestCopyFileEmptyDestination(t *testing.T) {
	res := CopyFile(context.Background(), Config{Src: "x", Options: copier.DefaultOptions()})
	assert.Error(t, res.Err)
}

func TestCopyFileBWLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeRandom(t, src, 64<<10)

	opts := copier.DefaultOptions()
	opts.Reflink = copier.ReflinkNever

	start := time.Now()
	res := CopyFile(context.Background(), Config{Src: src, Dst: dst, Options: opts, BWLimit: 32 << 10})
	require.NoError(t, res.Err)
	// 32 KiB burst, then 32 KiB more at 32 KiB/s.
	assert.Greater(t, time.Since(start), 800*time.Millisecond)
	assert.Equal(t, hashFile(t, src), hashFile(t, dst))
}

func TestCopyFileBWLimitCancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeRandom(t, src, 1<<20)

	opts := copier.DefaultOptions()
	opts.Reflink = copier.ReflinkNever

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res := CopyFile(ctx, Config{Src: src, Dst: dst, Options: opts, BWLimit: 64 << 10})
	require.Error(t, res.Err)
	assert.Equal(t, int64(1), res.Stats.FilesFailed)
}
