package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	units "github.com/docker/go-units"

	"github.com/bamsammich/sparsecp/internal/copier"
)

// Collector tracks copy statistics using lock-free atomic counters. It is a
// copier.Sink, so byte progress can be fed to it straight from a
// BatchUpdater while the engine records per-file outcomes.
type Collector struct {
	bytesCopied       atomic.Int64
	bytesTotal        atomic.Int64
	filesCopied       atomic.Int64
	filesReflinked    atomic.Int64
	filesSparse       atomic.Int64
	filesFailed       atomic.Int64
	filesVerified     atomic.Int64
	filesVerifyFailed atomic.Int64
	errorsReported    atomic.Int64
	startTime         time.Time
}

var _ copier.Sink = (*Collector)(nil)

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Report implements copier.Sink.
func (c *Collector) Report(n int64, err error) error {
	if err != nil {
		c.errorsReported.Add(1)
		return nil
	}
	c.bytesCopied.Add(n)
	return nil
}

func (c *Collector) AddBytesTotal(n int64)        { c.bytesTotal.Add(n) }
func (c *Collector) AddFilesCopied(n int64)       { c.filesCopied.Add(n) }
func (c *Collector) AddFilesReflinked(n int64)    { c.filesReflinked.Add(n) }
func (c *Collector) AddFilesSparse(n int64)       { c.filesSparse.Add(n) }
func (c *Collector) AddFilesFailed(n int64)       { c.filesFailed.Add(n) }
func (c *Collector) AddFilesVerified(n int64)     { c.filesVerified.Add(n) }
func (c *Collector) AddFilesVerifyFailed(n int64) { c.filesVerifyFailed.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	BytesCopied       int64
	BytesTotal        int64
	FilesCopied       int64
	FilesReflinked    int64
	FilesSparse       int64
	FilesFailed       int64
	FilesVerified     int64
	FilesVerifyFailed int64
	Errors            int64
	Elapsed           time.Duration
}

// Snapshot returns a point-in-time read of all counters. Counters are read
// one at a time, so a snapshot taken mid-copy may be slightly skewed.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		BytesCopied:       c.bytesCopied.Load(),
		BytesTotal:        c.bytesTotal.Load(),
		FilesCopied:       c.filesCopied.Load(),
		FilesReflinked:    c.filesReflinked.Load(),
		FilesSparse:       c.filesSparse.Load(),
		FilesFailed:       c.filesFailed.Load(),
		FilesVerified:     c.filesVerified.Load(),
		FilesVerifyFailed: c.filesVerifyFailed.Load(),
		Errors:            c.errorsReported.Load(),
		Elapsed:           c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Throughput is bytes copied per second over the snapshot's elapsed time.
func (s Snapshot) Throughput() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.BytesCopied) / secs
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"copied=%d reflinked=%d sparse=%d failed=%d verified=%d verify_failed=%d bytes=%d",
		s.FilesCopied, s.FilesReflinked, s.FilesSparse, s.FilesFailed,
		s.FilesVerified, s.FilesVerifyFailed, s.BytesCopied,
	)
}

// FormatBytes returns a human-readable binary byte count.
func FormatBytes(b int64) string {
	return units.BytesSize(float64(b))
}
