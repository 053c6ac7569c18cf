package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/bamsammich/sparsecp/internal/copier"
	"github.com/bamsammich/sparsecp/internal/event"
	"github.com/bamsammich/sparsecp/internal/stats"
)

// Config describes a single-file copy.
type Config struct {
	Src     string
	Dst     string
	Options copier.Options

	// UseExtents copies the ranges FIEMAP reports instead of walking
	// SEEK_DATA/SEEK_HOLE, falling back to the normal path when the
	// filesystem cannot map extents.
	UseExtents bool

	// BWLimit caps copy throughput in bytes per second; zero is unlimited.
	BWLimit int64

	Events chan<- event.Event
	Stats  *stats.Collector // nil allocates a fresh collector
}

// Result is the outcome of a copy.
type Result struct {
	Src      string
	Dst      string // resolved destination path
	Bytes    int64
	Strategy copier.Strategy
	Verified bool
	Stats    stats.Snapshot
	Err      error
}

// CopyFile copies cfg.Src to cfg.Dst, blocking until complete. When Dst
// names an existing directory the file is copied into it under its own
// base name. The context is checked before the copy and before the verify
// pass. The copy itself is only interruptible while waiting on BWLimit.
func CopyFile(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	res := Result{Src: cfg.Src}
	finish := func(err error) Result {
		if err != nil {
			collector.AddFilesFailed(1)
			event.Emit(cfg.Events, event.Event{Type: event.FileFailed, Path: res.Dst, Error: err})
		}
		res.Err = err
		res.Stats = collector.Snapshot()
		return res
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	dst, err := resolveDst(cfg.Src, cfg.Dst)
	if err != nil {
		return finish(err)
	}
	res.Dst = dst

	opts := cfg.Options
	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = NewBWLimiter(cfg.BWLimit)
		opts.BatchSize = min(opts.BatchSize, int64(limiter.Burst()))
	}

	h, err := copier.Open(cfg.Src, dst, &opts)
	if err != nil {
		return finish(err)
	}
	if limiter != nil {
		h.SetThrottle(throttle(ctx, limiter))
	}

	collector.AddBytesTotal(h.Size())
	event.Emit(cfg.Events, event.Event{Type: event.FileStarted, Path: dst, Size: h.Size()})
	slog.Debug("copying file", "src", cfg.Src, "dst", dst, "size", h.Size(), "reflink", opts.Reflink)

	sink := copier.MultiSink{
		collector,
		&event.ChannelSink{Ch: cfg.Events, Path: dst, Total: h.Size()},
	}
	u := copier.NewBatchUpdater(sink, opts.BatchSize)

	n, copyErr := copyHandle(h, u, cfg.UseExtents)
	res.Bytes = n
	res.Strategy = h.Strategy()

	// Finalize explicitly so permission and fsync failures fail the copy
	// instead of only being logged by Close.
	if copyErr == nil {
		copyErr = h.Finalize()
	}
	if err := h.Close(); err != nil && copyErr == nil {
		copyErr = fmt.Errorf("close: %w", err)
	}
	if copyErr != nil {
		return finish(copyErr)
	}

	collector.AddFilesCopied(1)
	switch res.Strategy {
	case copier.StrategyReflink:
		collector.AddFilesReflinked(1)
	case copier.StrategySparse, copier.StrategyExtents:
		collector.AddFilesSparse(1)
	}
	event.Emit(cfg.Events, event.Event{
		Type:     event.FileCompleted,
		Path:     dst,
		Size:     n,
		Strategy: res.Strategy.String(),
	})

	if opts.Verify {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if err := verify(cfg, collector, cfg.Src, dst); err != nil {
			res.Err = err
			res.Stats = collector.Snapshot()
			return res
		}
		res.Verified = true
	}

	return finish(nil)
}

func copyHandle(h *copier.Handle, u *copier.BatchUpdater, useExtents bool) (int64, error) {
	if useExtents {
		n, ok, err := h.CopyExtents(u)
		if err != nil {
			if ferr := u.Fail(err); ferr != nil {
				err = errors.Join(err, ferr)
			}
			return n, err
		}
		if ok {
			return n, nil
		}
		slog.Debug("extent mapping not supported, using sparse copy", "src", h.SrcName())
	}
	return h.CopyFile(u)
}

func verify(cfg Config, collector *stats.Collector, src, dst string) error {
	event.Emit(cfg.Events, event.Event{Type: event.VerifyStarted, Path: dst})
	if err := VerifyFile(src, dst); err != nil {
		collector.AddFilesVerifyFailed(1)
		event.Emit(cfg.Events, event.Event{Type: event.VerifyFailed, Path: dst, Error: err})
		return err
	}
	collector.AddFilesVerified(1)
	event.Emit(cfg.Events, event.Event{Type: event.VerifyOK, Path: dst})
	return nil
}

// resolveDst maps a destination directory to dir/base(src).
func resolveDst(src, dst string) (string, error) {
	if dst == "" {
		return "", errors.New("destination: empty path")
	}
	info, err := os.Stat(dst)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return dst, nil
	case err != nil:
		return "", fmt.Errorf("destination: %w", err)
	case info.IsDir():
		return filepath.Join(dst, filepath.Base(src)), nil
	}
	return dst, nil
}
