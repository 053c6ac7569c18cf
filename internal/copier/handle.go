package copier

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bamsammich/sparsecp/internal/platform"
)

// Strategy records how a Handle moved the data.
type Strategy int

const (
	StrategyNone    Strategy = iota
	StrategyReflink          // copy-on-write clone, no bytes moved
	StrategySparse           // data segments only, holes skipped
	StrategyDense            // one sequential copy of the whole length
	StrategyExtents          // FIEMAP-driven offset copies
)

var strategyNames = [...]string{
	StrategyNone:    "none",
	StrategyReflink: "reflink",
	StrategySparse:  "sparse",
	StrategyDense:   "dense",
	StrategyExtents: "extents",
}

func (s Strategy) String() string {
	if s >= 0 && int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// Handle owns an open source and destination for a single file copy plus
// the source metadata captured when it was opened. It copies once and is
// then closed; it is not safe for concurrent use, but distinct Handles
// share nothing except the read-only Options.
type Handle struct {
	src  *os.File
	dst  *os.File
	info os.FileInfo
	opts *Options

	// clone is platform.Reflink outside of tests.
	clone    func(src, dst *os.File) (bool, error)
	throttle func(n int64) error

	strategy  Strategy
	finalized bool
	closed    bool
}

// Open opens from for reading, creates or truncates to with from's
// permission bits, and sizes it to from's length so that later offset
// writes land in a file of the right shape.
func Open(from, to string, opts *Options) (*Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	same, err := platform.IsSameFile(from, to)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", from, err)
	}
	if same {
		return nil, fmt.Errorf("%w: %s and %s", ErrSameFile, from, to)
	}

	src, err := os.Open(from)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	info, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		src.Close()
		return nil, fmt.Errorf("source %s is a directory", from)
	}

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create destination: %w", err)
	}

	h, err := newHandle(src, dst, info, opts)
	if err != nil {
		src.Close()
		dst.Close()
		return nil, err
	}
	return h, nil
}

// NewHandle builds a Handle from descriptors the caller already opened.
// dst must be writable and not in append mode. On success the Handle owns
// both files and Close releases them; on error they are left open.
func NewHandle(src, dst *os.File, opts *Options) (*Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	return newHandle(src, dst, info, opts)
}

func newHandle(src, dst *os.File, info os.FileInfo, opts *Options) (*Handle, error) {
	if err := platform.AllocateFile(dst, info.Size()); err != nil {
		return nil, err
	}
	return &Handle{
		src:   src,
		dst:   dst,
		info:  info,
		opts:  opts,
		clone: platform.Reflink,
	}, nil
}

// SetThrottle installs fn to run after every chunk of bytes actually moved.
// Reflinks move nothing and are never throttled. An error from fn aborts
// the copy.
func (h *Handle) SetThrottle(fn func(n int64) error) { h.throttle = fn }

// Size is the source length captured at open.
func (h *Handle) Size() int64 { return h.info.Size() }

// Strategy reports how the last copy moved the data.
func (h *Handle) Strategy() Strategy { return h.strategy }

// SrcName returns the source file name.
func (h *Handle) SrcName() string { return h.src.Name() }

// DstName returns the destination file name.
func (h *Handle) DstName() string { return h.dst.Name() }

// TryReflink attempts a copy-on-write clone according to the reflink
// mode. true means the destination is now complete and no bytes need
// moving. Under ReflinkAlways an unclonable pair is a *ReflinkError; any
// other clone failure is returned regardless of mode.
func (h *Handle) TryReflink() (bool, error) {
	switch h.opts.Reflink {
	case ReflinkNever:
		return false, nil
	case ReflinkAlways, ReflinkAuto:
		slog.Debug("attempting reflink", "src", h.src.Name(), "dst", h.dst.Name())
		worked, err := h.clone(h.src, h.dst)
		if err != nil {
			return false, err
		}
		if worked {
			slog.Debug("reflink succeeded", "dst", h.dst.Name())
			return true, nil
		}
		if h.opts.Reflink == ReflinkAlways {
			return false, &ReflinkError{Src: h.src.Name(), Dst: h.dst.Name()}
		}
		slog.Debug("reflink not possible, falling back to copy", "src", h.src.Name(), "dst", h.dst.Name())
		return false, nil
	}
	return false, fmt.Errorf("%w: %d", ErrInvalidReflink, int(h.opts.Reflink))
}

// CopyFile copies the source into the destination: a reflink when the
// mode and filesystem allow, otherwise a sparse-aware copy for files that
// look sparse and a single dense copy for the rest. It returns the source
// length on success. Progress goes to u, which may be nil.
func (h *Handle) CopyFile(u *BatchUpdater) (int64, error) {
	n, err := h.copyFile(u)
	if err != nil {
		if ferr := u.Fail(err); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return n, err
	}
	return n, u.Flush()
}

func (h *Handle) copyFile(u *BatchUpdater) (int64, error) {
	size := h.Size()

	cloned, err := h.TryReflink()
	if err != nil {
		return 0, err
	}
	if cloned {
		h.strategy = StrategyReflink
		return size, u.Update(size)
	}

	sparse, err := platform.ProbablySparse(h.src)
	if err != nil {
		return 0, err
	}
	if sparse {
		h.strategy = StrategySparse
		return h.copySparse(u)
	}

	h.strategy = StrategyDense
	if err := platform.Preallocate(h.dst, size); err != nil {
		slog.Debug("preallocation skipped", "dst", h.dst.Name(), "error", err)
	}
	return h.copyBytes(size, u)
}

// copyBytes copies n bytes from wherever the descriptor cursors are,
// at most one batch per kernel call.
func (h *Handle) copyBytes(n int64, u *BatchUpdater) (int64, error) {
	var written int64
	for written < n {
		chunk := min(n-written, h.opts.BatchSize)
		c, err := platform.CopyFileBytes(h.src, h.dst, chunk)
		if err != nil {
			return written, err
		}
		if c == 0 {
			return written, fmt.Errorf("copy %s at %d: %w", h.src.Name(), written, platform.ErrShortCopy)
		}
		written += c
		if err := h.progress(c, u); err != nil {
			return written, err
		}
	}
	return written, nil
}

// copySparse walks the source data segment by data segment, copying each
// and skipping the holes between them. The destination was sized at open,
// so skipped ranges stay unallocated.
func (h *Handle) copySparse(u *BatchUpdater) (int64, error) {
	size := h.Size()
	var pos int64

	for pos < size {
		data, hole, err := platform.NextSparseSegment(h.src, h.dst, pos)
		if err != nil {
			return pos, err
		}
		hole = min(hole, size)
		if hole <= pos {
			return pos, fmt.Errorf("sparse copy %s at %d: %w", h.src.Name(), pos, platform.ErrShortCopy)
		}
		if _, err := h.copyBytes(hole-data, u); err != nil {
			return data, err
		}
		pos = hole
	}

	return size, nil
}

// CopyRange copies n bytes at offset off from source to the same offset
// in the destination without moving either cursor.
func (h *Handle) CopyRange(off, n int64, u *BatchUpdater) (int64, error) {
	var done int64
	for done < n {
		chunk := min(n-done, h.opts.BatchSize)
		c, err := platform.CopyFileOffset(h.src, h.dst, chunk, off+done)
		if err != nil {
			return done, err
		}
		if c == 0 {
			return done, fmt.Errorf("copy %s at %d: %w", h.src.Name(), off+done, platform.ErrShortCopy)
		}
		done += c
		if err := h.progress(c, u); err != nil {
			return done, err
		}
	}
	return done, nil
}

func (h *Handle) progress(n int64, u *BatchUpdater) error {
	if err := u.Update(n); err != nil {
		return err
	}
	if h.throttle != nil {
		return h.throttle(n)
	}
	return nil
}

// CopyExtents copies only the ranges the filesystem reports as allocated.
// ok is false, with nothing copied, when the source's filesystem cannot
// map extents; callers then use CopyFile.
func (h *Handle) CopyExtents(u *BatchUpdater) (n int64, ok bool, err error) {
	extents, ok, err := platform.MapExtents(h.src)
	if err != nil || !ok {
		return 0, false, err
	}

	size := h.Size()
	for _, e := range platform.MergeExtents(extents) {
		end := min(e.End, size)
		if e.Start >= end {
			continue
		}
		if _, err := h.CopyRange(e.Start, end-e.Start, u); err != nil {
			return 0, true, err
		}
	}
	h.strategy = StrategyExtents
	return size, true, u.Flush()
}

// Finalize copies owner and mode to the destination unless NoPerms is
// set, then fsyncs it if Fsync is set. It is the fallible half of Close
// for callers that want to see these errors.
func (h *Handle) Finalize() error {
	h.finalized = true
	var errs []error
	if !h.opts.NoPerms {
		if err := platform.CopyPermissions(h.src, h.dst); err != nil {
			errs = append(errs, err)
		}
	}
	if h.opts.Fsync {
		slog.Debug("syncing file", "dst", h.dst.Name())
		if err := platform.Sync(h.dst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close finalizes the copy, unless Finalize already ran, and closes both
// files. It runs whether or not the copy succeeded. Finalization errors
// are logged and never returned, so a failed chmod or fsync cannot mask
// the copy's own result; only errors closing the descriptors come back.
// Calling Close more than once is a no-op.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if !h.finalized {
		if err := h.Finalize(); err != nil {
			slog.Error("error finalising copy",
				"src", h.src.Name(),
				"dst", h.dst.Name(),
				"error", err,
			)
		}
	}
	return errors.Join(h.src.Close(), h.dst.Close())
}
