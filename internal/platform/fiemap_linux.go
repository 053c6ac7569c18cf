//go:build linux

package platform

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// See linux/fiemap.h and ioctl_list(2).
const (
	fsIocFiemap       = 0xC020660B
	fiemapExtentLast  = 0x00000001
	fiemapBatchExtent = 32
)

// Field order and sizes must match struct fiemap_extent exactly (56 bytes,
// no padding).
type fiemapExtent struct {
	logical    uint64
	physical   uint64
	length     uint64
	reserved64 [2]uint64
	flags      uint32
	reserved32 [3]uint32
}

// struct fiemap: a 32-byte header followed by the extent array.
type fiemapReq struct {
	start         uint64
	length        uint64
	flags         uint32
	mappedExtents uint32
	extentCount   uint32
	reserved      uint32
	extents       [fiemapBatchExtent]fiemapExtent
}

// MapExtents lists the allocated byte ranges of f using the FIEMAP ioctl,
// fetching fiemapBatchExtent extents per call. ok is false, with a nil
// error, when the filesystem does not support extent mapping. A file with
// no allocated data yields an empty, non-nil slice.
func MapExtents(f *os.File) (extents []Extent, ok bool, err error) {
	req := fiemapReq{
		length:      ^uint64(0),
		extentCount: fiemapBatchExtent,
	}
	extents = make([]Extent, 0, fiemapBatchExtent)

	for {
		req.mappedExtents = 0
		_, _, errno := unix.Syscall(
			unix.SYS_IOCTL,
			f.Fd(),
			uintptr(fsIocFiemap),
			uintptr(unsafe.Pointer(&req)),
		)
		if errno != 0 {
			if classifyFiemapErr(errno) == Fallback {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("fiemap %s at %d: %w", f.Name(), req.start, errno)
		}

		if req.mappedExtents == 0 {
			break
		}

		for i := uint32(0); i < req.mappedExtents; i++ {
			e := req.extents[i]
			extents = append(extents, Extent{
				Start: int64(e.logical), //nolint:gosec // G115: file offsets fit in int64
				End:   int64(e.logical + e.length), //nolint:gosec // G115: file offsets fit in int64
			})
		}

		last := req.extents[req.mappedExtents-1]
		if last.flags&fiemapExtentLast != 0 {
			break
		}
		req.start = last.logical + last.length
	}

	return extents, true, nil
}

// classifyFiemapErr maps EOPNOTSUPP ("this filesystem cannot map extents")
// to Fallback; everything else is fatal.
func classifyFiemapErr(err error) Decision {
	errno, ok := errnoOf(err)
	if ok && errno == unix.EOPNOTSUPP {
		return Fallback
	}
	return Fatal
}
