//go:build !linux

package platform

import "os"

// MapExtents reports extent mapping as unavailable on this platform.
func MapExtents(_ *os.File) ([]Extent, bool, error) {
	return nil, false, nil
}
