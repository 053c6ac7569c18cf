//go:build !linux

package platform

import "os"

// Reflink reports that whole-file cloning of open descriptors is not
// available on this platform.
func Reflink(_, _ *os.File) (bool, error) {
	return false, nil
}
