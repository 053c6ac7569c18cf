//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestClassifyCopyErr(t *testing.T) {
	tests := []struct {
		err  error
		want Decision
	}{
		{unix.ENOSYS, Fallback},
		{unix.EPERM, Fallback},
		{unix.EXDEV, Fallback},
		{unix.EINVAL, Fallback},
		{unix.EOPNOTSUPP, Fallback},
		{fmt.Errorf("wrapped: %w", unix.EXDEV), Fallback},
		{&os.PathError{Op: "copy_file_range", Path: "x", Err: unix.ENOSYS}, Fallback},
		{unix.EIO, Fatal},
		{unix.ENOSPC, Fatal},
		{unix.EBADF, Fatal},
		{errors.New("not an errno"), Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCopyErr(tt.err))
		})
	}
}

func TestClassifyCloneErr(t *testing.T) {
	tests := []struct {
		err  error
		want Decision
	}{
		{unix.EOPNOTSUPP, Fallback},
		{unix.EXDEV, Fallback},
		{unix.EINVAL, Fallback},
		{unix.ENOTTY, Fallback},
		{unix.ENOSYS, Fallback},
		{unix.EIO, Fatal},
		{unix.EBADF, Fatal},
		{unix.ENOSPC, Fatal},
		{errors.New("not an errno"), Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCloneErr(tt.err))
		})
	}
}

func TestClassifyFiemapErr(t *testing.T) {
	assert.Equal(t, Fallback, classifyFiemapErr(unix.EOPNOTSUPP))
	assert.Equal(t, Fatal, classifyFiemapErr(unix.EBADF))
	assert.Equal(t, Fatal, classifyFiemapErr(unix.EINVAL))
	assert.Equal(t, Fatal, classifyFiemapErr(unix.ENOTTY))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "fallback", Fallback.String())
	assert.Equal(t, "fatal", Fatal.String())
}
