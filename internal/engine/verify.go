package engine

import (
	"errors"
	"fmt"
)

// ErrVerifyMismatch matches any *VerifyError.
var ErrVerifyMismatch = errors.New("checksum mismatch")

// VerifyError records a checksum mismatch between a source and its copy.
type VerifyError struct {
	Src     string
	Dst     string
	SrcHash string
	DstHash string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("checksum mismatch: %s (%s) != %s (%s)", e.Src, e.SrcHash, e.Dst, e.DstHash)
}

func (e *VerifyError) Is(target error) bool { return target == ErrVerifyMismatch }

// VerifyFile compares BLAKE3 digests of src and dst. A read failure on
// either side is returned as is; differing content is a *VerifyError.
func VerifyFile(src, dst string) error {
	srcHash, err := HashFile(src)
	if err != nil {
		return fmt.Errorf("verify source: %w", err)
	}
	dstHash, err := HashFile(dst)
	if err != nil {
		return fmt.Errorf("verify destination: %w", err)
	}
	if srcHash != dstHash {
		return &VerifyError{Src: src, Dst: dst, SrcHash: srcHash, DstHash: dstHash}
	}
	return nil
}
