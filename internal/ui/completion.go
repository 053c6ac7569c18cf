package ui

import (
	"fmt"
	"strings"

	"github.com/bamsammich/sparsecp/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 1  size 1MiB  avg 512MiB/s  time 2ms  reflinked 1  errors 0
// Without icons the check mark becomes "ok" or "failed".
func CompletionSummary(snap stats.Snapshot, icons bool) string {
	failed := snap.FilesFailed > 0 || snap.FilesVerifyFailed > 0
	status := "ok"
	if failed {
		status = "failed"
	}
	if icons {
		status = "✓"
		if failed {
			status = "✗"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "done %s  files %s  size %s  avg %s  time %s",
		status,
		FormatCount(snap.FilesCopied),
		FormatBytes(snap.BytesCopied),
		FormatRate(snap.Throughput()),
		FormatDuration(snap.Elapsed),
	)

	if snap.FilesReflinked > 0 {
		fmt.Fprintf(&b, "  reflinked %s", FormatCount(snap.FilesReflinked))
	}
	if snap.FilesSparse > 0 {
		fmt.Fprintf(&b, "  sparse %s", FormatCount(snap.FilesSparse))
	}
	if snap.FilesVerified > 0 || snap.FilesVerifyFailed > 0 {
		fmt.Fprintf(&b, "  verified %s", FormatCount(snap.FilesVerified))
	}

	fmt.Fprintf(&b, "  errors %d", snap.FilesFailed+snap.FilesVerifyFailed)
	return b.String()
}
