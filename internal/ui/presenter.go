package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/sparsecp/internal/stats"
)

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Stats     *stats.Collector
	IsTTY     bool
	Quiet     bool
	Verbose   bool
}

// Presenter consumes engine events and writes one line per notable event.
// It never draws progress bars.
type Presenter struct {
	w       io.Writer
	errW    io.Writer
	stats   *stats.Collector
	isTTY   bool
	quiet   bool
	verbose bool
}

// NewPresenter creates a Presenter from cfg.
func NewPresenter(cfg Config) *Presenter {
	return &Presenter{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		stats:   cfg.Stats,
		isTTY:   cfg.IsTTY,
		quiet:   cfg.Quiet,
		verbose: cfg.Verbose,
	}
}

// Run consumes events until the channel closes.
func (p *Presenter) Run(events <-chan Event) {
	for ev := range events {
		p.handleEvent(ev)
	}
}

func (p *Presenter) handleEvent(ev Event) {
	if p.quiet {
		// Failures still reach the user through the CLI's error return.
		return
	}
	switch ev.Type {
	case FileStarted:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s\n", ev.Path, FormatBytes(ev.Size))
		}
	case FileProgress:
		if p.verbose && ev.Total > 0 {
			pct := float64(ev.Size) / float64(ev.Total) * 100
			fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s\n", pct, FormatBytes(ev.Size), FormatBytes(ev.Total))
		}
	case FileCompleted:
		if p.verbose {
			fmt.Fprintf(p.w, "%s  %s  %s\n", ev.Path, FormatBytes(ev.Size), ev.Strategy)
		}
	case FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.errW, "%s  %s\n", ev.Path, errMsg)
	case VerifyStarted:
		if p.verbose {
			fmt.Fprintln(p.w, "verifying...")
		}
	case VerifyFailed:
		fmt.Fprintf(p.errW, "MISMATCH: %s\n", ev.Path)
	case VerifyOK:
		// silent
	}
}

// Summary returns the final summary line, or "" in quiet mode.
func (p *Presenter) Summary() string {
	if p.quiet || p.stats == nil {
		return ""
	}
	return CompletionSummary(p.stats.Snapshot(), p.isTTY)
}
