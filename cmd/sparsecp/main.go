package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/sparsecp/internal/config"
	"github.com/bamsammich/sparsecp/internal/copier"
	"github.com/bamsammich/sparsecp/internal/engine"
	"github.com/bamsammich/sparsecp/internal/event"
	"github.com/bamsammich/sparsecp/internal/stats"
	"github.com/bamsammich/sparsecp/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2
	}
	return 0
}

// copyFlags holds the root command's flag values before they are merged
// with the config file.
type copyFlags struct {
	reflink     copier.Reflink
	noPerms     bool
	fsync       bool
	verify      bool
	extents     bool
	batchSize   string
	bwLimit     string
	verbose     bool
	quiet       bool
	logFile     string
	showVersion bool
}

func newRootCmd() *cobra.Command {
	var f copyFlags

	rootCmd := &cobra.Command{
		Use:   "sparsecp [flags] <source> <destination>",
		Short: "Copy a file using reflinks and copy_file_range, keeping holes",
		Args: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "sparsecp %s\n", version)
				return nil
			}
			return runCopy(cmd, &f, args[0], args[1])
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&f.showVersion, "version", false, "print version and exit")
	flags.Var(&f.reflink, "reflink", "copy-on-write clone: auto, always or never")
	flags.BoolVar(&f.noPerms, "no-perms", false, "don't copy owner and mode to the destination")
	flags.BoolVar(&f.fsync, "fsync", false, "fsync the destination before exiting")
	flags.BoolVar(&f.verify, "verify", false, "verify checksums after copy (BLAKE3)")
	flags.BoolVar(&f.extents, "extents", false, "copy the extents FIEMAP reports instead of seeking for data")
	flags.StringVar(&f.batchSize, "batch-size", config.FormatBatchSize(copier.DefaultBatchSize),
		"largest single copy request and progress interval (e.g. 16MiB, 512k)")
	flags.StringVar(&f.bwLimit, "bwlimit", "", "bandwidth limit in bytes per second (e.g. 100M, 1G)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "suppress all output except errors")
	flags.StringVar(&f.logFile, "log", "", "write structured JSON log to FILE")

	rootCmd.AddCommand(newExtentsCmd())
	rootCmd.AddCommand(newSparseCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

func runCopy(cmd *cobra.Command, f *copyFlags, src, dst string) error {
	closeLog, err := setupLogging(cmd.ErrOrStderr(), f.verbose, f.quiet, f.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "path", config.Path(), "error", err)
	}

	settings, err := resolveSettings(cmd, f, cfg.Defaults)
	if err != nil {
		return err
	}
	opts := settings.Options

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)

	// When --log is set, tee events through a logging goroutine
	// that writes structured records before forwarding to the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if f.logFile != "" {
		presenterEvents = teeEvents(events)
	}

	presenter := ui.NewPresenter(ui.Config{
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Stats:     collector,
		IsTTY:     ui.IsTTY(os.Stderr.Fd()),
		Quiet:     f.quiet,
		Verbose:   f.verbose,
	})

	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenter.Run(presenterEvents)
	}()

	slog.Debug("starting copy",
		"src", src,
		"dst", dst,
		"reflink", opts.Reflink,
		"batch_size", opts.BatchSize,
		"extents", settings.Extents,
		"bwlimit", settings.BWLimit,
	)

	result := engine.CopyFile(ctx, engine.Config{
		Src:        src,
		Dst:        dst,
		Options:    opts,
		UseExtents: settings.Extents,
		BWLimit:    settings.BWLimit,
		Events:     events,
		Stats:      collector,
	})
	close(events)
	presenterWg.Wait()

	if summary := presenter.Summary(); summary != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), summary)
	}

	if result.Err != nil {
		slog.Error("copy failed", "src", src, "dst", result.Dst, "error", result.Err)
		return &exitError{code: 1}
	}
	slog.Debug("copy finished", "dst", result.Dst, "bytes", result.Bytes, "strategy", result.Strategy)
	return nil
}

// resolveSettings layers built-in defaults, the config file and explicitly
// set flags, in that order.
func resolveSettings(cmd *cobra.Command, f *copyFlags, defaults config.DefaultsConfig) (config.Settings, error) {
	s := config.DefaultSettings()
	if err := defaults.Apply(&s); err != nil {
		slog.Warn("ignoring config defaults", "error", err)
		s = config.DefaultSettings()
	}

	changed := cmd.Flags().Changed
	if changed("reflink") {
		s.Options.Reflink = f.reflink
	}
	if changed("no-perms") {
		s.Options.NoPerms = f.noPerms
	}
	if changed("fsync") {
		s.Options.Fsync = f.fsync
	}
	if changed("verify") {
		s.Options.Verify = f.verify
	}
	if changed("extents") {
		s.Extents = f.extents
	}
	if changed("batch-size") {
		n, err := config.ParseBatchSize(f.batchSize)
		if err != nil {
			return s, fmt.Errorf("invalid --batch-size: %w", err)
		}
		s.Options.BatchSize = n
	}
	if changed("bwlimit") {
		n, err := config.ParseSize(f.bwLimit)
		if err != nil {
			return s, fmt.Errorf("invalid --bwlimit: %w", err)
		}
		s.BWLimit = n
	}
	return s, s.Options.Validate()
}

func setupLogging(stderr io.Writer, verbose, quiet bool, logFile string) (func(), error) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	} else if !quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	closer := func() {}
	var logHandler slog.Handler = textHandler
	if logFile != "" {
		lf, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		closer = func() { lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return closer, nil
}

func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Strategy != "" {
				attrs = append(attrs, slog.String("strategy", ev.Strategy))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "sparsecp.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
