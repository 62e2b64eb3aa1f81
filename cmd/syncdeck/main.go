// Package main is the entry point for the syncdeck application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/syncdeck/internal/cli"
	"github.com/joe/syncdeck/internal/config"
	"github.com/joe/syncdeck/internal/preflight"
	"github.com/joe/syncdeck/internal/rsync"
	"github.com/joe/syncdeck/internal/store"
	"github.com/joe/syncdeck/internal/syncengine"
	"github.com/joe/syncdeck/internal/tui"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitStopped = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, parser, err := config.ParseArgs(argv)
	if err != nil {
		return usage(parser, args, err)
	}

	settings, err := config.LoadSettings(args.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitFailure
	}

	settings.Merge(args)

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitUsage
	}

	if args.Interactive() && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: the terminal UI needs a terminal; see --help for headless commands")

		return exitUsage
	}

	// Command output goes to stdout, so console logging is opt-in, and the
	// terminal UI never logs to the screen.
	var console io.Writer
	if !args.Interactive() && args.LogLevel != "" {
		console = os.Stderr
	}

	logger, closeLog, err := config.SetupLogger(settings.Logging, console)
	if err != nil && !args.Interactive() {
		fmt.Fprintf(os.Stderr, "Warning: logging to file disabled: %v\n", err)
	}

	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = execute(ctx, args, settings, logger)

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, cli.ErrRunStopped), errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "stopped")

		return exitStopped
	default:
		cli.PrintError(os.Stderr, err)
		logger.Error("command failed", "error", err)

		return exitFailure
	}
}

func usage(parser *arg.Parser, args *config.Args, err error) int {
	switch {
	case parser == nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitFailure
	case errors.Is(err, arg.ErrHelp):
		_ = parser.WriteHelpForSubcommand(os.Stdout, parser.SubcommandNames()...)

		return exitOK
	case errors.Is(err, arg.ErrVersion):
		fmt.Println(args.Version())

		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = parser.WriteUsageForSubcommand(os.Stderr, parser.SubcommandNames()...)

		return exitUsage
	}
}

func execute(ctx context.Context, args *config.Args, settings *config.Settings, logger *slog.Logger) error {
	st, err := store.Open(settings.Store.Path)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	if seeded, err := st.EnsureDefaultProject(); err != nil {
		return err
	} else if seeded {
		logger.Info("default project created", "store", st.Path())
	}

	if reset, err := st.ResetRunning(); err != nil {
		return err
	} else if reset > 0 {
		logger.Warn("jobs left running by a previous session reset", "count", reset)
	}

	if !args.Interactive() && args.Run == nil {
		commands := cli.New(st,
			cli.WithChecker(preflight.NewChecker(preflight.WithCheckerLogger(logger))),
			cli.WithLogger(logger))

		return commands.Execute(ctx, args)
	}

	engineCtx, cancelEngine := context.WithCancel(ctx)
	seq := newSequencer(engineCtx, st, settings, logger)

	engineDone := make(chan struct{})

	go func() {
		defer close(engineDone)

		if err := seq.Run(engineCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sequencer stopped", "error", err)
		}
	}()

	// The sequencer stops any active rsync on its way out.
	defer func() {
		cancelEngine()
		<-engineDone
	}()

	if !args.Interactive() {
		commands := cli.New(st,
			cli.WithRunner(seq),
			cli.WithLiveProgress(term.IsTerminal(int(os.Stdout.Fd()))),
			cli.WithLogger(logger))

		return commands.Execute(ctx, args)
	}

	bridge := shared.NewEventBridge()
	seq.Subscribe(bridge)

	defer func() {
		bridge.Close()

		if dropped := bridge.Dropped(); dropped > 0 {
			logger.Warn("ui event buffer overflowed", "dropped", dropped)
		}
	}()

	app := tui.NewAppModel(ctx, st, seq, bridge, tui.WithLogger(logger))

	return tui.Run(ctx, app)
}

// newSequencer wires the sequencer and the rsync controller to each other.
func newSequencer(ctx context.Context, st *store.Store, settings *config.Settings, logger *slog.Logger) *syncengine.Sequencer {
	dialect, fixed, _ := settings.Dialect()
	if !fixed {
		dialect = rsync.DetectDialect(ctx, settings.Rsync.Binary)
	}

	logger.Info("rsync configured",
		"binary", settings.Rsync.Binary,
		"version", rsync.VersionLine(ctx, settings.Rsync.Binary),
		"dialect", dialect.String(),
		"probed", !fixed)

	seq := syncengine.NewSequencer(st,
		syncengine.WithSettleDelay(settings.Run.SettleDelay),
		syncengine.WithLogger(logger))

	controller := rsync.NewController(settings.Rsync.Binary, dialect, seq, rsync.WithLogger(logger))
	seq.SetController(controller)

	return seq
}
