// Package rsync runs the rsync binary: it probes its capabilities, builds
// argument vectors from job options, and supervises the single process
// syncdeck allows at a time.
package rsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/progress"
	pkgerrors "github.com/joe/syncdeck/pkg/errors"
)

// ReadBufferSize is the size of one output chunk read from rsync.
const ReadBufferSize = 32 * 1024

// Controller owns the run slot: at most one rsync process at a time.
//
// Start never emits events synchronously; all events come from the
// goroutines supervising the process, in this order for one run:
// OutputLine/ProgressUpdated/ErrorLine (stdout events in read order), then
// exactly one RunComplete after both streams are drained.
type Controller struct {
	launcher Launcher
	binary   string
	dialect  progress.Dialect
	emitter  events.EventEmitter
	enricher pkgerrors.Enricher
	logger   *slog.Logger

	mu      sync.Mutex
	current *activeRun
	lastID  events.RunID
}

type activeRun struct {
	id   events.RunID
	proc Process
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) ControllerOption {
	return func(c *Controller) { c.launcher = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller for binary using the given dialect.
// Events are delivered to emitter.
func NewController(binary string, dialect progress.Dialect, emitter events.EventEmitter, opts ...ControllerOption) *Controller {
	c := &Controller{
		launcher: ExecLauncher{},
		binary:   binary,
		dialect:  dialect,
		emitter:  emitter,
		enricher: pkgerrors.NewEnricher(),
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Dialect returns the output dialect runs are parsed with.
func (c *Controller) Dialect() progress.Dialect {
	return c.dialect
}

// Running reports whether the run slot is held.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current != nil
}

// Start launches rsync for req.
func (c *Controller) Start(ctx context.Context, req Request) (events.RunID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return 0, ErrAlreadyRunning
	}

	args := BuildArgs(req, c.dialect)

	proc, err := c.launcher.Launch(ctx, c.binary, args)
	if err != nil {
		c.logger.Error("rsync spawn failed", "binary", c.binary, "error", err)

		return 0, fmt.Errorf("%w: %w", ErrSpawnFailure, c.enricher.Enrich(err, req.Source))
	}

	c.lastID++
	run := &activeRun{id: c.lastID, proc: proc}
	c.current = run

	c.logger.Info("rsync started",
		"run_id", run.id,
		"dialect", c.dialect.String(),
		"args", strings.Join(args, " "))

	go c.supervise(run, req.Source)

	return run.id, nil
}

// Stop signals the running process and frees the slot at once, without
// waiting for the process to exit. Events the process still produces carry
// the old RunID.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNotRunning
	}

	if err := c.current.proc.Terminate(); err != nil {
		c.logger.Warn("rsync terminate failed", "run_id", c.current.id, "error", err)
	}

	c.logger.Info("rsync stopped", "run_id", c.current.id)
	c.current = nil

	return nil
}

func (c *Controller) supervise(run *activeRun, source string) {
	var (
		wg         sync.WaitGroup
		lastStderr string
	)

	wg.Add(2) //nolint:mnd // stdout and stderr

	go func() {
		defer wg.Done()

		parser := progress.NewParser(c.dialect)
		c.drain(run.proc.Stdout(), func(chunk string) {
			c.emitter.Emit(events.OutputLine{RunID: run.id, Text: chunk})

			if reading, ok := parser.Parse(chunk); ok {
				c.emitter.Emit(events.ProgressUpdated{RunID: run.id, Reading: reading})
			}
		})
	}()

	go func() {
		defer wg.Done()

		c.drain(run.proc.Stderr(), func(chunk string) {
			if line := lastLine(chunk); line != "" {
				lastStderr = line
			}

			c.emitter.Emit(events.ErrorLine{RunID: run.id, Text: chunk})
		})
	}()

	wg.Wait()

	code, waitErr := run.proc.Wait()

	c.mu.Lock()
	if c.current == run {
		c.current = nil
	}
	c.mu.Unlock()

	var runErr error

	switch {
	case waitErr != nil:
		runErr = c.enricher.Enrich(fmt.Errorf("%w: %w", ErrProcessFailed, waitErr), source)
	case code != 0:
		runErr = c.enricher.Enrich(newExitError(code, lastStderr), source)
	}

	c.logger.Info("rsync exited", "run_id", run.id, "exit_code", code, "error", runErr)

	c.emitter.Emit(events.RunComplete{RunID: run.id, ExitCode: code, Err: runErr})
}

func (c *Controller) drain(r io.Reader, handle func(string)) {
	buf := make([]byte, ReadBufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			handle(string(buf[:n]))
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("rsync stream closed", "error", err)
			}

			return
		}
	}
}

func lastLine(chunk string) string {
	lines := strings.FieldsFunc(chunk, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}

	return ""
}
