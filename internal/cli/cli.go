// Package cli implements syncdeck's non-interactive commands: project and
// job management, headless runs, preflight checks and YAML export/import.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joe/syncdeck/internal/config"
	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/preflight"
	"github.com/joe/syncdeck/internal/store"
	actionable "github.com/joe/syncdeck/pkg/errors"
)

// Exported variables.
var (
	// ErrRunFailed is returned by a headless run in which a job failed.
	ErrRunFailed = errors.New("run failed")
	// ErrCheckFailed is returned when preflight finds problems.
	ErrCheckFailed = errors.New("preflight found problems")
	// ErrUnknownCommand is returned for a command line with no handler.
	ErrUnknownCommand = errors.New("unknown command")
)

// Catalog is the job store as the commands use it.
type Catalog interface {
	ListProjects() ([]domain.Project, error)
	GetProject(id string) (domain.Project, error)
	AddProject(name, color string) (domain.Project, error)
	UpdateProject(project domain.Project) error
	DeleteProject(id string) (int, error)
	ListJobs() ([]domain.SyncJob, error)
	ListProjectJobs(projectID string) ([]domain.SyncJob, error)
	GetJob(id string) (domain.SyncJob, error)
	AddJob(job domain.SyncJob) (domain.SyncJob, error)
	UpdateJob(job domain.SyncJob) error
	DeleteJob(id string) error
	Export(w io.Writer) error
	Import(r io.Reader) (store.ImportResult, error)
}

// Runner starts runs and publishes their events.
type Runner interface {
	RunJob(ctx context.Context, jobID string) error
	RunProject(ctx context.Context, projectID string) error
	Subscribe(subscriber events.EventEmitter)
}

// Checker preflights a job.
type Checker interface {
	Check(ctx context.Context, job domain.SyncJob) (preflight.Report, error)
}

// Commands executes parsed command lines.
type Commands struct {
	catalog Catalog
	runner  Runner
	checker Checker
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
	now     func() time.Time
	// live redraws one progress line in place instead of printing lines.
	live bool
}

// Option configures Commands.
type Option func(*Commands)

// WithRunner sets the runner used by the run command.
func WithRunner(runner Runner) Option {
	return func(c *Commands) { c.runner = runner }
}

// WithChecker sets the preflight checker used by the check command.
func WithChecker(checker Checker) Option {
	return func(c *Commands) { c.checker = checker }
}

// WithOutput sets where results and diagnostics are written.
func WithOutput(out, errOut io.Writer) Option {
	return func(c *Commands) {
		c.out = out
		c.errOut = errOut
	}
}

// WithLiveProgress redraws run progress on one terminal line.
func WithLiveProgress(live bool) Option {
	return func(c *Commands) { c.live = live }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Commands) { c.logger = logger }
}

// WithClock replaces time.Now for last-sync display.
func WithClock(now func() time.Time) Option {
	return func(c *Commands) { c.now = now }
}

// New creates the command set over catalog.
func New(catalog Catalog, opts ...Option) *Commands {
	c := &Commands{
		catalog: catalog,
		out:     os.Stdout,
		errOut:  os.Stderr,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute runs the subcommand selected in args.
func (c *Commands) Execute(ctx context.Context, args *config.Args) error {
	switch {
	case args.Project != nil:
		return c.project(args.Project)
	case args.Job != nil:
		return c.job(args.Job)
	case args.Run != nil:
		return c.Run(ctx, args.Run)
	case args.Check != nil:
		return c.Check(ctx, args.Check.Job)
	case args.Export != nil:
		return c.Export(args.Export.Output)
	case args.Import != nil:
		return c.Import(args.Import.Input)
	default:
		return ErrUnknownCommand
	}
}

// PrintError writes err and any suggestions attached to it.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	if suggestions := actionable.FormatSuggestions(err); suggestions != "" {
		fmt.Fprint(w, suggestions)
	}
}

func (c *Commands) printTable(headers []string, rows [][]string) {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			return cell
		})

	fmt.Fprintln(c.out, t.Render())
}
