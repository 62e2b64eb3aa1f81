// Package config handles command-line parsing, the settings file and logging setup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/joe/syncdeck/internal/domain"
)

// Program is the binary name used in help and version output.
const Program = "syncdeck"

// ErrUsage marks a command line that parsed but makes no sense.
var ErrUsage = errors.New("invalid usage")

// Args is the full command line.
type Args struct {
	Config   string        `arg:"--config" help:"settings file (default ~/.config/syncdeck/config.yaml)"`
	DB       string        `arg:"--db" help:"job database path"`
	Rsync    string        `arg:"--rsync" help:"rsync binary to run"`
	LogLevel string        `arg:"--log-level" help:"debug|info|warn|error"`
	Settle   time.Duration `arg:"--settle" help:"pause between two-way legs and queued project jobs"`

	TUI     *TUICmd     `arg:"subcommand:tui" help:"interactive terminal UI (default)"`
	Project *ProjectCmd `arg:"subcommand:project" help:"manage projects"`
	Job     *JobCmd     `arg:"subcommand:job" help:"manage sync jobs"`
	Run     *RunCmd     `arg:"subcommand:run" help:"run a job or a whole project without the UI"`
	Check   *CheckCmd   `arg:"subcommand:check" help:"preflight a job's endpoints and exclude patterns"`
	Export  *ExportCmd  `arg:"subcommand:export" help:"write projects and jobs as YAML"`
	Import  *ImportCmd  `arg:"subcommand:import" help:"load projects and jobs from YAML"`
}

// Description returns the program description for go-arg
func (Args) Description() string {
	return "Run and monitor rsync jobs grouped into projects"
}

// Version returns the version string for go-arg
func (Args) Version() string {
	return Program + " 1.0.0"
}

// TUICmd starts the terminal UI.
type TUICmd struct{}

// ProjectCmd groups the project subcommands.
type ProjectCmd struct {
	Add    *ProjectAddCmd    `arg:"subcommand:add" help:"create a project"`
	List   *ProjectListCmd   `arg:"subcommand:list" help:"list projects"`
	Rm     *ProjectRmCmd     `arg:"subcommand:rm" help:"delete a project and its jobs"`
	Rename *ProjectRenameCmd `arg:"subcommand:rename" help:"rename or recolor a project"`
}

// ProjectAddCmd creates a project.
type ProjectAddCmd struct {
	Name  string `arg:"positional,required"`
	Color string `arg:"--color" help:"hex color, e.g. #f472b6"`
}

// ProjectListCmd lists projects.
type ProjectListCmd struct{}

// ProjectRmCmd deletes a project.
type ProjectRmCmd struct {
	ID string `arg:"positional,required"`
}

// ProjectRenameCmd renames a project.
type ProjectRenameCmd struct {
	ID    string `arg:"positional,required"`
	Name  string `arg:"positional,required"`
	Color string `arg:"--color"`
}

// JobCmd groups the job subcommands.
type JobCmd struct {
	Add  *JobAddCmd  `arg:"subcommand:add" help:"create a job"`
	Edit *JobEditCmd `arg:"subcommand:edit" help:"change a job"`
	List *JobListCmd `arg:"subcommand:list" help:"list jobs"`
	Rm   *JobRmCmd   `arg:"subcommand:rm" help:"delete a job"`
	Find *JobFindCmd `arg:"subcommand:find" help:"fuzzy search jobs by source and destination"`
}

// JobAddCmd creates a job.
type JobAddCmd struct {
	Project  string   `arg:"-p,--project" default:"default" help:"owning project id"`
	Source   string   `arg:"-s,--source,required"`
	Dest     string   `arg:"-d,--dest,required"`
	Archive  bool     `arg:"--archive" default:"true" help:"-a"`
	Verbose  bool     `arg:"--verbose" default:"true" help:"-v"`
	Compress bool     `arg:"--compress" help:"-z"`
	Delete   bool     `arg:"--delete" help:"--delete"`
	DryRun   bool     `arg:"--dry-run" help:"--dry-run"`
	Update   bool     `arg:"--update" help:"-u"`
	TwoWay   bool     `arg:"--two-way" help:"sync back from destination after the forward pass"`
	Exclude  []string `arg:"-x,--exclude,separate" help:"exclude pattern (repeatable)"`
}

// Job builds the job described by the flags.
func (c *JobAddCmd) Job() domain.SyncJob {
	return domain.SyncJob{
		ProjectID:   c.Project,
		Source:      c.Source,
		Destination: c.Dest,
		Options: domain.SyncOptions{
			Archive:  c.Archive,
			Verbose:  c.Verbose,
			Compress: c.Compress,
			Delete:   c.Delete,
			DryRun:   c.DryRun,
			Update:   c.Update,
			TwoWay:   c.TwoWay,
			Excludes: c.Exclude,
		},
	}
}

// JobEditCmd changes a job. Unset flags leave the field alone.
type JobEditCmd struct {
	ID            string   `arg:"positional,required"`
	Project       string   `arg:"-p,--project"`
	Source        string   `arg:"-s,--source"`
	Dest          string   `arg:"-d,--dest"`
	Archive       *bool    `arg:"--archive"`
	Verbose       *bool    `arg:"--verbose"`
	Compress      *bool    `arg:"--compress"`
	Delete        *bool    `arg:"--delete"`
	DryRun        *bool    `arg:"--dry-run"`
	Update        *bool    `arg:"--update"`
	TwoWay        *bool    `arg:"--two-way"`
	Exclude       []string `arg:"-x,--exclude,separate" help:"add an exclude pattern"`
	ClearExcludes bool     `arg:"--clear-excludes" help:"drop existing patterns before adding"`
}

// Apply returns job with the flagged changes applied.
func (c *JobEditCmd) Apply(job domain.SyncJob) domain.SyncJob {
	setString(&job.ProjectID, c.Project)
	setString(&job.Source, c.Source)
	setString(&job.Destination, c.Dest)

	opts := &job.Options
	setBool(&opts.Archive, c.Archive)
	setBool(&opts.Verbose, c.Verbose)
	setBool(&opts.Compress, c.Compress)
	setBool(&opts.Delete, c.Delete)
	setBool(&opts.DryRun, c.DryRun)
	setBool(&opts.Update, c.Update)
	setBool(&opts.TwoWay, c.TwoWay)

	if c.ClearExcludes {
		opts.Excludes = nil
	}

	opts.Excludes = append(opts.Excludes, c.Exclude...)

	return job
}

// JobListCmd lists jobs.
type JobListCmd struct {
	Project string `arg:"-p,--project" help:"only jobs of this project"`
}

// JobRmCmd deletes a job.
type JobRmCmd struct {
	ID string `arg:"positional,required"`
}

// JobFindCmd searches jobs.
type JobFindCmd struct {
	Query string `arg:"positional,required"`
}

// RunCmd runs one job or one project headless.
type RunCmd struct {
	Job     string `arg:"-j,--job" help:"job id"`
	Project string `arg:"-p,--project" help:"project id"`
}

// CheckCmd preflights a job.
type CheckCmd struct {
	Job string `arg:"-j,--job,required"`
}

// ExportCmd writes the store as YAML.
type ExportCmd struct {
	Output string `arg:"-o,--output" help:"file to write (default stdout)"`
}

// ImportCmd reads a YAML export.
type ImportCmd struct {
	Input string `arg:"positional,required"`
}

// ParseArgs parses argv (without the program name). The returned parser
// renders help and usage for errors.
func ParseArgs(argv []string) (*Args, *arg.Parser, error) {
	args := &Args{}

	parser, err := arg.NewParser(arg.Config{Program: Program}, args)
	if err != nil {
		return nil, nil, fmt.Errorf("building argument parser: %w", err)
	}

	if err := parser.Parse(argv); err != nil {
		return args, parser, err
	}

	if err := args.PostProcess(); err != nil {
		return args, parser, err
	}

	return args, parser, nil
}

// PostProcess applies defaults that depend on more than one flag and
// rejects combinations go-arg cannot express.
func (a *Args) PostProcess() error {
	if a.noSubcommand() {
		a.TUI = &TUICmd{}
	}

	if a.Settle < 0 {
		return fmt.Errorf("%w: --settle must not be negative", ErrUsage)
	}

	if a.Run != nil && (a.Run.Job == "") == (a.Run.Project == "") {
		return fmt.Errorf("%w: run needs exactly one of --job or --project", ErrUsage)
	}

	if a.Project != nil && a.Project.Add == nil && a.Project.List == nil && a.Project.Rm == nil && a.Project.Rename == nil {
		a.Project.List = &ProjectListCmd{}
	}

	if a.Job != nil && a.Job.Add == nil && a.Job.Edit == nil && a.Job.List == nil && a.Job.Rm == nil && a.Job.Find == nil {
		a.Job.List = &JobListCmd{}
	}

	return nil
}

// Interactive reports whether the terminal UI was requested.
func (a *Args) Interactive() bool {
	return a.TUI != nil
}

func (a *Args) noSubcommand() bool {
	return a.TUI == nil && a.Project == nil && a.Job == nil && a.Run == nil &&
		a.Check == nil && a.Export == nil && a.Import == nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
