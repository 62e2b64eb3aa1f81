// Package tui is the interactive terminal front end: a dashboard of projects
// and jobs that starts and stops runs and follows their progress.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/tui/screens"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// Catalog is the job store as the UI uses it.
type Catalog interface {
	ListProjects() ([]domain.Project, error)
	ListJobs() ([]domain.SyncJob, error)
	AddProject(name, color string) (domain.Project, error)
	ToggleCollapsed(id string) (bool, error)
	DeleteProject(id string) (int, error)
	AddJob(job domain.SyncJob) (domain.SyncJob, error)
	UpdateJob(job domain.SyncJob) error
	DeleteJob(id string) error
}

// Runner starts and stops runs.
type Runner interface {
	RunJob(ctx context.Context, jobID string) error
	RunProject(ctx context.Context, projectID string) error
	Stop(ctx context.Context) error
}

// projectPalette colors new projects in turn.
var projectPalette = []string{"#60a5fa", "#f472b6", "#34d399", "#fbbf24", "#a78bfa", "#f87171"}

// AppModel is the top-level model: the dashboard, with the job editor shown
// over it while open.
type AppModel struct {
	ctx     context.Context
	catalog Catalog
	runner  Runner
	bridge  *shared.EventBridge
	logger  *slog.Logger

	dashboard screens.Dashboard
	form      *screens.JobForm

	width  int
	height int
}

// Option configures an AppModel.
type Option func(*AppModel)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *AppModel) { a.logger = logger }
}

// WithDashboard replaces the dashboard, e.g. to fix its clock.
func WithDashboard(dashboard screens.Dashboard) Option {
	return func(a *AppModel) { a.dashboard = dashboard }
}

// NewAppModel creates the app. bridge must be subscribed to the sequencer.
func NewAppModel(ctx context.Context, catalog Catalog, runner Runner, bridge *shared.EventBridge, opts ...Option) AppModel {
	app := AppModel{
		ctx:       ctx,
		catalog:   catalog,
		runner:    runner,
		bridge:    bridge,
		logger:    slog.New(slog.DiscardHandler),
		dashboard: screens.NewDashboard(),
	}

	for _, opt := range opts {
		opt(&app)
	}

	return app
}

// Run shows the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, app AppModel) error {
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}

	return nil
}

// Dashboard returns the dashboard screen (for testing)
func (a AppModel) Dashboard() screens.Dashboard {
	return a.dashboard
}

// Form returns the open job editor, or nil.
func (a AppModel) Form() *screens.JobForm {
	return a.form
}

// Init implements tea.Model
func (a AppModel) Init() tea.Cmd {
	return tea.Batch(a.loadCatalog(), a.bridge.ListenCmd())
}

// Update implements tea.Model
func (a AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height

		var formCmd, dashCmd tea.Cmd
		if a.form != nil {
			form, cmd := a.form.Update(msg)
			a.form, formCmd = &form, cmd
		}

		a.dashboard, dashCmd = a.dashboard.Update(msg)

		return a, tea.Batch(formCmd, dashCmd)
	case jobSavedMsg:
		a.form = nil
		a.dashboard, _ = a.dashboard.Update(msg.catalog)

		return a, nil
	case tea.KeyMsg:
		if msg.String() == shared.KeyCtrlC {
			return a, tea.Quit
		}
	case shared.EventMsg:
		return a.handleEvent(msg)
	case shared.OpenJobFormMsg:
		form := screens.NewJobForm(msg.Job, a.dashboard.Projects(), a.width, a.height)
		a.form = &form

		return a, form.Init()
	case shared.CloseFormMsg:
		a.form = nil

		return a, nil
	case shared.SaveJobMsg:
		return a, a.saveJob(msg.Job)
	case shared.RunJobMsg:
		return a, a.call("run job", func() error { return a.runner.RunJob(a.ctx, msg.JobID) })
	case shared.RunProjectMsg:
		return a, a.call("run project", func() error { return a.runner.RunProject(a.ctx, msg.ProjectID) })
	case shared.StopMsg:
		return a, a.call("stop", func() error { return a.runner.Stop(a.ctx) })
	case shared.DeleteJobMsg:
		return a, a.mutate("delete job", func() error { return a.catalog.DeleteJob(msg.JobID) })
	case shared.DeleteProjectMsg:
		return a, a.mutate("delete project", func() error {
			_, err := a.catalog.DeleteProject(msg.ProjectID)

			return err
		})
	case shared.ToggleProjectMsg:
		return a, a.mutate("fold project", func() error {
			_, err := a.catalog.ToggleCollapsed(msg.ProjectID)

			return err
		})
	case shared.AddProjectMsg:
		color := projectPalette[len(a.dashboard.Projects())%len(projectPalette)]

		return a, a.mutate("add project", func() error {
			_, err := a.catalog.AddProject(msg.Name, color)

			return err
		})
	}

	if a.form != nil {
		if _, isLoad := msg.(shared.CatalogLoadedMsg); !isLoad {
			form, cmd := a.form.Update(msg)
			a.form = &form

			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.Update(msg)

	return a, cmd
}

// View implements tea.Model
func (a AppModel) View() string {
	if a.form != nil {
		return a.form.View()
	}

	return a.dashboard.View()
}

func (a AppModel) handleEvent(msg shared.EventMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.Update(msg)

	cmds := []tea.Cmd{cmd, a.bridge.ListenCmd()}

	switch msg.Event.(type) {
	case events.JobFinished, events.RunStopped:
		// The store holds the authoritative status and last-sync time.
		cmds = append(cmds, a.loadCatalog())
	}

	return a, tea.Batch(cmds...)
}

func (a AppModel) loadCatalog() tea.Cmd {
	catalog := a.catalog

	return func() tea.Msg {
		projects, err := catalog.ListProjects()
		if err != nil {
			return shared.ErrorMsg{Err: fmt.Errorf("loading projects: %w", err)}
		}

		jobs, err := catalog.ListJobs()
		if err != nil {
			return shared.ErrorMsg{Err: fmt.Errorf("loading jobs: %w", err)}
		}

		return shared.CatalogLoadedMsg{Projects: projects, Jobs: jobs}
	}
}

// call runs a sequencer command off the UI goroutine.
func (a AppModel) call(what string, fn func() error) tea.Cmd {
	logger := a.logger

	return func() tea.Msg {
		if err := fn(); err != nil {
			logger.Warn("command rejected", "command", what, "error", err)

			return shared.ErrorMsg{Err: fmt.Errorf("%s: %w", what, err)}
		}

		return nil
	}
}

// mutate changes the store and then reloads it.
func (a AppModel) mutate(what string, fn func() error) tea.Cmd {
	load := a.loadCatalog()

	return func() tea.Msg {
		if err := fn(); err != nil {
			return shared.ErrorMsg{Err: fmt.Errorf("%s: %w", what, err)}
		}

		return load()
	}
}

func (a AppModel) saveJob(job domain.SyncJob) tea.Cmd {
	catalog := a.catalog
	load := a.loadCatalog()

	return func() tea.Msg {
		var err error
		if job.ID == "" {
			_, err = catalog.AddJob(job)
		} else {
			err = catalog.UpdateJob(job)
		}

		if err != nil {
			return shared.ErrorMsg{Err: fmt.Errorf("saving job: %w", err)}
		}

		loaded := load()
		if catalogMsg, ok := loaded.(shared.CatalogLoadedMsg); ok {
			return jobSavedMsg{catalog: catalogMsg}
		}

		return loaded
	}
}

// jobSavedMsg closes the editor and refreshes the tree in one step.
type jobSavedMsg struct {
	catalog shared.CatalogLoadedMsg
}
