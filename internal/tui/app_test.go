package tui_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/store"
	"github.com/joe/syncdeck/internal/tui"
	"github.com/joe/syncdeck/internal/tui/shared"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *fakeRunner) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)

	return r.err
}

func (r *fakeRunner) RunJob(_ context.Context, jobID string) error {
	return r.record("job " + jobID)
}

func (r *fakeRunner) RunProject(_ context.Context, projectID string) error {
	return r.record("project " + projectID)
}

func (r *fakeRunner) Stop(context.Context) error {
	return r.record("stop")
}

func newStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "syncdeck.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.EnsureDefaultProject(); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	return s
}

// step sends msg and feeds the message its command produces back into the
// model, the way the bubbletea runtime would.
func step(t *testing.T, model tea.Model, msg tea.Msg) (tui.AppModel, tea.Msg) {
	t.Helper()

	model, cmd := model.Update(msg)
	if cmd == nil {
		return model.(tui.AppModel), nil
	}

	result := cmd()
	if result != nil {
		model, _ = model.Update(result)
	}

	return model.(tui.AppModel), result
}

func loaded(t *testing.T, s *store.Store) shared.CatalogLoadedMsg {
	t.Helper()

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}

	jobs, err := s.ListJobs()
	if err != nil {
		t.Fatal(err)
	}

	return shared.CatalogLoadedMsg{Projects: projects, Jobs: jobs}
}

func newApp(t *testing.T, s *store.Store, runner tui.Runner) tui.AppModel {
	t.Helper()

	app := tui.NewAppModel(t.Context(), s, runner, shared.NewEventBridge())
	app, _ = step(t, app, tea.WindowSizeMsg{Width: 120, Height: 40})
	app, _ = step(t, app, loaded(t, s))

	return app
}

func TestApp_RunIntentsReachTheRunner(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	runner := &fakeRunner{}
	app := newApp(t, newStore(t), runner)

	_, msg := step(t, app, shared.RunJobMsg{JobID: "j1"})
	g.Expect(msg).To(BeNil())

	_, _ = step(t, app, shared.RunProjectMsg{ProjectID: "default"})
	_, _ = step(t, app, shared.StopMsg{})

	g.Expect(runner.calls).To(Equal([]string{"job j1", "project default", "stop"}))
}

func TestApp_RejectedRunShowsError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	runner := &fakeRunner{err: errors.New("a run is already in progress")}
	app := newApp(t, newStore(t), runner)

	app, msg := step(t, app, shared.RunJobMsg{JobID: "j1"})
	g.Expect(msg).To(BeAssignableToTypeOf(shared.ErrorMsg{}))
	g.Expect(app.Dashboard().Notice()).To(ContainSubstring("run job: a run is already in progress"))
}

func TestApp_SavingAJobClosesTheEditor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	s := newStore(t)
	app := newApp(t, s, &fakeRunner{})

	job := domain.SyncJob{ProjectID: domain.DefaultProjectID, Source: "/data", Destination: "/backup", Options: domain.DefaultOptions()}

	app, _ = step(t, app, shared.OpenJobFormMsg{Job: job})
	g.Expect(app.Form()).ToNot(BeNil())
	g.Expect(app.View()).To(ContainSubstring("New job"))

	app, _ = step(t, app, shared.SaveJobMsg{Job: job})
	g.Expect(app.Form()).To(BeNil())

	jobs, err := s.ListJobs()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(jobs).To(HaveLen(1))

	rows := app.Dashboard().Rows()
	g.Expect(rows).To(HaveLen(2))
	g.Expect(rows[1].Job.Source).To(Equal("/data"))
}

func TestApp_FailedSaveKeepsTheEditorOpen(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	app := newApp(t, newStore(t), &fakeRunner{})

	job := domain.SyncJob{ID: "missing", ProjectID: domain.DefaultProjectID, Source: "/a", Destination: "/b"}

	app, _ = step(t, app, shared.OpenJobFormMsg{Job: job})
	app, msg := step(t, app, shared.SaveJobMsg{Job: job})

	g.Expect(msg).To(BeAssignableToTypeOf(shared.ErrorMsg{}))
	g.Expect(app.Form()).ToNot(BeNil())
	g.Expect(app.Form().Err()).To(ContainSubstring("saving job"))
}

func TestApp_CancelClosesTheEditor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	app := newApp(t, newStore(t), &fakeRunner{})

	app, _ = step(t, app, shared.OpenJobFormMsg{Job: domain.SyncJob{ProjectID: domain.DefaultProjectID}})
	app, _ = step(t, app, tea.KeyMsg{Type: tea.KeyEsc})

	g.Expect(app.Form()).To(BeNil())
}

func TestApp_ProjectMutationsReloadTheTree(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	s := newStore(t)
	app := newApp(t, s, &fakeRunner{})

	app, _ = step(t, app, shared.AddProjectMsg{Name: "Photos"})

	projects := app.Dashboard().Projects()
	g.Expect(projects).To(HaveLen(2))

	var photos domain.Project

	for _, p := range projects {
		if p.Name == "Photos" {
			photos = p
		}
	}

	g.Expect(photos.ID).ToNot(BeEmpty())
	g.Expect(photos.Color).To(Equal("#f472b6"))

	app, _ = step(t, app, shared.ToggleProjectMsg{ProjectID: photos.ID})

	folded, err := s.GetProject(photos.ID)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(folded.Collapsed).To(BeTrue())

	app, _ = step(t, app, shared.DeleteProjectMsg{ProjectID: photos.ID})
	g.Expect(app.Dashboard().Projects()).To(HaveLen(1))
}

func TestApp_DeletingAJobReloadsTheTree(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	s := newStore(t)

	job, err := s.AddJob(domain.SyncJob{ProjectID: domain.DefaultProjectID, Source: "/a", Destination: "/b"})
	g.Expect(err).ToNot(HaveOccurred())

	app := newApp(t, s, &fakeRunner{})
	g.Expect(app.Dashboard().Rows()).To(HaveLen(2))

	app, _ = step(t, app, shared.DeleteJobMsg{JobID: job.ID})
	g.Expect(app.Dashboard().Rows()).To(HaveLen(1))
}

func TestApp_EventsReachTheDashboard(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	s := newStore(t)

	job, err := s.AddJob(domain.SyncJob{ProjectID: domain.DefaultProjectID, Source: "/a", Destination: "/b"})
	g.Expect(err).ToNot(HaveOccurred())

	app := newApp(t, s, &fakeRunner{})

	model, cmd := app.Update(shared.EventMsg{Event: events.JobStarted{JobID: job.ID, RunID: 1, Leg: events.LegForward}})
	g.Expect(cmd).ToNot(BeNil())

	app = model.(tui.AppModel)
	g.Expect(app.Dashboard().Rows()[1].Job.Status).To(Equal(domain.StatusRunning))
	g.Expect(app.Dashboard().RunView().Label).To(Equal("/a → /b"))
}

func TestApp_CtrlCQuits(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	app := newApp(t, newStore(t), &fakeRunner{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	g.Expect(cmd()).To(Equal(tea.QuitMsg{}))
}
