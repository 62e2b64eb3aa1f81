package screens_test

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/screens"
	"github.com/joe/syncdeck/internal/tui/shared"
)

func typeText(f screens.JobForm, text string) screens.JobForm {
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})

	return f
}

func formKeys(f screens.JobForm, keys ...tea.KeyMsg) (screens.JobForm, tea.Cmd) {
	var cmd tea.Cmd

	for _, k := range keys {
		f, cmd = f.Update(k)
	}

	return f, cmd
}

var (
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	right = tea.KeyMsg{Type: tea.KeyRight}
)

var _ = Describe("JobForm", func() {
	projects := []domain.Project{
		{ID: "default", Name: "General"},
		{ID: "p1", Name: "Photos"},
	}

	newJob := domain.SyncJob{ProjectID: "default", Options: domain.DefaultOptions()}

	It("refuses to save without paths", func() {
		f := screens.NewJobForm(newJob, projects, 100, 30)

		f, cmd := formKeys(f, enter)
		Expect(cmd).To(BeNil())
		Expect(f.Err()).To(ContainSubstring("source path is required"))
		Expect(f.View()).To(ContainSubstring("source path is required"))
	})

	It("builds a job from the entered fields", func() {
		f := screens.NewJobForm(newJob, projects, 100, 30)

		f = typeText(f, "/data/src")
		f, _ = formKeys(f, tab)
		f = typeText(f, "backup:/srv/dst")
		f, _ = formKeys(f, tab)
		f = typeText(f, "*.tmp, .git/")
		f, _ = formKeys(f, tab, right, tab, space, tab, tab, space)

		f, cmd := formKeys(f, enter)
		Expect(f.Err()).To(BeEmpty())
		Expect(cmd).ToNot(BeNil())

		saved, ok := cmd().(shared.SaveJobMsg)
		Expect(ok).To(BeTrue())
		Expect(saved.Job.Source).To(Equal("/data/src"))
		Expect(saved.Job.Destination).To(Equal("backup:/srv/dst"))
		Expect(saved.Job.ProjectID).To(Equal("p1"))
		Expect(saved.Job.Options.Excludes).To(Equal([]string{"*.tmp", ".git/"}))
		Expect(saved.Job.Options.Archive).To(BeFalse())
		Expect(saved.Job.Options.Verbose).To(BeTrue())
		Expect(saved.Job.Options.Compress).To(BeTrue())
	})

	It("rejects a malformed exclude pattern", func() {
		job := newJob
		job.Source, job.Destination = "/a", "/b"
		job.Options.Excludes = []string{"[abc"}

		f := screens.NewJobForm(job, projects, 100, 30)

		f, cmd := formKeys(f, enter)
		Expect(cmd).To(BeNil())
		Expect(f.Err()).To(ContainSubstring("malformed exclude pattern"))
	})

	It("keeps the id of an existing job", func() {
		job := domain.SyncJob{ID: "j9", ProjectID: "p1", Source: "/a", Destination: "/b"}

		f := screens.NewJobForm(job, projects, 100, 30)
		Expect(f.View()).To(ContainSubstring("Edit job j9"))
		Expect(f.Job().ID).To(Equal("j9"))
		Expect(f.Job().ProjectID).To(Equal("p1"))
	})

	It("closes on escape", func() {
		f := screens.NewJobForm(newJob, projects, 100, 30)

		_, cmd := formKeys(f, tea.KeyMsg{Type: tea.KeyEsc})
		Expect(cmd()).To(Equal(shared.CloseFormMsg{}))
	})

	It("fills a path chosen in the directory picker", func() {
		f := screens.NewJobForm(newJob, projects, 100, 30)

		f, _ = f.Update(shared.DirSelectedMsg{Field: screens.FieldDestination, Path: "/mnt/usb"})
		Expect(f.Job().Destination).To(Equal("/mnt/usb"))
		Expect(f.Picking()).To(BeFalse())

		f, _ = f.Update(shared.DirSelectedMsg{Field: screens.FieldSource, Path: ""})
		Expect(f.Job().Source).To(BeEmpty())
	})

	It("shows errors reported by the app", func() {
		f := screens.NewJobForm(newJob, projects, 100, 30)

		f, _ = f.Update(shared.ErrorMsg{Err: errors.New("job j1 is running")})
		Expect(f.Err()).To(Equal("job j1 is running"))
	})
})
