package screens_test

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/tui/screens"
	"github.com/joe/syncdeck/internal/tui/shared"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press sends keys in order and returns the message produced by the last
// key's command, or nil.
func press(d screens.Dashboard, keys ...string) (screens.Dashboard, tea.Msg) {
	var cmd tea.Cmd

	for _, k := range keys {
		d, cmd = d.Update(keyPress(k))
	}

	if cmd == nil {
		return d, nil
	}

	return d, cmd()
}

func send(d screens.Dashboard, evts ...events.Event) screens.Dashboard {
	for _, e := range evts {
		d, _ = d.Update(shared.EventMsg{Event: e})
	}

	return d
}

func catalog() shared.CatalogLoadedMsg {
	return shared.CatalogLoadedMsg{
		Projects: []domain.Project{
			{ID: "p1", Name: "Photos", Color: "#f472b6"},
			{ID: "p2", Name: "Code", Collapsed: true},
		},
		Jobs: []domain.SyncJob{
			{ID: "j1", ProjectID: "p1", Source: "/home/me/photos", Destination: "nas:/backup/photos", Status: domain.StatusIdle},
			{ID: "j2", ProjectID: "p1", Source: "/home/me/raw", Destination: "/mnt/usb/raw", Status: domain.StatusCompleted},
			{ID: "j3", ProjectID: "p2", Source: "/home/me/src", Destination: "/mnt/usb/src"},
		},
	}
}

var _ = Describe("Dashboard", func() {
	var d screens.Dashboard

	BeforeEach(func() {
		d = screens.NewDashboard(screens.WithClock(func() time.Time { return now }))
		d, _ = d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
		d, _ = d.Update(catalog())
	})

	Describe("job tree", func() {
		It("lists projects with their jobs and hides folded ones", func() {
			rows := d.Rows()
			Expect(rows).To(HaveLen(4))

			Expect(rows[0].IsProject()).To(BeTrue())
			Expect(rows[0].Project.ID).To(Equal("p1"))
			Expect(rows[0].JobCount).To(Equal(2))
			Expect(rows[1].Job.ID).To(Equal("j1"))
			Expect(rows[2].Job.ID).To(Equal("j2"))
			Expect(rows[3].Project.ID).To(Equal("p2"))
			Expect(rows[3].JobCount).To(Equal(1))
		})

		It("moves the cursor within bounds", func() {
			d, _ = press(d, "k")
			Expect(d.Cursor()).To(Equal(0))

			d, _ = press(d, "j", "j", "j", "j", "j")
			Expect(d.Cursor()).To(Equal(3))

			d, _ = press(d, "g")
			Expect(d.Cursor()).To(Equal(0))
		})

		It("keeps the selection across reloads", func() {
			d, _ = press(d, "j", "j")

			reload := catalog()
			reload.Jobs = append([]domain.SyncJob{{ID: "j0", ProjectID: "p1", Source: "/a", Destination: "/b"}}, reload.Jobs...)
			d, _ = d.Update(reload)

			row, ok := d.Selected()
			Expect(ok).To(BeTrue())
			Expect(row.Job.ID).To(Equal("j2"))
		})

		It("renders within the window", func() {
			view := d.View()
			Expect(view).To(ContainSubstring("Photos"))
			Expect(view).To(ContainSubstring("/home/me/photos"))
			Expect(view).To(ContainSubstring("No sync running"))
		})
	})

	Describe("actions", func() {
		It("runs the selected job", func() {
			_, msg := press(d, "j", "r")
			Expect(msg).To(Equal(shared.RunJobMsg{JobID: "j1"}))
		})

		It("runs a whole project from its header", func() {
			_, msg := press(d, "r")
			Expect(msg).To(Equal(shared.RunProjectMsg{ProjectID: "p1"}))
		})

		It("runs the project of the selected job", func() {
			_, msg := press(d, "j", "j", "R")
			Expect(msg).To(Equal(shared.RunProjectMsg{ProjectID: "p1"}))
		})

		It("stops", func() {
			_, msg := press(d, "s")
			Expect(msg).To(Equal(shared.StopMsg{}))
		})

		It("folds a project on enter", func() {
			_, msg := press(d, "j", "j", "j", "enter")
			Expect(msg).To(Equal(shared.ToggleProjectMsg{ProjectID: "p2"}))
		})

		It("opens the editor for a job and for a new job", func() {
			_, msg := press(d, "j", "e")
			Expect(msg).To(BeAssignableToTypeOf(shared.OpenJobFormMsg{}))
			Expect(msg.(shared.OpenJobFormMsg).Job.ID).To(Equal("j1"))

			_, msg = press(d, "n")
			open := msg.(shared.OpenJobFormMsg)
			Expect(open.Job.ID).To(BeEmpty())
			Expect(open.Job.ProjectID).To(Equal("p1"))
			Expect(open.Job.Options).To(Equal(domain.DefaultOptions()))
		})

		It("asks before deleting", func() {
			var msg tea.Msg

			d, msg = press(d, "j", "d")
			Expect(msg).To(BeNil())
			Expect(d.InputActive()).To(BeTrue())
			Expect(d.View()).To(ContainSubstring("Delete /home/me/photos"))

			d, msg = press(d, "y")
			Expect(msg).To(Equal(shared.DeleteJobMsg{JobID: "j1"}))
			Expect(d.InputActive()).To(BeFalse())
		})

		It("cancels a delete", func() {
			var msg tea.Msg

			d, _ = press(d, "d")
			d, msg = press(d, "esc")
			Expect(msg).To(BeNil())
			Expect(d.InputActive()).To(BeFalse())
		})

		It("adds a project by name", func() {
			d, _ = d.Update(keyPress("p"))
			Expect(d.InputActive()).To(BeTrue())

			for _, r := range "Music" {
				d, _ = d.Update(keyPress(string(r)))
			}

			_, msg := press(d, "enter")
			Expect(msg).To(Equal(shared.AddProjectMsg{Name: "Music"}))
		})
	})

	Describe("filtering", func() {
		It("ranks matching jobs, including folded ones", func() {
			d, _ = d.Update(keyPress("/"))
			for _, r := range "src" {
				d, _ = d.Update(keyPress(string(r)))
			}

			rows := d.Rows()
			Expect(rows).ToNot(BeEmpty())
			Expect(rows[0].Job.ID).To(Equal("j3"))

			for _, row := range rows {
				Expect(row.IsProject()).To(BeFalse())
			}

			d, _ = press(d, "esc")
			Expect(d.Rows()).To(HaveLen(4))
		})
	})

	Describe("run events", func() {
		start := events.JobStarted{JobID: "j1", RunID: 7, Leg: events.LegForward}

		It("marks the job running and logs its output", func() {
			d = send(d, start,
				events.OutputLine{RunID: 7, Text: "sending incremental file list\nphoto1.jpg\n"},
				events.OutputLine{RunID: 7, Text: "  1,024  10%  1.00MB/s  0:00:09\r  2,048  20%  1.00MB/s  0:00:08"},
				events.ErrorLine{RunID: 7, Text: "rsync: some warning"},
			)

			Expect(d.Rows()[1].Job.Status).To(Equal(domain.StatusRunning))

			var texts []string
			for _, line := range d.Log() {
				texts = append(texts, line.Text)
			}

			Expect(texts).To(Equal([]string{
				"▶ /home/me/photos → nas:/backup/photos (forward)",
				"sending incremental file list",
				"photo1.jpg",
				"  2,048  20%  1.00MB/s  0:00:08",
				"rsync: some warning",
			}))
			Expect(d.Log()[4].IsError).To(BeTrue())
		})

		It("ignores events from other runs", func() {
			d = send(d, start,
				events.OutputLine{RunID: 6, Text: "late line"},
				events.ProgressUpdated{RunID: 6, Reading: domain.ProgressReading{Percentage: 99}},
			)

			Expect(d.Log()).To(HaveLen(1))
			Expect(d.RunView().Reading.Percentage).To(Equal(0))
		})

		It("tracks progress and shows a finished run as complete", func() {
			d = send(d, start,
				events.ProgressUpdated{RunID: 7, Reading: domain.ProgressReading{Bytes: "1,024", Percentage: 42, Speed: "1MB/s", ETA: "0:00:03"}},
			)
			Expect(d.RunView().Reading.Percentage).To(Equal(42))

			d = send(d,
				events.RunComplete{RunID: 7, ExitCode: 0},
				events.JobFinished{JobID: "j1", Status: domain.StatusCompleted},
			)

			view := d.RunView()
			Expect(view.Reading.Percentage).To(Equal(100))
			Expect(view.Leg).To(Equal("completed"))
			Expect(d.Rows()[1].Job.Status).To(Equal(domain.StatusCompleted))
			Expect(d.Rows()[1].Job.LastSync).To(PointTo(Equal(now)))
		})

		It("collects failures with their job", func() {
			d = send(d, start,
				events.RunComplete{RunID: 7, ExitCode: 23, Err: errors.New("rsync exited with code 23")},
				events.JobFinished{JobID: "j1", Status: domain.StatusError, Err: errors.New("rsync exited with code 23")},
			)

			Expect(d.RunView().Reading.Percentage).To(Equal(0))
			Expect(d.Errors()).To(HaveLen(1))
			Expect(d.Errors()[0].JobID).To(Equal("j1"))
			Expect(d.Rows()[1].Job.Status).To(Equal(domain.StatusError))
			Expect(d.View()).To(ContainSubstring("code 23"))
		})

		It("counts jobs through a project queue", func() {
			d = send(d,
				events.ProjectStarted{ProjectID: "p1", Total: 2},
				events.JobStarted{JobID: "j1", RunID: 1, Leg: events.LegForward},
			)
			Expect(d.RunView().Queue).To(Equal("1 of 2"))

			d = send(d,
				events.JobFinished{JobID: "j1", Status: domain.StatusCompleted},
				events.JobStarted{JobID: "j2", RunID: 2, Leg: events.LegForward},
				events.JobFinished{JobID: "j2", Status: domain.StatusError, Err: errors.New("boom")},
				events.ProjectFinished{ProjectID: "p1"},
			)

			Expect(d.Notice()).To(Equal("project Photos finished, 1 failed"))
			Expect(d.RunView().Queue).To(BeEmpty())
		})

		It("resets a stopped job", func() {
			d = send(d, start, events.RunStopped{JobID: "j1"}, events.StateChanged{State: "idle"})

			Expect(d.Rows()[1].Job.Status).To(Equal(domain.StatusIdle))
			Expect(d.Notice()).To(Equal("stopped"))
			Expect(d.State()).To(Equal("idle"))
			Expect(d.RunView().Leg).To(Equal("stopped"))
		})

		It("keeps a running job marked while the store reloads", func() {
			d = send(d, start)
			d, _ = d.Update(catalog())

			Expect(d.Rows()[1].Job.Status).To(Equal(domain.StatusRunning))
		})
	})
})
