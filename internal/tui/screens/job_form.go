package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// Form field names, also used by the directory chooser.
const (
	FieldSource      = "source"
	FieldDestination = "destination"
)

const (
	focusSource = iota
	focusDest
	focusExcludes
	focusProject
	focusArchive
	focusVerbose
	focusCompress
	focusDelete
	focusDryRun
	focusUpdate
	focusTwoWay
	focusCount
)

// toggle is one boolean option row of the form.
type toggle struct {
	label string
	flag  string
	get   func(*domain.SyncOptions) *bool
}

var toggles = map[int]toggle{
	focusArchive:  {"Archive", "-a", func(o *domain.SyncOptions) *bool { return &o.Archive }},
	focusVerbose:  {"Verbose", "-v", func(o *domain.SyncOptions) *bool { return &o.Verbose }},
	focusCompress: {"Compress", "-z", func(o *domain.SyncOptions) *bool { return &o.Compress }},
	focusDelete:   {"Delete extraneous", "--delete", func(o *domain.SyncOptions) *bool { return &o.Delete }},
	focusDryRun:   {"Dry run", "--dry-run", func(o *domain.SyncOptions) *bool { return &o.DryRun }},
	focusUpdate:   {"Skip newer", "-u", func(o *domain.SyncOptions) *bool { return &o.Update }},
	focusTwoWay:   {"Two-way", "then dest → source", func(o *domain.SyncOptions) *bool { return &o.TwoWay }},
}

// JobForm edits a new or existing job.
type JobForm struct {
	job        domain.SyncJob
	projects   []domain.Project
	projectIdx int

	source   textinput.Model
	dest     textinput.Model
	excludes textinput.Model
	options  domain.SyncOptions

	focus  int
	picker *DirPicker
	err    string

	width  int
	height int
}

// NewJobForm creates the editor for job. A job without an ID is new.
func NewJobForm(job domain.SyncJob, projects []domain.Project, width, height int) JobForm {
	source := newPathInput("/path/to/source or host:/path", job.Source)
	dest := newPathInput("/path/to/destination or host:/path", job.Destination)
	excludes := newPathInput("*.tmp, node_modules/, .git/", strings.Join(job.Options.Excludes, ", "))

	form := JobForm{
		job:      job,
		projects: projects,
		source:   source,
		dest:     dest,
		excludes: excludes,
		options:  job.Options,
		width:    width,
		height:   height,
	}

	for i, project := range projects {
		if project.ID == job.ProjectID {
			form.projectIdx = i
		}
	}

	form.source.Focus()

	return form
}

func newPathInput(placeholder, value string) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = ""
	input.SetValue(value)

	return input
}

// Init implements tea.Model
func (f JobForm) Init() tea.Cmd {
	return textinput.Blink
}

// Job returns the job as currently entered.
func (f JobForm) Job() domain.SyncJob {
	job := f.job
	job.Source = strings.TrimSpace(f.source.Value())
	job.Destination = strings.TrimSpace(f.dest.Value())
	job.Options = f.options
	job.Options.Excludes = splitPatterns(f.excludes.Value())

	if len(f.projects) > 0 {
		job.ProjectID = f.projects[f.projectIdx].ID
	}

	return job
}

// Err returns the last validation error shown.
func (f JobForm) Err() string {
	return f.err
}

// Picking reports whether the directory chooser is open.
func (f JobForm) Picking() bool {
	return f.picker != nil
}

// Update implements tea.Model
func (f JobForm) Update(msg tea.Msg) (JobForm, tea.Cmd) {
	if errMsg, ok := msg.(shared.ErrorMsg); ok {
		f.err = errMsg.Err.Error()

		return f, nil
	}

	if selected, ok := msg.(shared.DirSelectedMsg); ok {
		f.picker = nil
		f.setPath(selected.Field, selected.Path)

		return f, nil
	}

	if f.picker != nil {
		picker, cmd := f.picker.Update(msg)
		f.picker = &picker

		return f, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width, f.height = msg.Width, msg.Height

		return f, nil
	case tea.KeyMsg:
		return f.handleKey(msg)
	}

	return f.updateFocused(msg)
}

func (f JobForm) handleKey(msg tea.KeyMsg) (JobForm, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return f, emit(shared.CloseFormMsg{})
	case "enter", "ctrl+s":
		return f.submit()
	case "tab", "down":
		return f.moveFocus(1)
	case "shift+tab", "up":
		return f.moveFocus(-1)
	case "ctrl+o":
		return f.openPicker()
	}

	if t, ok := toggles[f.focus]; ok && msg.String() == " " {
		flag := t.get(&f.options)
		*flag = !*flag

		return f, nil
	}

	if f.focus == focusProject && len(f.projects) > 0 {
		switch msg.String() {
		case "left", "h":
			f.projectIdx = (f.projectIdx + len(f.projects) - 1) % len(f.projects)
		case "right", "l", " ":
			f.projectIdx = (f.projectIdx + 1) % len(f.projects)
		}

		return f, nil
	}

	return f.updateFocused(msg)
}

func (f JobForm) updateFocused(msg tea.Msg) (JobForm, tea.Cmd) {
	var cmd tea.Cmd

	switch f.focus {
	case focusSource:
		f.source, cmd = f.source.Update(msg)
	case focusDest:
		f.dest, cmd = f.dest.Update(msg)
	case focusExcludes:
		f.excludes, cmd = f.excludes.Update(msg)
	}

	return f, cmd
}

func (f JobForm) moveFocus(delta int) (JobForm, tea.Cmd) {
	f.focus = (f.focus + delta + focusCount) % focusCount

	f.source.Blur()
	f.dest.Blur()
	f.excludes.Blur()

	switch f.focus {
	case focusSource:
		return f, f.source.Focus()
	case focusDest:
		return f, f.dest.Focus()
	case focusExcludes:
		return f, f.excludes.Focus()
	}

	return f, nil
}

func (f JobForm) openPicker() (JobForm, tea.Cmd) {
	field, start := FieldSource, f.source.Value()
	if f.focus == focusDest {
		field, start = FieldDestination, f.dest.Value()
	} else if f.focus != focusSource {
		return f, nil
	}

	picker, cmd := NewDirPicker(field, start, f.width, f.height)
	f.picker = &picker

	return f, cmd
}

func (f *JobForm) setPath(field, path string) {
	if path == "" {
		return
	}

	switch field {
	case FieldSource:
		f.source.SetValue(path)
	case FieldDestination:
		f.dest.SetValue(path)
	}
}

func (f JobForm) submit() (JobForm, tea.Cmd) {
	job := f.Job()
	if err := job.Validate(); err != nil {
		f.err = err.Error()

		return f, nil
	}

	f.err = ""

	return f, emit(shared.SaveJobMsg{Job: job})
}

// View implements tea.Model
func (f JobForm) View() string {
	if f.picker != nil {
		return f.picker.View()
	}

	title := "New job"
	if f.job.ID != "" {
		title = "Edit job " + f.job.ID
	}

	var builder strings.Builder

	builder.WriteString(shared.RenderTitle(title) + "\n\n")
	builder.WriteString(f.row(focusSource, "Source", f.source.View()) + "\n")
	builder.WriteString(f.row(focusDest, "Destination", f.dest.View()) + "\n")
	builder.WriteString(f.row(focusExcludes, "Exclude", f.excludes.View()) + "\n")
	builder.WriteString(f.row(focusProject, "Project", f.projectName()) + "\n\n")

	for focus := focusArchive; focus < focusCount; focus++ {
		t := toggles[focus]

		box := "[ ]"
		if *t.get(&f.options) {
			box = "[x]"
		}

		builder.WriteString(f.row(focus, t.label, fmt.Sprintf("%s %s", box, shared.RenderDim(t.flag))) + "\n")
	}

	if f.err != "" {
		builder.WriteString("\n" + shared.RenderError(f.err) + "\n")
	}

	builder.WriteString("\n" + shared.RenderDim("tab: next  space: toggle  ctrl+o: browse  enter: save  esc: cancel"))

	return shared.BoxStyle().Render(builder.String())
}

func (f JobForm) row(focus int, label, value string) string {
	marker := "  "
	if f.focus == focus {
		marker = shared.SelectedStyle().Render("▶ ")
	}

	return fmt.Sprintf("%s%-18s %s", marker, shared.RenderLabel(label), value)
}

func (f JobForm) projectName() string {
	if len(f.projects) == 0 {
		return shared.RenderDim("(none)")
	}

	project := f.projects[f.projectIdx]

	return "◀ " + shared.ProjectStyle(project.Color).Render(project.Name) + " ▶"
}

// splitPatterns reads a comma or newline separated exclude list.
func splitPatterns(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' })

	var patterns []string

	for _, field := range fields {
		if pattern := strings.TrimSpace(field); pattern != "" {
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}
