// Package screens holds the terminal UI screens: the dashboard and the job
// editor with its directory chooser.
package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/syncengine"
	"github.com/joe/syncdeck/internal/tui/shared"
	"github.com/joe/syncdeck/internal/tui/widgets"
)

// Fixed layout rows.
const (
	chromeHeight       = 3 // title, status line, help
	progressPaneHeight = 6 // border, title, three content lines, border
	paneChrome         = 3 // borders and title
)

// Dashboard is the main screen: the job tree on the left, the current
// transfer and its output log on the right.
type Dashboard struct {
	keys KeyMap
	help help.Model
	now  func() time.Time

	projects []domain.Project
	jobs     []domain.SyncJob
	rows     []widgets.TreeRow
	cursor   int

	filter    textinput.Model
	filtering bool

	nameInput textinput.Model
	naming    bool

	confirmDelete *widgets.TreeRow

	focusLog bool
	log      []widgets.LogLine
	logView  viewport.Model
	bar      progress.Model

	run    *runInfo
	state  string
	queue  queueInfo
	errs   []shared.JobError
	notice string

	width  int
	height int
}

type runInfo struct {
	jobID   string
	runID   events.RunID
	leg     events.Leg
	reading domain.ProgressReading
	outcome string
}

type queueInfo struct {
	projectID string
	total     int
	started   int
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithClock replaces time.Now for last-sync display.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

// NewDashboard creates the dashboard screen.
func NewDashboard(opts ...DashboardOption) Dashboard {
	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter jobs"

	nameInput := textinput.New()
	nameInput.Prompt = "project name: "
	nameInput.CharLimit = 50

	d := Dashboard{
		keys:      DefaultKeyMap(),
		help:      help.New(),
		now:       time.Now,
		filter:    filter,
		nameInput: nameInput,
		logView:   viewport.New(0, 0),
		bar:       shared.NewProgressModel(shared.ProgressBarWidth),
		state:     syncengine.StateIdle.String(),
	}

	for _, opt := range opts {
		opt(&d)
	}

	return d
}

// Init implements tea.Model
func (d Dashboard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (d Dashboard) Update(msg tea.Msg) (Dashboard, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.layout()

		return d, nil
	case shared.CatalogLoadedMsg:
		d.setCatalog(msg.Projects, msg.Jobs)

		return d, nil
	case shared.EventMsg:
		d.applyEvent(msg.Event)

		return d, nil
	case shared.ErrorMsg:
		d.notice = shared.RenderError("error: " + msg.Err.Error())

		return d, nil
	case shared.NoticeMsg:
		d.notice = msg.Text

		return d, nil
	case tea.KeyMsg:
		return d.handleKey(msg)
	}

	var cmd tea.Cmd

	switch {
	case d.filtering:
		d.filter, cmd = d.filter.Update(msg)
	case d.naming:
		d.nameInput, cmd = d.nameInput.Update(msg)
	}

	return d, cmd
}

// View implements tea.Model
func (d Dashboard) View() string {
	if d.width == 0 {
		return "loading…"
	}

	bodyHeight := max(d.height-chromeHeight, progressPaneHeight+paneChrome)
	leftWidth := shared.LeftColumnWidth(d.width)
	rightWidth := d.width - leftWidth

	treeTitle := "Jobs"
	if q := strings.TrimSpace(d.filter.Value()); q != "" {
		treeTitle = fmt.Sprintf("Jobs matching %q", q)
	}

	tree := widgets.NewJobTreeWidget(
		func() []widgets.TreeRow { return d.rows },
		func() int { return d.cursor },
		shared.PaneContentWidth(leftWidth),
		bodyHeight-paneChrome,
		d.now,
	)
	left := shared.RenderPane(treeTitle, tree(), leftWidth, bodyHeight, !d.focusLog)

	progressWidget := widgets.NewProgressWidget(&d.bar, d.RunView)
	right := shared.RenderPane("Transfer", progressWidget(), rightWidth, progressPaneHeight, false)

	if errText := d.errorText(rightWidth); errText != "" {
		right = lipgloss.JoinVertical(lipgloss.Left, right,
			shared.RenderPane("Errors", errText, rightWidth, lipgloss.Height(errText)+paneChrome, false))
	}

	logHeight := max(bodyHeight-lipgloss.Height(right), paneChrome)
	right = lipgloss.JoinVertical(lipgloss.Left, right,
		shared.RenderPane("Output", d.logView.View(), rightWidth, logHeight, d.focusLog))

	header := shared.RenderTitle("syncdeck") + "  " + shared.RenderDim(d.state)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		shared.RenderTwoColumnLayout(left, right, d.width, bodyHeight),
		d.statusLine(),
		d.help.View(d.keys),
	)
}

// Rows returns the tree rows as currently displayed.
func (d Dashboard) Rows() []widgets.TreeRow {
	return d.rows
}

// Cursor returns the selected row index.
func (d Dashboard) Cursor() int {
	return d.cursor
}

// Selected returns the row under the cursor.
func (d Dashboard) Selected() (widgets.TreeRow, bool) {
	if d.cursor < 0 || d.cursor >= len(d.rows) {
		return widgets.TreeRow{}, false
	}

	return d.rows[d.cursor], true
}

// Log returns the output log.
func (d Dashboard) Log() []widgets.LogLine {
	return d.log
}

// Errors returns the failures of the current or last run.
func (d Dashboard) Errors() []shared.JobError {
	return d.errs
}

// Notice returns the status-line message.
func (d Dashboard) Notice() string {
	return d.notice
}

// State returns the last sequencer state seen.
func (d Dashboard) State() string {
	return d.state
}

// InputActive reports whether keys go to a text input, so global shortcuts
// must not fire.
func (d Dashboard) InputActive() bool {
	return d.filtering || d.naming || d.confirmDelete != nil
}

// Projects returns the loaded projects.
func (d Dashboard) Projects() []domain.Project {
	return d.projects
}

// RunView describes the current or most recent run for the progress widget.
func (d Dashboard) RunView() *widgets.RunView {
	if d.run == nil {
		return nil
	}

	view := &widgets.RunView{
		Label:   d.jobLabel(d.run.jobID),
		Leg:     string(d.run.leg),
		Reading: d.run.reading,
	}

	if d.run.outcome != "" {
		view.Leg = d.run.outcome
	}

	if d.queue.total > 0 {
		view.Queue = fmt.Sprintf("%d of %d", d.queue.started, d.queue.total)
	}

	return view
}

func (d Dashboard) handleKey(msg tea.KeyMsg) (Dashboard, tea.Cmd) {
	switch {
	case d.naming:
		return d.handleNameKey(msg)
	case d.filtering:
		return d.handleFilterKey(msg)
	case d.confirmDelete != nil:
		return d.handleConfirmKey(msg)
	case d.focusLog:
		return d.handleLogKey(msg)
	}

	row, hasRow := d.Selected()

	switch {
	case key.Matches(msg, d.keys.Quit):
		return d, tea.Quit
	case key.Matches(msg, d.keys.Up):
		d.moveCursor(-1)
	case key.Matches(msg, d.keys.Down):
		d.moveCursor(1)
	case key.Matches(msg, d.keys.Top):
		d.cursor = 0
	case key.Matches(msg, d.keys.Bottom):
		d.cursor = max(len(d.rows)-1, 0)
	case key.Matches(msg, d.keys.Focus):
		d.focusLog = true
	case key.Matches(msg, d.keys.Stop):
		return d, emit(shared.StopMsg{})
	case key.Matches(msg, d.keys.New):
		projectID := domain.DefaultProjectID
		if hasRow {
			projectID = row.Project.ID
		}

		return d, emit(shared.OpenJobFormMsg{Job: domain.SyncJob{ProjectID: projectID, Options: domain.DefaultOptions()}})
	case key.Matches(msg, d.keys.NewProject):
		d.naming = true
		d.nameInput.SetValue("")

		return d, d.nameInput.Focus()
	case key.Matches(msg, d.keys.Filter):
		d.filtering = true

		return d, d.filter.Focus()
	case key.Matches(msg, d.keys.ClearLog):
		d.setLog(nil)
	case !hasRow:
		return d, nil
	case key.Matches(msg, d.keys.Toggle):
		if row.IsProject() {
			return d, emit(shared.ToggleProjectMsg{ProjectID: row.Project.ID})
		}

		return d, emit(shared.OpenJobFormMsg{Job: *row.Job})
	case key.Matches(msg, d.keys.Run):
		if row.IsProject() {
			return d, emit(shared.RunProjectMsg{ProjectID: row.Project.ID})
		}

		return d, emit(shared.RunJobMsg{JobID: row.Job.ID})
	case key.Matches(msg, d.keys.RunProject):
		return d, emit(shared.RunProjectMsg{ProjectID: row.Project.ID})
	case key.Matches(msg, d.keys.Edit):
		if !row.IsProject() {
			return d, emit(shared.OpenJobFormMsg{Job: *row.Job})
		}
	case key.Matches(msg, d.keys.Delete):
		d.confirmDelete = &row
	}

	return d, nil
}

func (d Dashboard) handleLogKey(msg tea.KeyMsg) (Dashboard, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return d, tea.Quit
	case key.Matches(msg, d.keys.Focus):
		d.focusLog = false
	case key.Matches(msg, d.keys.Stop):
		return d, emit(shared.StopMsg{})
	case key.Matches(msg, d.keys.ClearLog):
		d.setLog(nil)
	case key.Matches(msg, d.keys.Top):
		d.logView.GotoTop()
	case key.Matches(msg, d.keys.Bottom):
		d.logView.GotoBottom()
	default:
		var cmd tea.Cmd
		d.logView, cmd = d.logView.Update(msg)

		return d, cmd
	}

	return d, nil
}

func (d Dashboard) handleFilterKey(msg tea.KeyMsg) (Dashboard, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		d.filtering = false
		d.filter.Blur()
		d.filter.SetValue("")
		d.rebuildRows()

		return d, nil
	case tea.KeyEnter:
		d.filtering = false
		d.filter.Blur()

		return d, nil
	}

	var cmd tea.Cmd
	d.filter, cmd = d.filter.Update(msg)
	d.cursor = 0
	d.rebuildRows()

	return d, cmd
}

func (d Dashboard) handleNameKey(msg tea.KeyMsg) (Dashboard, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		d.naming = false
		d.nameInput.Blur()

		return d, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(d.nameInput.Value())
		if name == "" {
			return d, nil
		}

		d.naming = false
		d.nameInput.Blur()

		return d, emit(shared.AddProjectMsg{Name: name})
	}

	var cmd tea.Cmd
	d.nameInput, cmd = d.nameInput.Update(msg)

	return d, cmd
}

func (d Dashboard) handleConfirmKey(msg tea.KeyMsg) (Dashboard, tea.Cmd) {
	row := *d.confirmDelete

	switch {
	case key.Matches(msg, d.keys.Confirm):
		d.confirmDelete = nil
		if row.IsProject() {
			return d, emit(shared.DeleteProjectMsg{ProjectID: row.Project.ID})
		}

		return d, emit(shared.DeleteJobMsg{JobID: row.Job.ID})
	case key.Matches(msg, d.keys.Deny):
		d.confirmDelete = nil
	}

	return d, nil
}

func (d *Dashboard) setCatalog(projects []domain.Project, jobs []domain.SyncJob) {
	selected := d.selectedKey()

	d.projects = projects
	d.jobs = jobs

	// A reload must not undo what the live event stream already shows.
	if d.run != nil && d.run.outcome == "" {
		for i := range d.jobs {
			if d.jobs[i].ID == d.run.jobID {
				d.jobs[i].Status = domain.StatusRunning
			}
		}
	}

	d.rebuildRows()
	d.restoreSelection(selected)
}

func (d *Dashboard) rebuildRows() {
	if query := strings.TrimSpace(d.filter.Value()); query != "" {
		d.rows = d.filteredRows(query)
	} else {
		d.rows = d.treeRows()
	}

	d.cursor = min(d.cursor, max(len(d.rows)-1, 0))
}

func (d *Dashboard) treeRows() []widgets.TreeRow {
	rows := make([]widgets.TreeRow, 0, len(d.projects)+len(d.jobs))

	for _, project := range d.projects {
		header := len(rows)
		rows = append(rows, widgets.TreeRow{Project: project})

		for i := range d.jobs {
			if d.jobs[i].ProjectID != project.ID {
				continue
			}

			rows[header].JobCount++

			if !project.Collapsed {
				rows = append(rows, widgets.TreeRow{Project: project, Job: &d.jobs[i]})
			}
		}
	}

	return rows
}

// filteredRows ranks every job against query, best match first. Folded
// projects are searched too.
func (d *Dashboard) filteredRows(query string) []widgets.TreeRow {
	projects := make(map[string]domain.Project, len(d.projects))
	for _, project := range d.projects {
		projects[project.ID] = project
	}

	targets := make([]string, len(d.jobs))
	for i, job := range d.jobs {
		targets[i] = strings.ToLower(job.Label() + " " + projects[job.ProjectID].Name)
	}

	matches := fuzzy.Find(strings.ToLower(query), targets)

	rows := make([]widgets.TreeRow, 0, len(matches))
	for _, match := range matches {
		job := &d.jobs[match.Index]
		rows = append(rows, widgets.TreeRow{Project: projects[job.ProjectID], Job: job})
	}

	return rows
}

func (d *Dashboard) selectedKey() string {
	row, ok := d.Selected()
	if !ok {
		return ""
	}

	if row.IsProject() {
		return "p:" + row.Project.ID
	}

	return "j:" + row.Job.ID
}

func (d *Dashboard) restoreSelection(selected string) {
	for i, row := range d.rows {
		rowKey := "p:" + row.Project.ID
		if !row.IsProject() {
			rowKey = "j:" + row.Job.ID
		}

		if rowKey == selected {
			d.cursor = i

			return
		}
	}
}

func (d *Dashboard) moveCursor(delta int) {
	if len(d.rows) == 0 {
		return
	}

	d.cursor = min(max(d.cursor+delta, 0), len(d.rows)-1)
}

func (d *Dashboard) applyEvent(event events.Event) {
	switch e := event.(type) {
	case events.JobStarted:
		d.run = &runInfo{jobID: e.JobID, runID: e.RunID, leg: e.Leg}
		d.setJobStatus(e.JobID, domain.StatusRunning, nil)

		if d.queue.total > 0 && e.Leg == events.LegForward {
			d.queue.started++
		}

		d.appendLog(widgets.LogLine{Text: fmt.Sprintf("▶ %s (%s)", d.jobLabel(e.JobID), e.Leg)})
	case events.OutputLine:
		if d.current(e.RunID) {
			d.appendLog(splitLog(e.Text, false)...)
		}
	case events.ErrorLine:
		if d.current(e.RunID) {
			d.appendLog(splitLog(e.Text, true)...)
		}
	case events.ProgressUpdated:
		if d.current(e.RunID) {
			d.run.reading = e.Reading
		}
	case events.RunComplete:
		if d.current(e.RunID) && e.Err == nil {
			d.run.reading = d.run.reading.Completed()
		}
	case events.JobFinished:
		d.finishJob(e)
	case events.ProjectStarted:
		d.queue = queueInfo{projectID: e.ProjectID, total: e.Total}
		d.errs = nil
		d.layout()
	case events.ProjectFinished:
		d.notice = fmt.Sprintf("project %s finished, %d failed", d.projectName(e.ProjectID), len(d.errs))
		d.queue = queueInfo{}
	case events.RunStopped:
		if e.JobID != "" {
			d.setJobStatus(e.JobID, domain.StatusIdle, nil)
		}

		if d.run != nil {
			d.run.outcome = "stopped"
		}

		d.queue = queueInfo{}
		d.notice = "stopped"
		d.appendLog(widgets.LogLine{Text: "■ stopped", IsError: true})
	case events.StateChanged:
		d.state = e.State
	}
}

func (d *Dashboard) finishJob(e events.JobFinished) {
	now := d.now()
	d.setJobStatus(e.JobID, e.Status, &now)

	label := d.jobLabel(e.JobID)

	if d.run != nil && d.run.jobID == e.JobID {
		d.run.outcome = string(e.Status)
	}

	if e.Err != nil {
		d.errs = append(d.errs, shared.JobError{JobID: e.JobID, Label: label, Err: e.Err})
		d.appendLog(widgets.LogLine{Text: fmt.Sprintf("✗ %s: %v", label, e.Err), IsError: true})
		d.layout()

		return
	}

	if d.queue.total == 0 {
		d.errs = nil
		d.layout()
	}

	d.appendLog(widgets.LogLine{Text: "✓ " + label})
}

func (d *Dashboard) current(runID events.RunID) bool {
	return d.run != nil && d.run.runID == runID && d.run.outcome == ""
}

func (d *Dashboard) setJobStatus(jobID string, status domain.Status, lastSync *time.Time) {
	for i := range d.jobs {
		if d.jobs[i].ID != jobID {
			continue
		}

		d.jobs[i].Status = status
		if lastSync != nil {
			d.jobs[i].LastSync = lastSync
		}
	}
}

func (d *Dashboard) jobLabel(jobID string) string {
	for _, job := range d.jobs {
		if job.ID == jobID {
			return job.Label()
		}
	}

	return jobID
}

func (d *Dashboard) projectName(projectID string) string {
	for _, project := range d.projects {
		if project.ID == projectID {
			return project.Name
		}
	}

	return projectID
}

func (d *Dashboard) appendLog(lines ...widgets.LogLine) {
	if len(lines) == 0 {
		return
	}

	d.setLog(widgets.AppendLog(d.log, shared.MaxLogLines, lines...))
}

func (d *Dashboard) setLog(lines []widgets.LogLine) {
	following := d.logView.AtBottom()
	d.log = lines

	d.logView.SetContent(widgets.NewOutputLogWidget(func() []widgets.LogLine { return d.log }, d.logView.Width)())

	if following {
		d.logView.GotoBottom()
	}
}

// layout sizes the progress bar and log viewport for the current window.
func (d *Dashboard) layout() {
	if d.width == 0 {
		return
	}

	rightWidth := d.width - shared.LeftColumnWidth(d.width)
	d.bar.Width = shared.ProgressWidth(shared.PaneContentWidth(rightWidth))
	d.help.Width = d.width

	bodyHeight := max(d.height-chromeHeight, progressPaneHeight+paneChrome)
	logHeight := bodyHeight - progressPaneHeight - paneChrome

	if errText := d.errorText(rightWidth); errText != "" {
		logHeight -= lipgloss.Height(errText) + paneChrome
	}

	d.logView.Width = shared.PaneContentWidth(rightWidth)
	d.logView.Height = max(logHeight, 1)
	d.setLog(d.log)
}

func (d Dashboard) errorText(width int) string {
	context := shared.ContextComplete
	if d.state != syncengine.StateIdle.String() {
		context = shared.ContextInProgress
	}

	return strings.TrimRight(shared.RenderErrorList(shared.ErrorListConfig{
		Errors:   d.errs,
		Context:  context,
		MaxWidth: shared.PaneContentWidth(width),
	}), "\n")
}

func (d Dashboard) statusLine() string {
	switch {
	case d.naming:
		return d.nameInput.View()
	case d.filtering:
		return d.filter.View()
	case d.confirmDelete != nil:
		what := d.confirmDelete.Project.Name + " and all its jobs"
		if !d.confirmDelete.IsProject() {
			what = d.confirmDelete.Job.Label()
		}

		return shared.RenderWarning(fmt.Sprintf("Delete %s? (y/n)", what))
	default:
		return d.notice
	}
}

// splitLog turns a raw output chunk into log lines. A chunk may hold several
// lines, and carriage-return redraws keep only their final state.
func splitLog(text string, isError bool) []widgets.LogLine {
	var lines []widgets.LogLine

	for _, part := range strings.Split(text, "\n") {
		if line := shared.SanitizeLine(part); strings.TrimSpace(line) != "" {
			lines = append(lines, widgets.LogLine{Text: line, IsError: isError})
		}
	}

	return lines
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
