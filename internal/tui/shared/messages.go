package shared

import (
	"github.com/joe/syncdeck/internal/domain"
)

// CatalogLoadedMsg carries a fresh read of projects and jobs.
type CatalogLoadedMsg struct {
	Projects []domain.Project
	Jobs     []domain.SyncJob
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// NoticeMsg is a short status-line message.
type NoticeMsg struct {
	Text string
}

// OpenJobFormMsg asks the app to show the job editor. A zero Job.ID means
// a new job.
type OpenJobFormMsg struct {
	Job domain.SyncJob
}

// SaveJobMsg is sent by the job editor on submit.
type SaveJobMsg struct {
	Job domain.SyncJob
}

// CloseFormMsg dismisses the job editor without saving.
type CloseFormMsg struct{}

// DirSelectedMsg reports the outcome of a directory chooser. Path is empty
// when the chooser was cancelled.
type DirSelectedMsg struct {
	Field string
	Path  string
}

// ============================================================================
// Intent Messages
// Screens emit these; the app performs the store or sequencer call
// ============================================================================

// RunJobMsg asks for one job to run.
type RunJobMsg struct {
	JobID string
}

// RunProjectMsg asks for every job of a project to run in order.
type RunProjectMsg struct {
	ProjectID string
}

// StopMsg asks for the active run to stop.
type StopMsg struct{}

// DeleteJobMsg asks for a job to be removed.
type DeleteJobMsg struct {
	JobID string
}

// DeleteProjectMsg asks for a project and its jobs to be removed.
type DeleteProjectMsg struct {
	ProjectID string
}

// ToggleProjectMsg folds or unfolds a project in the tree.
type ToggleProjectMsg struct {
	ProjectID string
}

// AddProjectMsg asks for a new project.
type AddProjectMsg struct {
	Name string
}
