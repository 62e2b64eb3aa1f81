// Package domain holds the persisted entities of syncdeck: projects, the sync
// jobs that belong to them, and the progress readings produced while a job runs.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Status is the lifecycle state of a SyncJob.
type Status string

// Job statuses.
const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// String returns the status name.
func (s Status) String() string {
	if s == "" {
		return string(StatusIdle)
	}

	return string(s)
}

// ParseStatus parses a status name. An empty string is treated as idle.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "idle":
		return StatusIdle, nil
	case "running":
		return StatusRunning, nil
	case "completed":
		return StatusCompleted, nil
	case "error":
		return StatusError, nil
	default:
		return StatusIdle, fmt.Errorf("invalid status: %s (valid: idle, running, completed, error)", s)
	}
}

// SyncOptions configures one direction of a sync. Each boolean maps to
// exactly one rsync flag.
type SyncOptions struct {
	Archive  bool     `json:"archive" yaml:"archive"`
	Verbose  bool     `json:"verbose" yaml:"verbose"`
	Compress bool     `json:"compress" yaml:"compress"`
	Delete   bool     `json:"delete" yaml:"delete"`
	DryRun   bool     `json:"dryRun" yaml:"dry_run"`
	Update   bool     `json:"update" yaml:"update"`
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	TwoWay   bool     `json:"twoWay" yaml:"two_way"`
}

// DefaultOptions returns the options a new job starts with.
func DefaultOptions() SyncOptions {
	return SyncOptions{
		Archive: true,
		Verbose: true,
	}
}

// Validate checks the exclude patterns.
func (o SyncOptions) Validate() error {
	for _, pattern := range o.Excludes {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("%w: empty exclude pattern", ErrInvalidJob)
		}

		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: malformed exclude pattern %q", ErrInvalidJob, pattern)
		}
	}

	return nil
}

// WithUpdate returns a copy of the options with the update-only flag forced on.
func (o SyncOptions) WithUpdate() SyncOptions {
	o.Update = true
	o.Excludes = append([]string(nil), o.Excludes...)

	return o
}

// SyncJob is a configured source→destination sync belonging to a project.
type SyncJob struct {
	ID          string      `json:"id" yaml:"id"`
	Source      string      `json:"source" yaml:"source"`
	Destination string      `json:"destination" yaml:"destination"`
	ProjectID   string      `json:"projectId" yaml:"project_id"`
	Options     SyncOptions `json:"options" yaml:"options"`
	LastSync    *time.Time  `json:"lastSync,omitempty" yaml:"last_sync,omitempty"`
	Status      Status      `json:"status,omitempty" yaml:"status,omitempty"`
}

// Label is the short human description used in lists and search.
func (j SyncJob) Label() string {
	arrow := "→"
	if j.Options.TwoWay {
		arrow = "⇄"
	}

	return j.Source + " " + arrow + " " + j.Destination
}

// Reversed returns the job with source and destination swapped.
func (j SyncJob) Reversed() SyncJob {
	j.Source, j.Destination = j.Destination, j.Source

	return j
}

// Validate checks the fields a job needs before it can be stored or run.
func (j SyncJob) Validate() error {
	if strings.TrimSpace(j.Source) == "" {
		return fmt.Errorf("%w: source path is required", ErrInvalidJob)
	}

	if strings.TrimSpace(j.Destination) == "" {
		return fmt.Errorf("%w: destination path is required", ErrInvalidJob)
	}

	if j.ProjectID == "" {
		return fmt.Errorf("%w: project is required", ErrInvalidJob)
	}

	return j.Options.Validate()
}

// Project is a named, colored group of jobs.
type Project struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Color     string `json:"color" yaml:"color"`
	Collapsed bool   `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
}

// Default project seeded into an empty store.
const (
	DefaultProjectID    = "default"
	DefaultProjectName  = "General"
	DefaultProjectColor = "#60a5fa"
)

// DefaultProject returns the project an empty store is seeded with.
func DefaultProject() Project {
	return Project{ID: DefaultProjectID, Name: DefaultProjectName, Color: DefaultProjectColor}
}
