package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrJobNotFound indicates the requested job does not exist
	ErrJobNotFound = errors.New("sync job not found")

	// ErrProjectNotFound indicates the requested project does not exist
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectEmpty indicates a project run was requested for a project without jobs
	ErrProjectEmpty = errors.New("project has no jobs")

	// ErrInvalidJob indicates a job or its options failed validation
	ErrInvalidJob = errors.New("invalid sync job")

	// ErrJobRunning indicates an edit was attempted on a running job
	ErrJobRunning = errors.New("sync job is running")
)
