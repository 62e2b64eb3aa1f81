package rsync

import (
	"errors"
	"fmt"

	pkgerrors "github.com/joe/syncdeck/pkg/errors"
)

// Exported variables.
var (
	// ErrAlreadyRunning is returned when a start is requested while the run slot is held.
	ErrAlreadyRunning = errors.New("a sync is already running")
	// ErrNotRunning is returned when stop is requested with no active run.
	ErrNotRunning = errors.New("no sync is running")
	// ErrSpawnFailure is returned when rsync cannot be started.
	ErrSpawnFailure = errors.New("failed to start rsync")
	// ErrProcessFailed is the cause of every ExitError.
	ErrProcessFailed = errors.New("rsync failed")
)

// ExitError reports a non-zero rsync exit.
type ExitError struct {
	Code    int
	Meaning string
	// Detail is the last line rsync wrote to stderr, if any.
	Detail string
}

func newExitError(code int, detail string) *ExitError {
	return &ExitError{Code: code, Meaning: pkgerrors.ExitCodeMeaning(code), Detail: detail}
}

// Error implements error.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("rsync exited with code %d (%s)", e.Code, e.Meaning)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

// ExitCode returns the process exit status.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Unwrap returns ErrProcessFailed.
func (e *ExitError) Unwrap() error {
	return ErrProcessFailed
}
