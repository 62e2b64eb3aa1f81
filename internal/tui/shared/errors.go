package shared

import (
	"fmt"
	"strings"

	actionable "github.com/joe/syncdeck/pkg/errors"
)

// Error display limits for different screen contexts
const (
	// ErrorLimitInProgress is for the dashboard while a run is active
	ErrorLimitInProgress = 3

	// ErrorLimitComplete is for the dashboard once the queue has drained
	ErrorLimitComplete = 5
)

// ErrorDisplayContext defines the context in which errors are being displayed
type ErrorDisplayContext int

const (
	// ContextInProgress indicates errors shown while jobs are still running
	ContextInProgress ErrorDisplayContext = iota
	// ContextComplete indicates errors shown after the run finished
	ContextComplete
)

// JobError is a failed run of one job.
type JobError struct {
	JobID string
	Label string
	Err   error
}

// ErrorListConfig holds configuration for rendering error lists
type ErrorListConfig struct {
	Errors  []JobError
	Context ErrorDisplayContext
	// MaxWidth is the maximum width for labels and messages; 0 means no limit
	MaxWidth int
}

// RenderErrorList renders failed jobs with their suggestions, newest last.
func RenderErrorList(config ErrorListConfig) string {
	if len(config.Errors) == 0 {
		return ""
	}

	var builder strings.Builder

	limit := ErrorLimitComplete
	if config.Context == ContextInProgress {
		limit = ErrorLimitInProgress
	}

	shown := config.Errors
	if len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}

	for _, jobErr := range shown {
		label := jobErr.Label
		if config.MaxWidth > 0 {
			label = TruncateLeft(label, config.MaxWidth)
		}

		fmt.Fprintf(&builder, "%s %s\n", ErrorStyle().Render("✗"), label)
		builder.WriteString(RenderRunError(jobErr.Err, config.MaxWidth))
	}

	if hidden := len(config.Errors) - len(shown); hidden > 0 {
		fmt.Fprintf(&builder, "%s\n", RenderDim(fmt.Sprintf("... and %d earlier error(s)", hidden)))
	}

	return builder.String()
}

// RenderRunError renders an error message indented under its job, followed
// by suggestions when the error carries them.
func RenderRunError(err error, maxWidth int) string {
	if err == nil {
		return ""
	}

	var builder strings.Builder

	msg := err.Error()
	if maxWidth > 3 && len(msg) > maxWidth { //nolint:mnd // room for the ellipsis
		msg = msg[:maxWidth-3] + "..."
	}

	fmt.Fprintf(&builder, "    %s\n", msg)

	if suggestions := actionable.FormatSuggestions(err); suggestions != "" {
		builder.WriteString("    " + strings.ReplaceAll(suggestions, "\n", "\n    ") + "\n")
	}

	return builder.String()
}
