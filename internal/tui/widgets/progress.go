package widgets

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// RunView is what the progress widget shows about the current run.
type RunView struct {
	Label   string
	Leg     string
	Reading domain.ProgressReading
	// Queue is "n of m" for project runs, empty otherwise
	Queue string
}

// NewProgressWidget creates a widget that displays the current transfer.
// Returns a closure that formats the latest reading; getRun returns nil
// when nothing is running.
func NewProgressWidget(bar *progress.Model, getRun func() *RunView) func() string {
	return func() string {
		run := getRun()
		if run == nil {
			return shared.RenderDim("No sync running")
		}

		header := run.Label
		if run.Leg != "" {
			header = fmt.Sprintf("%s (%s)", header, run.Leg)
		}

		if run.Queue != "" {
			header = fmt.Sprintf("[%s] %s", run.Queue, header)
		}

		details := shared.RenderReadingDetails(run.Reading)
		if details == "" {
			details = shared.RenderDim("waiting for output…")
		}

		return header + "\n" +
			shared.RenderProgressBar(*bar, run.Reading) + "\n" +
			details
	}
}
