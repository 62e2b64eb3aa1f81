package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// TreeRow is one line of the job tree: a project header or a job.
type TreeRow struct {
	Project domain.Project
	// Job is nil for project headers
	Job *domain.SyncJob
	// JobCount is the number of jobs under a header
	JobCount int
}

// IsProject reports whether the row is a project header.
func (r TreeRow) IsProject() bool {
	return r.Job == nil
}

// NewJobTreeWidget creates a widget that lists projects and their jobs.
// Only the window of rows around the cursor that fits height is drawn.
func NewJobTreeWidget(getRows func() []TreeRow, getCursor func() int, width, height int, now func() time.Time) func() string {
	return func() string {
		rows := getRows()
		if len(rows) == 0 {
			return shared.RenderDim("No jobs. Press n to add one.")
		}

		cursor := getCursor()
		start, end := visibleWindow(cursor, height, len(rows))

		lines := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			lines = append(lines, renderRow(rows[i], i == cursor, width, now()))
		}

		return strings.Join(lines, "\n")
	}
}

func renderRow(row TreeRow, selected bool, width int, now time.Time) string {
	marker := "  "
	if selected {
		marker = "▶ "
	}

	if row.IsProject() {
		fold := "▾"
		if row.Project.Collapsed {
			fold = "▸"
		}

		name := shared.ProjectStyle(row.Project.Color).Render(row.Project.Name)

		return fmt.Sprintf("%s%s %s %s", marker, fold, name, shared.RenderDim(fmt.Sprintf("(%d)", row.JobCount)))
	}

	job := *row.Job
	badge := shared.StatusStyle(job.Status).Render(shared.StatusSymbol(job.Status))
	when := shared.RenderDim(shared.FormatLastSync(job.LastSync, now))

	// marker, indent, badge and spacing take 7 cells
	label := shared.TruncateLeft(job.Label(), max(width-7-len(shared.FormatLastSync(job.LastSync, now)), 8)) //nolint:mnd // minimum label
	if selected {
		label = shared.SelectedStyle().Render(label)
	}

	return fmt.Sprintf("%s  %s %s %s", marker, badge, label, when)
}

// visibleWindow returns the [start, end) slice of total rows to draw so the
// cursor stays on screen.
func visibleWindow(cursor, height, total int) (int, int) {
	if height <= 0 || total <= height {
		return 0, total
	}

	start := max(cursor-height/2, 0) //nolint:mnd // center the cursor
	end := start + height

	if end > total {
		end = total
		start = end - height
	}

	return start, end
}
