package widgets

import (
	"strings"

	"github.com/joe/syncdeck/internal/tui/shared"
)

// LogLine is one entry of the output log.
type LogLine struct {
	Text    string
	IsError bool
}

// NewOutputLogWidget creates a widget that renders the output log, stderr
// lines highlighted. Lines wider than width are cut; 0 means no limit.
func NewOutputLogWidget(getLines func() []LogLine, width int) func() string {
	return func() string {
		lines := getLines()
		if len(lines) == 0 {
			return shared.RenderDim("No output yet")
		}

		var builder strings.Builder

		for i, line := range lines {
			text := line.Text
			if width > 0 && len([]rune(text)) > width {
				text = string([]rune(text)[:width])
			}

			if line.IsError {
				text = shared.LogErrorStyle().Render(text)
			}

			builder.WriteString(text)

			if i < len(lines)-1 {
				builder.WriteString("\n")
			}
		}

		return builder.String()
	}
}

// AppendLog adds lines, dropping the oldest beyond limit.
func AppendLog(lines []LogLine, limit int, added ...LogLine) []LogLine {
	lines = append(lines, added...)
	if limit > 0 && len(lines) > limit {
		lines = append([]LogLine(nil), lines[len(lines)-limit:]...)
	}

	return lines
}
