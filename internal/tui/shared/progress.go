package shared

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/joe/syncdeck/internal/domain"
)

// NewProgressModel creates a transfer bar. The percentage is rendered by
// the caller next to the reading details, not by the model.
func NewProgressModel(width int) progress.Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = width

	if !colorsDisabled {
		bar.EmptyColor = dimColorCode
		bar.FullColor = accentColorCode
	}

	return bar
}

// RenderProgressBar draws reading with the styled bar, or as ASCII when
// colors are off.
func RenderProgressBar(model progress.Model, reading domain.ProgressReading) string {
	if colorsDisabled {
		return RenderASCIIProgress(reading, model.Width)
	}

	return model.ViewAs(reading.Fraction())
}

// RenderASCIIProgress draws reading as "[====>    ] 45%". The arrow sits in
// the last filled cell; a finished transfer has none.
func RenderASCIIProgress(reading domain.ProgressReading, width int) string {
	fraction := reading.Fraction()
	filled := int(fraction * float64(width))

	var cells string

	switch {
	case filled >= width:
		cells = strings.Repeat("=", width)
	case fraction > 0:
		done := max(filled-1, 0)
		cells = strings.Repeat("=", done) + ">" + strings.Repeat(" ", width-done-1)
	default:
		cells = strings.Repeat(" ", width)
	}

	return fmt.Sprintf("[%s] %d%%", cells, min(max(reading.Percentage, 0), ProgressPercentageScale))
}

// RenderReadingDetails renders the byte count, speed and ETA of a reading on
// one line, skipping fields the tool did not report.
func RenderReadingDetails(reading domain.ProgressReading) string {
	parts := make([]string, 0, 3) //nolint:mnd // bytes, speed, eta

	if reading.Bytes != "" {
		parts = append(parts, reading.Bytes)
	}

	if reading.Speed != "" && reading.Speed != domain.NotAvailable {
		parts = append(parts, reading.Speed)
	}

	if reading.ETA != "" && reading.ETA != domain.NotAvailable {
		parts = append(parts, "ETA "+reading.ETA)
	}

	return strings.Join(parts, "  ")
}

// ProgressWidth fits a bar into a pane of the given width.
func ProgressWidth(paneWidth int) int {
	const margin = 10

	return min(max(paneWidth-margin, MinProgressBarWidth), MaxProgressBarWidth)
}
