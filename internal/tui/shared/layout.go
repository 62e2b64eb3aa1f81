package shared

import "github.com/charmbracelet/lipgloss"

const (
	borderSize = 2
	// paneOverhead is what borders and horizontal padding take from a pane.
	paneOverhead = 4
)

// RenderTwoColumnLayout renders content in two columns with a 45-55 width
// split, the job tree on the left and run details on the right.
func RenderTwoColumnLayout(leftContent, rightContent string, width, height int) string {
	leftWidth := LeftColumnWidth(width)
	rightWidth := width - leftWidth

	leftStyle := lipgloss.NewStyle().Width(leftWidth).Height(height)
	rightStyle := lipgloss.NewStyle().Width(rightWidth).Height(height)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(leftContent),
		rightStyle.Render(rightContent),
	)
}

// LeftColumnWidth is the width RenderTwoColumnLayout gives its left column.
func LeftColumnWidth(width int) int {
	return int(float64(width) * 0.45) //nolint:mnd // column split
}

// RenderPane renders content in a titled box. The focused pane gets the
// primary border color.
func RenderPane(title, content string, width, height int, focused bool) string {
	style := BoxStyle()
	if focused {
		style = FocusedBoxStyle()
	}

	// lipgloss sizes exclude the border
	style = style.Width(max(width-borderSize, 1))
	if height > borderSize {
		style = style.Height(height - borderSize)
	}

	return style.Render(TitleStyle().Render(title) + "\n" + content)
}

// PaneContentWidth is the usable text width inside a pane of width.
func PaneContentWidth(width int) int {
	return max(width-paneOverhead, 1)
}
