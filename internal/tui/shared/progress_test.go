package shared_test

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// bar builds an expected ASCII bar of done '=' cells, an arrow, and blanks.
func bar(done, blank int, label string) string {
	return "[" + strings.Repeat("=", done) + ">" + strings.Repeat(" ", blank) + "] " + label
}

func TestRenderASCIIProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		percentage int
		width      int
		expected   string
	}{
		{"empty", 0, 40, "[" + strings.Repeat(" ", 40) + "] 0%"},
		{"negative clamps to empty", -5, 10, "[" + strings.Repeat(" ", 10) + "] 0%"},
		{"quarter", 25, 40, bar(9, 30, "25%")},
		{"mid", 45, 40, bar(17, 22, "45%")},
		{"three quarters", 75, 40, bar(29, 10, "75%")},
		{"half of narrow", 50, 20, bar(9, 10, "50%")},
		{"width 5", 50, 5, "[=>   ] 50%"},
		{"width 3", 50, 3, "[>  ] 50%"},
		{"width 1", 50, 1, "[>] 50%"},
		{"done", 100, 40, "[" + strings.Repeat("=", 40) + "] 100%"},
		{"over reports clamp", 130, 8, "[========] 100%"},
	}

	for _, tt := range tests { //nolint:varnamelen // Standard Go idiom for table-driven tests
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			got := shared.RenderASCIIProgress(domain.ProgressReading{Percentage: tt.percentage}, tt.width)
			g.Expect(got).To(Equal(tt.expected))
		})
	}
}

func TestRenderASCIIProgress_CompletedReadingIsFull(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	reading := domain.ProgressReading{Bytes: "3/10 files", Percentage: 30}.Completed()

	g.Expect(shared.RenderASCIIProgress(reading, 4)).To(Equal("[====] 100%"))
}

//nolint:paralleltest // This test modifies package-level state (colorsDisabled variable)
func TestRenderProgressBar_ASCIIWhenColorsDisabled(t *testing.T) {
	g := NewWithT(t)

	defer shared.SetColorsDisabledForTesting(shared.GetColorsDisabled())

	shared.SetColorsDisabledForTesting(true)

	model := shared.NewProgressModel(40)
	g.Expect(shared.RenderProgressBar(model, domain.ProgressReading{Percentage: 45})).To(Equal(bar(17, 22, "45%")))
}

//nolint:paralleltest // This test modifies package-level state (colorsDisabled variable)
func TestRenderProgressBar_StyledWhenColorsEnabled(t *testing.T) {
	g := NewWithT(t)

	defer shared.SetColorsDisabledForTesting(shared.GetColorsDisabled())

	shared.SetColorsDisabledForTesting(false)

	model := shared.NewProgressModel(40)
	got := shared.RenderProgressBar(model, domain.ProgressReading{Percentage: 45})

	g.Expect(got).NotTo(BeEmpty())
	g.Expect(got).NotTo(Equal(bar(17, 22, "45%")))
	g.Expect(got).NotTo(ContainSubstring("45%"))
}

func TestRenderReadingDetails(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(shared.RenderReadingDetails(domain.ProgressReading{
		Bytes: "1,234,567", Percentage: 40, Speed: "2.10MB/s", ETA: "0:00:03",
	})).To(Equal("1,234,567  2.10MB/s  ETA 0:00:03"))

	g.Expect(shared.RenderReadingDetails(domain.ProgressReading{
		Bytes: "3/10 files", Percentage: 30, Speed: domain.NotAvailable, ETA: domain.NotAvailable,
	})).To(Equal("3/10 files"))
}

func TestProgressWidth(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(shared.ProgressWidth(15)).To(Equal(shared.MinProgressBarWidth))
	g.Expect(shared.ProgressWidth(70)).To(Equal(60))
	g.Expect(shared.ProgressWidth(500)).To(Equal(shared.MaxProgressBarWidth))
}
