//nolint:varnamelen // Test files use idiomatic short variable names
package widgets_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
	"github.com/joe/syncdeck/internal/tui/widgets"
)

func TestNewProgressWidget_Idle(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bar := shared.NewProgressModel(20)
	widget := widgets.NewProgressWidget(&bar, func() *widgets.RunView { return nil })

	g.Expect(widget()).Should(ContainSubstring("No sync running"))
}

func TestNewProgressWidget_ShowsReading(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bar := shared.NewProgressModel(20)
	run := &widgets.RunView{
		Label:   "/src → /dst",
		Leg:     "reverse",
		Queue:   "2 of 3",
		Reading: domain.ProgressReading{Bytes: "1,024", Percentage: 50, Speed: "1.00MB/s", ETA: "0:00:02"},
	}

	result := widgets.NewProgressWidget(&bar, func() *widgets.RunView { return run })()

	g.Expect(result).Should(ContainSubstring("[2 of 3] /src → /dst (reverse)"))
	g.Expect(result).Should(ContainSubstring("1,024  1.00MB/s  ETA 0:00:02"))
}

func TestNewProgressWidget_WaitingForFirstReading(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bar := shared.NewProgressModel(20)
	result := widgets.NewProgressWidget(&bar, func() *widgets.RunView { return &widgets.RunView{Label: "a → b"} })()

	g.Expect(result).Should(ContainSubstring("waiting for output"))
}
