//nolint:varnamelen // Test files use idiomatic short variable names
package widgets_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/widgets"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestNewJobTreeWidget_Empty(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	widget := widgets.NewJobTreeWidget(
		func() []widgets.TreeRow { return nil }, func() int { return 0 }, 60, 10, fixedNow)

	g.Expect(widget()).Should(ContainSubstring("No jobs"))
}

func TestNewJobTreeWidget_RendersHeadersAndJobs(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	project := domain.Project{ID: "p1", Name: "Photos", Color: "#f472b6"}
	job := domain.SyncJob{ID: "j1", Source: "/a", Destination: "/b", Status: domain.StatusCompleted}

	rows := []widgets.TreeRow{
		{Project: project, JobCount: 1},
		{Project: project, Job: &job},
	}

	result := widgets.NewJobTreeWidget(
		func() []widgets.TreeRow { return rows }, func() int { return 1 }, 60, 10, fixedNow)()
	lines := strings.Split(result, "\n")

	g.Expect(lines).To(HaveLen(2))
	g.Expect(lines[0]).To(ContainSubstring("▾"))
	g.Expect(lines[0]).To(ContainSubstring("Photos"))
	g.Expect(lines[0]).To(ContainSubstring("(1)"))
	g.Expect(lines[1]).To(HavePrefix("▶ "))
	g.Expect(lines[1]).To(ContainSubstring("✓"))
	g.Expect(lines[1]).To(ContainSubstring("/a → /b"))
	g.Expect(lines[1]).To(ContainSubstring("never"))
}

func TestNewJobTreeWidget_ScrollsToCursor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	rows := make([]widgets.TreeRow, 20)
	for i := range rows {
		rows[i] = widgets.TreeRow{Project: domain.Project{Name: fmt.Sprintf("project-%02d", i)}}
	}

	result := widgets.NewJobTreeWidget(
		func() []widgets.TreeRow { return rows }, func() int { return 19 }, 60, 5, fixedNow)()
	lines := strings.Split(result, "\n")

	g.Expect(lines).To(HaveLen(5))
	g.Expect(lines[0]).To(ContainSubstring("project-15"))
	g.Expect(lines[4]).To(ContainSubstring("project-19"))
}
