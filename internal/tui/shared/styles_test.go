//nolint:varnamelen // Test files use idiomatic short variable names (g, etc.)
package shared_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
)

func TestRenderFunctions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(shared.RenderDim("test")).Should(ContainSubstring("test"))
	g.Expect(shared.RenderError("test")).Should(ContainSubstring("test"))
	g.Expect(shared.RenderLabel("test")).Should(ContainSubstring("test"))
	g.Expect(shared.RenderSuccess("test")).Should(ContainSubstring("test"))
	g.Expect(shared.RenderTitle("test")).Should(ContainSubstring("test"))
	g.Expect(shared.RenderWarning("test")).Should(ContainSubstring("test"))
	g.Expect(shared.ProjectStyle("").Render("General")).Should(ContainSubstring("General"))
}

func TestStatusSymbol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status domain.Status
		want   string
	}{
		{domain.StatusIdle, "○"},
		{domain.StatusRunning, "●"},
		{domain.StatusCompleted, "✓"},
		{domain.StatusError, "✗"},
	}

	for _, tt := range tests {
		if got := shared.StatusSymbol(tt.status); got != tt.want {
			t.Errorf("StatusSymbol(%s) = %q, want %q", tt.status, got, tt.want)
		}

		if rendered := shared.StatusStyle(tt.status).Render(tt.want); rendered == "" {
			t.Errorf("StatusStyle(%s) rendered nothing", tt.status)
		}
	}
}
