package domain_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected domain.Status
		wantErr  bool
	}{
		{"", domain.StatusIdle, false},
		{"idle", domain.StatusIdle, false},
		{"Running", domain.StatusRunning, false},
		{"completed", domain.StatusCompleted, false},
		{"error", domain.StatusError, false},
		{"paused", domain.StatusIdle, true},
	}

	for _, tt := range tests {
		got, err := domain.ParseStatus(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}

		if got != tt.expected {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestSyncJob_Reversed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	job := domain.SyncJob{ID: "j1", Source: "/a", Destination: "/b", ProjectID: "p"}
	rev := job.Reversed()

	g.Expect(rev.Source).To(Equal("/b"))
	g.Expect(rev.Destination).To(Equal("/a"))
	g.Expect(rev.ID).To(Equal("j1"))
	g.Expect(job.Source).To(Equal("/a"), "original must be unchanged")
}

func TestSyncJob_Validate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	valid := domain.SyncJob{Source: "/a", Destination: "/b", ProjectID: "p", Options: domain.DefaultOptions()}
	g.Expect(valid.Validate()).To(Succeed())

	missingSource := valid
	missingSource.Source = " "
	g.Expect(missingSource.Validate()).To(MatchError(domain.ErrInvalidJob))

	missingProject := valid
	missingProject.ProjectID = ""
	g.Expect(missingProject.Validate()).To(MatchError(domain.ErrInvalidJob))

	badPattern := valid
	badPattern.Options.Excludes = []string{"*.tmp", "[unclosed"}
	g.Expect(badPattern.Validate()).To(MatchError(domain.ErrInvalidJob))

	goodPatterns := valid
	goodPatterns.Options.Excludes = []string{"*.tmp", "node_modules/", "**/.git"}
	g.Expect(goodPatterns.Validate()).To(Succeed())
}

func TestSyncOptions_WithUpdate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	opts := domain.SyncOptions{Archive: true, Excludes: []string{"a"}}
	forced := opts.WithUpdate()

	g.Expect(forced.Update).To(BeTrue())
	g.Expect(opts.Update).To(BeFalse())

	forced.Excludes[0] = "changed"
	g.Expect(opts.Excludes[0]).To(Equal("a"), "excludes must not alias")
}

func TestProgressReading_Completed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	r := domain.ProgressReading{Bytes: "5/10 files", Percentage: 50, Speed: "N/A", ETA: "N/A"}
	done := r.Completed()

	g.Expect(done.Percentage).To(Equal(100))
	g.Expect(done.Bytes).To(Equal("5/10 files"))
	g.Expect(r.Percentage).To(Equal(50))
	g.Expect(done.Fraction()).To(BeNumerically("==", 1))
	g.Expect(r.Fraction()).To(BeNumerically("~", 0.5, 0.0001))
}
