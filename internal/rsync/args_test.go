//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package rsync_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/progress"
	"github.com/joe/syncdeck/internal/rsync"
)

// TestBuildArgs_OneTokenPerEnabledFlag walks every combination of the six
// boolean options.
func TestBuildArgs_OneTokenPerEnabledFlag(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tokens := []string{"-a", "-v", "-z", "-u", "--delete", "--dry-run"}

	for mask := range 1 << len(tokens) {
		opts := domain.SyncOptions{
			Archive:  mask&1 != 0,
			Verbose:  mask&2 != 0,
			Compress: mask&4 != 0,
			Update:   mask&8 != 0,
			Delete:   mask&16 != 0,
			DryRun:   mask&32 != 0,
		}

		var want []string

		for i, token := range tokens {
			if mask&(1<<i) != 0 {
				want = append(want, token)
			}
		}

		want = append(want, "--progress", "/src/", "/dst")

		got := rsync.BuildArgs(rsync.Request{Source: "/src", Destination: "/dst", Options: opts}, progress.DialectFallback)
		g.Expect(got).To(Equal(want), "mask %06b", mask)
	}
}

func TestBuildArgs_ExcludesAndStructuredFlags(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	req := rsync.Request{
		Source:      "/home/me/photos/",
		Destination: "nas:/backup/photos",
		Options: domain.SyncOptions{
			Archive:  true,
			Excludes: []string{"*.tmp", ".DS_Store", "cache/"},
		},
	}

	g.Expect(rsync.BuildArgs(req, progress.DialectStructured)).To(Equal([]string{
		"-a",
		"--exclude", "*.tmp",
		"--exclude", ".DS_Store",
		"--exclude", "cache/",
		"--progress",
		"--info=progress2", "--no-inc-recursive",
		"/home/me/photos/",
		"nas:/backup/photos",
	}))
}

func TestNormalizeSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"/a/b", "/a/b/"},
		{"/a/b/", "/a/b/"},
		{"host:/srv", "host:/srv/"},
		{"", "/"},
	}

	for _, tt := range tests {
		if got := rsync.NormalizeSource(tt.input); got != tt.expected {
			t.Errorf("NormalizeSource(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRequestFor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	job := domain.SyncJob{Source: "/a", Destination: "/b", Options: domain.DefaultOptions()}
	req := rsync.RequestFor(job)

	g.Expect(req.Source).To(Equal("/a"))
	g.Expect(req.Destination).To(Equal("/b"))
	g.Expect(req.Options).To(Equal(job.Options))
}

func TestClassifyVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		output   string
		expected progress.Dialect
	}{
		{
			name:     "gnu",
			output:   "rsync  version 3.2.7  protocol version 31\nCopyright (C) 1996-2022 by Andrew Tridgell",
			expected: progress.DialectStructured,
		},
		{
			name:     "openrsync",
			output:   "openrsync: protocol version 29\nrsync  version 2.6.9 compatible",
			expected: progress.DialectFallback,
		},
		{
			name:     "old single space banner",
			output:   "rsync version 2.6.9 protocol version 29",
			expected: progress.DialectFallback,
		},
		{
			name:     "empty",
			output:   "",
			expected: progress.DialectFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := rsync.ClassifyVersion(tt.output); got != tt.expected {
				t.Errorf("ClassifyVersion() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDetectDialect_MissingBinaryFallsBack(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	d := rsync.DetectDialect(t.Context(), "/nonexistent/syncdeck-rsync")
	g.Expect(d).To(Equal(progress.DialectFallback))
}
