package preflight_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/preflight"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}

		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestCheck_CountsFilesAndExclusions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.txt":                       "hello",
		"b.tmp":                       "scratch",
		"photos/img1.jpg":             "12345678",
		"photos/cache/thumb.jpg":      "xx",
		"web/node_modules/x/index.js": "module",
	})

	job := domain.SyncJob{
		ID:          "j1",
		Source:      src,
		Destination: filepath.Join(t.TempDir(), "not-yet"),
		Options: domain.SyncOptions{
			Excludes: []string{"*.tmp", "node_modules/", "cache/"},
		},
	}

	report, err := preflight.NewChecker().Check(t.Context(), job)
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(report.Source.Exists).To(BeTrue())
	g.Expect(report.Source.IsDir).To(BeTrue())
	g.Expect(report.Destination.Exists).To(BeFalse())
	g.Expect(report.Problems()).To(BeEmpty(), "rsync creates a missing destination")

	g.Expect(report.Files).To(Equal(2))
	g.Expect(report.Bytes).To(Equal(int64(len("hello") + len("12345678"))))
	g.Expect(report.Dirs).To(Equal(2)) // photos, web
	g.Expect(report.Excluded).To(Equal(3))
	g.Expect(report.ExcludedSamples).To(ConsistOf("b.tmp", "photos/cache", "web/node_modules"))
}

func TestCheck_TwoWayNeedsBothSides(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	job := domain.SyncJob{
		Source:      t.TempDir(),
		Destination: filepath.Join(t.TempDir(), "missing"),
		Options:     domain.SyncOptions{TwoWay: true},
	}

	report, err := preflight.NewChecker().Check(t.Context(), job)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Problems()).To(ConsistOf(ContainSubstring("destination")))
}

func TestCheck_SourceMustBeADirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeTree(t, dir, map[string]string{"file.txt": "x"})

	report, err := preflight.NewChecker().Check(t.Context(), domain.SyncJob{Source: file, Destination: dir})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Problems()).To(ConsistOf(ContainSubstring("not a directory")))

	report, err = preflight.NewChecker().Check(t.Context(), domain.SyncJob{Source: filepath.Join(dir, "nope"), Destination: dir})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Problems()).To(ConsistOf(ContainSubstring("does not exist")))
}

func TestPreview_StopsAtEntryLimit(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := t.TempDir()
	writeTree(t, src, map[string]string{"1": "", "2": "", "3": "", "4": ""})

	report, err := preflight.Preview(t.Context(), preflight.LocalFS{}, src, preflight.NewExcludeFilter(nil), 2)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Truncated).To(BeTrue())
	g.Expect(report.Files).To(Equal(2))
}
