// Package preflight inspects a job's endpoints before it runs: whether the
// source and destination exist, how many files the source holds, and which
// of them the exclude patterns drop.
//
// Local endpoints are read directly. Remote `[user@]host:path` endpoints are
// read over SFTP using the same SSH credentials rsync would use.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kr/fs"

	"github.com/joe/syncdeck/internal/domain"
)

// Exported constants.
const (
	// DefaultMaxEntries caps how many entries a preview walks.
	DefaultMaxEntries = 200_000
	// ExcludedSampleLimit is how many excluded paths a report lists.
	ExcludedSampleLimit = 10
)

// FileSystem is what a preview needs from a local or remote tree.
// *sftp.Client satisfies it.
type FileSystem interface {
	fs.FileSystem
	Stat(name string) (os.FileInfo, error)
}

// EndpointReport describes one side of a job.
type EndpointReport struct {
	Endpoint Endpoint
	Exists   bool
	IsDir    bool
	// Err is a failure other than the path not existing.
	Err error
}

// Report is the outcome of a preflight check.
type Report struct {
	Source      EndpointReport
	Destination EndpointReport
	TwoWay      bool

	Files           int
	Dirs            int
	Bytes           int64
	Excluded        int
	ExcludedSamples []string
	// Truncated is set when the walk stopped at the entry limit.
	Truncated bool
}

// Problems lists the reasons the job would fail. An empty list means the
// job looks runnable.
func (r Report) Problems() []string {
	var problems []string

	problems = append(problems, r.Source.problems("source", true)...)
	problems = append(problems, r.Destination.problems("destination", r.TwoWay)...)

	return problems
}

func (e EndpointReport) problems(role string, mustExist bool) []string {
	switch {
	case e.Err != nil:
		return []string{fmt.Sprintf("%s %s: %v", role, e.Endpoint, e.Err)}
	case !e.Exists && mustExist:
		return []string{fmt.Sprintf("%s %s does not exist", role, e.Endpoint)}
	case e.Exists && !e.IsDir:
		return []string{fmt.Sprintf("%s %s is not a directory", role, e.Endpoint)}
	default:
		return nil
	}
}

// Checker runs preflight checks.
type Checker struct {
	connect    func(Endpoint) (*SFTPConnection, error)
	maxEntries int
	logger     *slog.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithMaxEntries caps the preview walk.
func WithMaxEntries(n int) CheckerOption {
	return func(c *Checker) { c.maxEntries = n }
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(logger *slog.Logger) CheckerOption {
	return func(c *Checker) { c.logger = logger }
}

// NewChecker creates a checker that reaches remote endpoints over SFTP.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		connect:    Connect,
		maxEntries: DefaultMaxEntries,
		logger:     slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check inspects both endpoints of job and previews its source tree.
func (c *Checker) Check(ctx context.Context, job domain.SyncJob) (Report, error) {
	src, err := ParseEndpoint(job.Source)
	if err != nil {
		return Report{}, fmt.Errorf("source: %w", err)
	}

	dst, err := ParseEndpoint(job.Destination)
	if err != nil {
		return Report{}, fmt.Errorf("destination: %w", err)
	}

	var closers []io.Closer

	defer func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}()

	open := func(ep Endpoint) (FileSystem, error) {
		if !ep.Remote {
			return LocalFS{}, nil
		}

		conn, err := c.connect(ep)
		if err != nil {
			return nil, err
		}

		closers = append(closers, conn)

		return conn.Client(), nil
	}

	report := Report{TwoWay: job.Options.TwoWay}

	srcFS, srcErr := open(src)
	report.Source = inspect(src, srcFS, srcErr)

	dstFS, dstErr := open(dst)
	report.Destination = inspect(dst, dstFS, dstErr)

	if report.Source.Exists && report.Source.IsDir {
		if err := c.preview(ctx, srcFS, src.Path, NewExcludeFilter(job.Options.Excludes), &report); err != nil {
			return report, err
		}
	}

	c.logger.Info("preflight complete",
		"job_id", job.ID,
		"files", report.Files,
		"excluded", report.Excluded,
		"problems", len(report.Problems()))

	return report, nil
}

// Preview walks root on fsys and counts what an rsync of it would transfer.
func Preview(ctx context.Context, fsys FileSystem, root string, filter *ExcludeFilter, maxEntries int) (Report, error) {
	c := &Checker{maxEntries: maxEntries, logger: slog.New(slog.DiscardHandler)}

	var report Report

	err := c.preview(ctx, fsys, root, filter, &report)

	return report, err
}

func inspect(ep Endpoint, fsys FileSystem, openErr error) EndpointReport {
	report := EndpointReport{Endpoint: ep}
	if openErr != nil {
		report.Err = openErr

		return report
	}

	info, err := fsys.Stat(ep.Path)

	switch {
	case err == nil:
		report.Exists = true
		report.IsDir = info.IsDir()
	case errors.Is(err, os.ErrNotExist):
	default:
		report.Err = err
	}

	return report
}

func (c *Checker) preview(ctx context.Context, fsys FileSystem, root string, filter *ExcludeFilter, report *Report) error {
	walker := fs.WalkFS(root, fsys)
	cleanRoot := strings.TrimSuffix(root, "/")
	seen := 0

	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := walker.Err(); err != nil {
			c.logger.Debug("preview walk error", "path", walker.Path(), "error", err)

			continue
		}

		rel := relativeTo(cleanRoot, walker.Path())
		if rel == "" {
			continue
		}

		seen++
		if c.maxEntries > 0 && seen > c.maxEntries {
			report.Truncated = true

			return nil
		}

		info := walker.Stat()

		if _, excluded := filter.Excluded(rel, info.IsDir()); excluded {
			report.Excluded++
			if len(report.ExcludedSamples) < ExcludedSampleLimit {
				report.ExcludedSamples = append(report.ExcludedSamples, rel)
			}

			if info.IsDir() {
				walker.SkipDir()
			}

			continue
		}

		if info.IsDir() {
			report.Dirs++
		} else {
			report.Files++
			report.Bytes += info.Size()
		}
	}

	return nil
}

// relativeTo returns p relative to root in slash form, or "" for the root.
func relativeTo(root, p string) string {
	if p == root {
		return ""
	}

	var rel string
	if root == "." {
		rel = strings.TrimPrefix(p, "./")
	} else {
		rel = strings.TrimPrefix(p, root)
	}

	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")
	if rel == "" {
		return ""
	}

	return path.Clean(rel)
}

// LocalFS is the local filesystem as a FileSystem.
type LocalFS struct{}

// ReadDir lists a directory.
func (LocalFS) ReadDir(dirname string) ([]os.FileInfo, error) {
	dir, err := os.Open(dirname)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	return dir.Readdir(-1)
}

// Lstat describes a file without following a final symlink.
func (LocalFS) Lstat(name string) (os.FileInfo, error) {
	return os.Lstat(name)
}

// Stat describes a file.
func (LocalFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Join joins path elements.
func (LocalFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}
