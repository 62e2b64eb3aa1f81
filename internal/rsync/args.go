package rsync

import (
	"strings"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/progress"
)

// Request describes one rsync invocation: a single direction of a job.
type Request struct {
	Source      string
	Destination string
	Options     domain.SyncOptions
}

// RequestFor builds the request for a job's forward direction.
func RequestFor(job domain.SyncJob) Request {
	return Request{Source: job.Source, Destination: job.Destination, Options: job.Options}
}

// NormalizeSource appends a trailing slash so rsync copies the directory's
// contents rather than the directory itself.
func NormalizeSource(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}

	return path + "/"
}

// BuildArgs returns the argument vector for req. Flag order is fixed.
func BuildArgs(req Request, dialect progress.Dialect) []string {
	opts := req.Options

	flags := []struct {
		enabled bool
		token   string
	}{
		{opts.Archive, "-a"},
		{opts.Verbose, "-v"},
		{opts.Compress, "-z"},
		{opts.Update, "-u"},
		{opts.Delete, "--delete"},
		{opts.DryRun, "--dry-run"},
	}

	args := make([]string, 0, len(flags)+2*len(opts.Excludes)+5) //nolint:mnd // progress flags and paths

	for _, f := range flags {
		if f.enabled {
			args = append(args, f.token)
		}
	}

	for _, pattern := range opts.Excludes {
		args = append(args, "--exclude", pattern)
	}

	args = append(args, "--progress")

	if dialect == progress.DialectStructured {
		args = append(args, "--info=progress2", "--no-inc-recursive")
	}

	return append(args, NormalizeSource(req.Source), req.Destination)
}
