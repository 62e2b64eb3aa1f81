package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joe/syncdeck/internal/preflight"
)

// ErrNoChecker is returned by check when no preflight checker is configured.
var ErrNoChecker = errors.New("no preflight checker configured")

// Check preflights a stored job and prints the report.
func (c *Commands) Check(ctx context.Context, jobID string) error {
	if c.checker == nil {
		return ErrNoChecker
	}

	job, err := c.catalog.GetJob(jobID)
	if err != nil {
		return err
	}

	report, err := c.checker.Check(ctx, job)
	if err != nil {
		return fmt.Errorf("checking %s: %w", job.Label(), err)
	}

	fmt.Fprintf(c.out, "%-12s %s\n", "source", describeEndpoint(report.Source))
	fmt.Fprintf(c.out, "%-12s %s\n", "destination", describeEndpoint(report.Destination))

	if report.Source.Exists && report.Source.IsDir {
		more := ""
		if report.Truncated {
			more = "+"
		}

		fmt.Fprintf(c.out, "%-12s %d%s file(s), %s, in %d%s dir(s)\n", "transfer",
			report.Files, more, humanize.Bytes(uint64(max(report.Bytes, 0))), report.Dirs, more)

		if report.Excluded > 0 {
			fmt.Fprintf(c.out, "%-12s %d: %s", "excluded", report.Excluded, strings.Join(report.ExcludedSamples, ", "))

			if report.Excluded > len(report.ExcludedSamples) {
				fmt.Fprint(c.out, ", …")
			}

			fmt.Fprintln(c.out)
		}
	}

	problems := report.Problems()
	if len(problems) == 0 {
		fmt.Fprintln(c.out, "ok")

		return nil
	}

	for _, problem := range problems {
		fmt.Fprintf(c.errOut, "✗ %s\n", problem)
	}

	return fmt.Errorf("%w: %d", ErrCheckFailed, len(problems))
}

func describeEndpoint(report preflight.EndpointReport) string {
	where := "local"
	if report.Endpoint.Remote {
		where = "remote"
	}

	state := "directory"

	switch {
	case report.Err != nil:
		state = "unreachable"
	case !report.Exists:
		state = "missing"
	case !report.IsDir:
		state = "not a directory"
	}

	return fmt.Sprintf("%s (%s, %s)", report.Endpoint, where, state)
}
