package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joe/syncdeck/internal/config"
	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// runEventBuffer is how many events a headless run queues before the
// sequencer waits for the printer.
const runEventBuffer = 1024

// Exported variables.
var (
	ErrRunStopped = errors.New("run stopped")
	ErrNoRunner   = errors.New("no runner configured")
)

// Run starts a job or project and prints its progress until it ends.
func (c *Commands) Run(ctx context.Context, cmd *config.RunCmd) error {
	if c.runner == nil {
		return ErrNoRunner
	}

	feed := make(chan events.Event, runEventBuffer)
	done := make(chan struct{})

	defer close(done)

	c.runner.Subscribe(events.EmitterFunc(func(event events.Event) {
		select {
		case feed <- event:
		case <-done:
		}
	}))

	project := cmd.Project != ""

	var err error
	if project {
		err = c.runner.RunProject(ctx, cmd.Project)
	} else {
		err = c.runner.RunJob(ctx, cmd.Job)
	}

	if err != nil {
		return err
	}

	printer := &runPrinter{
		out:    c.out,
		errOut: c.errOut,
		live:   c.live,
		labels: map[string]string{},
		stdout: &lineSplitter{},
		stderr: &lineSplitter{},
	}

	for {
		select {
		case <-ctx.Done():
			printer.clearLive()

			return ctx.Err()
		case event := <-feed:
			if printer.handle(event, project) {
				return printer.result()
			}
		}
	}
}

// runPrinter renders one headless run.
type runPrinter struct {
	out    io.Writer
	errOut io.Writer
	live   bool
	// drawn is set while a live progress line is on screen.
	drawn bool

	stdout *lineSplitter
	stderr *lineSplitter

	labels    map[string]string
	succeeded int
	failed    int
	stopped   bool
}

// handle prints event and reports whether the run is over.
func (p *runPrinter) handle(event events.Event, project bool) bool {
	switch e := event.(type) {
	case events.ProjectStarted:
		p.println(p.out, fmt.Sprintf("project %s: %d job(s)", e.ProjectID, e.Total))
	case events.JobStarted:
		p.stdout.reset()
		p.stderr.reset()

		label := e.Source + " → " + e.Dest
		if e.Leg == events.LegForward {
			p.labels[e.JobID] = label
		}

		p.println(p.out, fmt.Sprintf("▶ %s (%s)", label, e.Leg))
	case events.OutputLine:
		p.printLines(p.out, p.stdout.split(e.Text))
	case events.ErrorLine:
		p.printLines(p.errOut, p.stderr.split(e.Text))
	case events.RunComplete:
		p.flush()
	case events.ProgressUpdated:
		p.drawLive(e.Reading)
	case events.JobFinished:
		p.flush()
		p.finish(e)

		return !project
	case events.ProjectFinished:
		return true
	case events.RunStopped:
		p.stopped = true
		p.println(p.errOut, "■ stopped")

		return true
	}

	return false
}

func (p *runPrinter) finish(e events.JobFinished) {
	label, ok := p.labels[e.JobID]
	if !ok {
		label = e.JobID
	}

	if e.Status == domain.StatusCompleted {
		p.succeeded++
		p.println(p.out, "✓ "+label)

		return
	}

	p.failed++
	p.println(p.errOut, "✗ "+label)
	fmt.Fprint(p.errOut, shared.RenderRunError(e.Err, 0))
}

func (p *runPrinter) result() error {
	p.clearLive()

	switch {
	case p.stopped:
		return ErrRunStopped
	case p.failed > 0:
		return fmt.Errorf("%w: %d of %d job(s) failed", ErrRunFailed, p.failed, p.failed+p.succeeded)
	default:
		fmt.Fprintf(p.out, "done: %d job(s) succeeded\n", p.succeeded)

		return nil
	}
}

func (p *runPrinter) printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		if line = shared.SanitizeLine(line); strings.TrimSpace(line) != "" {
			p.println(w, line)
		}
	}
}

// flush prints what is left unterminated on either stream.
func (p *runPrinter) flush() {
	p.printLines(p.out, p.stdout.flush())
	p.printLines(p.errOut, p.stderr.flush())
}

// lineSplitter cuts a byte stream delivered in arbitrary chunks into lines.
// A line rewritten with carriage returns is a progress redraw and is
// dropped; those readings arrive as ProgressUpdated instead.
type lineSplitter struct {
	pending string
	redraw  bool
}

func (l *lineSplitter) split(chunk string) []string {
	var lines []string

	text := l.pending + chunk

	for {
		i := strings.IndexAny(text, "\r\n")
		if i < 0 {
			l.pending = text

			return lines
		}

		if text[i] == '\r' {
			l.redraw = true
		} else {
			if !l.redraw {
				lines = append(lines, text[:i])
			}

			l.redraw = false
		}

		text = text[i+1:]
	}
}

func (l *lineSplitter) flush() []string {
	tail, redraw := l.pending, l.redraw
	l.reset()

	if tail == "" || redraw {
		return nil
	}

	return []string{tail}
}

func (l *lineSplitter) reset() {
	l.pending = ""
	l.redraw = false
}

func (p *runPrinter) println(w io.Writer, line string) {
	p.clearLive()
	fmt.Fprintln(w, line)
}

func (p *runPrinter) drawLive(reading domain.ProgressReading) {
	if !p.live {
		return
	}

	line := shared.RenderASCIIProgress(reading, shared.ProgressBarWidth)
	if details := shared.RenderReadingDetails(reading); details != "" {
		line += "  " + details
	}

	fmt.Fprint(p.out, "\r\x1b[K"+line)
	p.drawn = true
}

func (p *runPrinter) clearLive() {
	if p.drawn {
		fmt.Fprint(p.out, "\r\x1b[K")
		p.drawn = false
	}
}
