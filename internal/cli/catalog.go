package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/joe/syncdeck/internal/config"
	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/tui/shared"
)

// projectPalette colors projects created without --color, in turn.
var projectPalette = []string{"#60a5fa", "#f472b6", "#34d399", "#fbbf24", "#a78bfa", "#f87171"}

func (c *Commands) project(cmd *config.ProjectCmd) error {
	switch {
	case cmd.Add != nil:
		return c.AddProject(cmd.Add.Name, cmd.Add.Color)
	case cmd.Rm != nil:
		return c.RemoveProject(cmd.Rm.ID)
	case cmd.Rename != nil:
		return c.RenameProject(cmd.Rename.ID, cmd.Rename.Name, cmd.Rename.Color)
	default:
		return c.ListProjects()
	}
}

func (c *Commands) job(cmd *config.JobCmd) error {
	switch {
	case cmd.Add != nil:
		return c.AddJob(cmd.Add.Job())
	case cmd.Edit != nil:
		return c.EditJob(cmd.Edit)
	case cmd.Rm != nil:
		return c.RemoveJob(cmd.Rm.ID)
	case cmd.Find != nil:
		return c.FindJobs(cmd.Find.Query)
	default:
		return c.ListJobs(cmd.List.Project)
	}
}

// ListProjects prints every project with its job count.
func (c *Commands) ListProjects() error {
	projects, err := c.catalog.ListProjects()
	if err != nil {
		return err
	}

	jobs, err := c.catalog.ListJobs()
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(projects))
	for _, job := range jobs {
		counts[job.ProjectID]++
	}

	rows := make([][]string, 0, len(projects))
	for _, project := range projects {
		rows = append(rows, []string{
			project.ID,
			shared.ProjectStyle(project.Color).Render(project.Name),
			project.Color,
			strconv.Itoa(counts[project.ID]),
		})
	}

	c.printTable([]string{"ID", "NAME", "COLOR", "JOBS"}, rows)

	return nil
}

// AddProject creates a project. An empty color picks the next palette entry.
func (c *Commands) AddProject(name, color string) error {
	if color == "" {
		projects, err := c.catalog.ListProjects()
		if err != nil {
			return err
		}

		color = projectPalette[len(projects)%len(projectPalette)]
	}

	project, err := c.catalog.AddProject(name, color)
	if err != nil {
		return fmt.Errorf("adding project: %w", err)
	}

	fmt.Fprintf(c.out, "added project %s (%s)\n", project.Name, project.ID)

	return nil
}

// RemoveProject deletes a project and its jobs.
func (c *Commands) RemoveProject(id string) error {
	removed, err := c.catalog.DeleteProject(id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	fmt.Fprintf(c.out, "deleted project %s and %d job(s)\n", id, removed)

	return nil
}

// RenameProject changes a project's name and, if given, its color.
func (c *Commands) RenameProject(id, name, color string) error {
	project, err := c.catalog.GetProject(id)
	if err != nil {
		return err
	}

	project.Name = name
	if color != "" {
		project.Color = color
	}

	if err := c.catalog.UpdateProject(project); err != nil {
		return fmt.Errorf("renaming project: %w", err)
	}

	fmt.Fprintf(c.out, "renamed project %s to %s\n", id, name)

	return nil
}

// ListJobs prints jobs, optionally only those of one project.
func (c *Commands) ListJobs(projectID string) error {
	var (
		jobs []domain.SyncJob
		err  error
	)

	if projectID != "" {
		jobs, err = c.catalog.ListProjectJobs(projectID)
	} else {
		jobs, err = c.catalog.ListJobs()
	}

	if err != nil {
		return err
	}

	c.printJobs(jobs)

	return nil
}

// AddJob validates and stores a new job.
func (c *Commands) AddJob(job domain.SyncJob) error {
	added, err := c.catalog.AddJob(job)
	if err != nil {
		return fmt.Errorf("adding job: %w", err)
	}

	fmt.Fprintf(c.out, "added job %s: %s\n", added.ID, added.Label())

	return nil
}

// EditJob applies the edit flags to a stored job.
func (c *Commands) EditJob(cmd *config.JobEditCmd) error {
	job, err := c.catalog.GetJob(cmd.ID)
	if err != nil {
		return err
	}

	if err := c.catalog.UpdateJob(cmd.Apply(job)); err != nil {
		return fmt.Errorf("updating job: %w", err)
	}

	fmt.Fprintf(c.out, "updated job %s\n", cmd.ID)

	return nil
}

// RemoveJob deletes a job.
func (c *Commands) RemoveJob(id string) error {
	if err := c.catalog.DeleteJob(id); err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}

	fmt.Fprintf(c.out, "deleted job %s\n", id)

	return nil
}

// FindJobs prints the jobs whose source or destination fuzzily match query,
// closest first.
func (c *Commands) FindJobs(query string) error {
	jobs, err := c.catalog.ListJobs()
	if err != nil {
		return err
	}

	targets := make([]string, len(jobs))
	for i, job := range jobs {
		targets[i] = job.Source + " " + job.Destination
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	found := make([]domain.SyncJob, 0, len(ranks))
	for _, rank := range ranks {
		found = append(found, jobs[rank.OriginalIndex])
	}

	if len(found) == 0 {
		fmt.Fprintf(c.out, "no jobs match %q\n", query)

		return nil
	}

	c.printJobs(found)

	return nil
}

func (c *Commands) printJobs(jobs []domain.SyncJob) {
	now := c.now()

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.ID,
			job.ProjectID,
			shared.StatusSymbol(job.Status) + " " + job.Status.String(),
			job.Label(),
			optionSummary(job.Options),
			shared.FormatLastSync(job.LastSync, now),
		})
	}

	c.printTable([]string{"ID", "PROJECT", "STATUS", "JOB", "OPTIONS", "LAST SYNC"}, rows)
}

// optionSummary lists a job's options the way rsync spells them.
func optionSummary(opts domain.SyncOptions) string {
	var parts []string

	flags := []struct {
		on   bool
		flag string
	}{
		{opts.Archive, "-a"},
		{opts.Verbose, "-v"},
		{opts.Compress, "-z"},
		{opts.Update, "-u"},
		{opts.Delete, "--delete"},
		{opts.DryRun, "--dry-run"},
		{opts.TwoWay, "two-way"},
	}

	for _, f := range flags {
		if f.on {
			parts = append(parts, f.flag)
		}
	}

	for _, pattern := range opts.Excludes {
		parts = append(parts, "--exclude "+pattern)
	}

	return strings.Join(parts, " ")
}
