package store

import (
	"fmt"
	"io"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	"github.com/joe/syncdeck/internal/domain"
)

// ExportVersion is written into every export document.
const ExportVersion = 1

// Document is the YAML export format.
type Document struct {
	Version  int              `yaml:"version"`
	Projects []domain.Project `yaml:"projects"`
	Jobs     []domain.SyncJob `yaml:"jobs"`
}

// ImportResult counts what Import wrote.
type ImportResult struct {
	Projects int
	Jobs     int
}

// Export writes every project and job as YAML.
func (s *Store) Export(w io.Writer) error {
	projects, err := s.ListProjects()
	if err != nil {
		return err
	}

	jobs, err := s.ListJobs()
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2) //nolint:mnd // yaml indent

	if err := encoder.Encode(Document{Version: ExportVersion, Projects: projects, Jobs: jobs}); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	return encoder.Close()
}

// Import reads a YAML export and merges it in one transaction. Records
// with an existing id are replaced in place; new ones are appended.
// Imported jobs start idle. A job referring to a project that exists
// neither in the document nor in the store aborts the whole import.
func (s *Store) Import(r io.Reader) (ImportResult, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return ImportResult{}, fmt.Errorf("failed to decode import: %w", err)
	}

	if doc.Version != ExportVersion {
		return ImportResult{}, fmt.Errorf("unsupported export version %d", doc.Version)
	}

	for _, job := range doc.Jobs {
		if err := job.Validate(); err != nil {
			return ImportResult{}, fmt.Errorf("job %s: %w", job.ID, err)
		}
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		projects := tx.Bucket(bucketProjects)

		for _, project := range doc.Projects {
			if project.ID == "" {
				project.ID = newID()
			}

			if err := upsertProject(tx, project); err != nil {
				return err
			}
		}

		for _, job := range doc.Jobs {
			if projects.Get([]byte(job.ProjectID)) == nil {
				return fmt.Errorf("job %s: %w: %s", job.ID, domain.ErrProjectNotFound, job.ProjectID)
			}

			if job.ID == "" {
				job.ID = newID()
			}

			job.Status = domain.StatusIdle

			if err := upsertJob(tx, job); err != nil {
				return err
			}
		}

		return tx.Bucket(bucketMeta).Put(keySeeded, []byte("1"))
	})
	if err != nil {
		return ImportResult{}, err
	}

	return ImportResult{Projects: len(doc.Projects), Jobs: len(doc.Jobs)}, nil
}

func upsertProject(tx *bolt.Tx, project domain.Project) error {
	bucket := tx.Bucket(bucketProjects)

	var rec projectRecord
	if getRecord(bucket, project.ID, &rec, domain.ErrProjectNotFound) != nil {
		return putProject(tx, project)
	}

	rec.Project = project

	return putRecord(bucket, project.ID, rec)
}

func upsertJob(tx *bolt.Tx, job domain.SyncJob) error {
	bucket := tx.Bucket(bucketJobs)

	var rec jobRecord
	if getRecord(bucket, job.ID, &rec, domain.ErrJobNotFound) != nil {
		return putJob(tx, job)
	}

	rec.Job = job

	return putRecord(bucket, job.ID, rec)
}
