// Package store persists projects and sync jobs in a bbolt database.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/joe/syncdeck/internal/domain"
)

// Bucket names
var (
	bucketProjects = []byte("projects")
	bucketJobs     = []byte("jobs")
	bucketMeta     = []byte("meta")

	keySeeded = []byte("seeded")
)

// OpenTimeout is how long Open waits for another process holding the file lock.
const OpenTimeout = time.Second

// ErrLocked is returned when another syncdeck holds the database.
var ErrLocked = errors.New("database is in use by another syncdeck process")

// projectRecord and jobRecord carry the display position next to the value.
type projectRecord struct {
	Seq     uint64         `json:"seq"`
	Project domain.Project `json:"project"`
}

type jobRecord struct {
	Seq uint64         `json:"seq"`
	Job domain.SyncJob `json:"job"`
}

// Store is a bbolt-backed project and job store. It is safe for
// concurrent use.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // standard dir perms
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: OpenTimeout}) //nolint:mnd // owner-only db file
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}

		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketProjects, bucketJobs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// newID returns a short random identifier.
func newID() string {
	return uuid.New().String()[:8]
}

// === Projects ===

// EnsureDefaultProject seeds the default project into a store that has
// never held any. It reports whether it did. A store whose projects were
// all deleted by the user is left empty.
func (s *Store) EnsureDefaultProject() (bool, error) {
	seeded := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta.Get(keySeeded) != nil {
			return nil
		}

		if first, _ := tx.Bucket(bucketProjects).Cursor().First(); first == nil {
			if err := putProject(tx, domain.DefaultProject()); err != nil {
				return err
			}

			seeded = true
		}

		return meta.Put(keySeeded, []byte("1"))
	})

	return seeded, err
}

// ListProjects returns projects in creation order.
func (s *Store) ListProjects() ([]domain.Project, error) {
	var records []projectRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProjects).ForEach(func(_, v []byte) error {
			var rec projectRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			records = append(records, rec)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	projects := make([]domain.Project, len(records))
	for i, rec := range records {
		projects[i] = rec.Project
	}

	return projects, nil
}

// GetProject returns one project.
func (s *Store) GetProject(id string) (domain.Project, error) {
	var rec projectRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return getRecord(tx.Bucket(bucketProjects), id, &rec, domain.ErrProjectNotFound)
	})

	return rec.Project, err
}

// AddProject creates a project with a fresh id.
func (s *Store) AddProject(name, color string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, errors.New("project name is required")
	}

	if color == "" {
		color = domain.DefaultProjectColor
	}

	project := domain.Project{ID: newID(), Name: name, Color: color}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return putProject(tx, project)
	})

	return project, err
}

// UpdateProject replaces a project's name, color and collapsed flag.
func (s *Store) UpdateProject(project domain.Project) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketProjects)

		var rec projectRecord
		if err := getRecord(bucket, project.ID, &rec, domain.ErrProjectNotFound); err != nil {
			return err
		}

		rec.Project = project

		return putRecord(bucket, project.ID, rec)
	})
}

// ToggleCollapsed flips a project's collapsed flag and returns the new value.
func (s *Store) ToggleCollapsed(id string) (bool, error) {
	var collapsed bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketProjects)

		var rec projectRecord
		if err := getRecord(bucket, id, &rec, domain.ErrProjectNotFound); err != nil {
			return err
		}

		rec.Project.Collapsed = !rec.Project.Collapsed
		collapsed = rec.Project.Collapsed

		return putRecord(bucket, id, rec)
	})

	return collapsed, err
}

// DeleteProject removes a project and every job that belongs to it.
// It returns the number of jobs removed.
func (s *Store) DeleteProject(id string) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		projects := tx.Bucket(bucketProjects)
		if projects.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
		}

		jobs := tx.Bucket(bucketJobs)

		var doomed [][]byte

		err := jobs.ForEach(func(k, v []byte) error {
			var rec jobRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			if rec.Job.ProjectID == id {
				doomed = append(doomed, append([]byte(nil), k...))
			}

			return nil
		})
		if err != nil {
			return err
		}

		// Keys are collected first; deleting during ForEach is unsupported.
		for _, k := range doomed {
			if err := jobs.Delete(k); err != nil {
				return err
			}
		}

		removed = len(doomed)

		return projects.Delete([]byte(id))
	})

	return removed, err
}

// === Jobs ===

// ListJobs returns all jobs in creation order.
func (s *Store) ListJobs() ([]domain.SyncJob, error) {
	return s.listJobs(func(domain.SyncJob) bool { return true })
}

// ListProjectJobs returns a project's jobs in creation order.
func (s *Store) ListProjectJobs(projectID string) ([]domain.SyncJob, error) {
	return s.listJobs(func(job domain.SyncJob) bool { return job.ProjectID == projectID })
}

func (s *Store) listJobs(keep func(domain.SyncJob) bool) ([]domain.SyncJob, error) {
	var records []jobRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).ForEach(func(_, v []byte) error {
			var rec jobRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			if keep(rec.Job) {
				records = append(records, rec)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	jobs := make([]domain.SyncJob, len(records))
	for i, rec := range records {
		jobs[i] = rec.Job
	}

	return jobs, nil
}

// GetJob returns one job.
func (s *Store) GetJob(id string) (domain.SyncJob, error) {
	var rec jobRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return getRecord(tx.Bucket(bucketJobs), id, &rec, domain.ErrJobNotFound)
	})

	return rec.Job, err
}

// AddJob validates and stores a new job. The id, status and last sync
// time are assigned by the store.
func (s *Store) AddJob(job domain.SyncJob) (domain.SyncJob, error) {
	job.ID = newID()
	job.Status = domain.StatusIdle
	job.LastSync = nil

	if err := job.Validate(); err != nil {
		return domain.SyncJob{}, err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketProjects).Get([]byte(job.ProjectID)) == nil {
			return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, job.ProjectID)
		}

		return putJob(tx, job)
	})
	if err != nil {
		return domain.SyncJob{}, err
	}

	return job, nil
}

// UpdateJob replaces a job's paths, project and options. Status and last
// sync time are kept. Running jobs cannot be edited.
func (s *Store) UpdateJob(job domain.SyncJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketJobs)

		var rec jobRecord
		if err := getRecord(bucket, job.ID, &rec, domain.ErrJobNotFound); err != nil {
			return err
		}

		if rec.Job.Status == domain.StatusRunning {
			return fmt.Errorf("%w: %s", domain.ErrJobRunning, job.ID)
		}

		if tx.Bucket(bucketProjects).Get([]byte(job.ProjectID)) == nil {
			return fmt.Errorf("%w: %s", domain.ErrProjectNotFound, job.ProjectID)
		}

		job.Status = rec.Job.Status
		job.LastSync = rec.Job.LastSync
		rec.Job = job

		return putRecord(bucket, job.ID, rec)
	})
}

// SetJobStatus records a status change. A nil lastSync keeps the stored value.
func (s *Store) SetJobStatus(id string, status domain.Status, lastSync *time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketJobs)

		var rec jobRecord
		if err := getRecord(bucket, id, &rec, domain.ErrJobNotFound); err != nil {
			return err
		}

		rec.Job.Status = status
		if lastSync != nil {
			stamp := lastSync.UTC()
			rec.Job.LastSync = &stamp
		}

		return putRecord(bucket, id, rec)
	})
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketJobs)
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
		}

		return bucket.Delete([]byte(id))
	})
}

// ResetRunning returns jobs left running by a previous process to idle.
// It returns how many were reset.
func (s *Store) ResetRunning() (int, error) {
	reset := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketJobs)

		var stale []jobRecord

		err := bucket.ForEach(func(_, v []byte) error {
			var rec jobRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}

			if rec.Job.Status == domain.StatusRunning {
				stale = append(stale, rec)
			}

			return nil
		})
		if err != nil {
			return err
		}

		for _, rec := range stale {
			rec.Job.Status = domain.StatusIdle
			if err := putRecord(bucket, rec.Job.ID, rec); err != nil {
				return err
			}
		}

		reset = len(stale)

		return nil
	})

	return reset, err
}

// === Generic helpers ===

func getRecord(bucket *bolt.Bucket, id string, dest any, notFound error) error {
	data := bucket.Get([]byte(id))
	if data == nil {
		return fmt.Errorf("%w: %s", notFound, id)
	}

	return json.Unmarshal(data, dest)
}

func putRecord(bucket *bolt.Bucket, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return bucket.Put([]byte(id), data)
}

func putProject(tx *bolt.Tx, project domain.Project) error {
	bucket := tx.Bucket(bucketProjects)

	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}

	return putRecord(bucket, project.ID, projectRecord{Seq: seq, Project: project})
}

func putJob(tx *bolt.Tx, job domain.SyncJob) error {
	bucket := tx.Bucket(bucketJobs)

	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}

	return putRecord(bucket, job.ID, jobRecord{Seq: seq, Job: job})
}
