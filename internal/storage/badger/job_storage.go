package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// JobStorage persists Job rows, keyed by Job.ID.
type JobStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewJobStorage builds a JobStorage over db.
func NewJobStorage(db *DB, logger arbor.ILogger) *JobStorage {
	return &JobStorage{db: db, logger: logger}
}

// Save validates and upserts job.
func (s *JobStorage) Save(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("job_storage: %w", err)
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("job_storage: save %s: %w", job.ID, err)
	}
	return nil
}

// Get loads one job by id.
func (s *JobStorage) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job_storage: job %s not found", id)
		}
		return nil, fmt.Errorf("job_storage: get %s: %w", id, err)
	}
	return &job, nil
}

// ListByEngineMode returns all jobs pinned to a given engine mode, used by
// operational tooling to audit strategy distribution.
func (s *JobStorage) ListByEngineMode(ctx context.Context, mode models.EngineMode) ([]*models.Job, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("EngineMode").Eq(mode)); err != nil {
		return nil, fmt.Errorf("job_storage: list by engine_mode %s: %w", mode, err)
	}
	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// Delete removes a job by id.
func (s *JobStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Job{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("job_storage: delete %s: %w", id, err)
	}
	return nil
}
