package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// RunStorage persists Run rows, keyed by Run.ID.
type RunStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewRunStorage builds a RunStorage over db.
func NewRunStorage(db *DB, logger arbor.ILogger) *RunStorage {
	return &RunStorage{db: db, logger: logger}
}

// Save upserts run, including its append-only EngineAttempts log.
func (s *RunStorage) Save(ctx context.Context, run *models.Run) error {
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("run_storage: save %s: %w", run.ID, err)
	}
	return nil
}

// Get loads one run by id.
func (s *RunStorage) Get(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run_storage: run %s not found", id)
		}
		return nil, fmt.Errorf("run_storage: get %s: %w", id, err)
	}
	return &run, nil
}

// ListByJob returns every run recorded against a job, most recent last.
func (s *RunStorage) ListByJob(ctx context.Context, jobID string) ([]*models.Run, error) {
	var rows []models.Run
	if err := s.db.Store().Find(&rows, badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("run_storage: list by job %s: %w", jobID, err)
	}
	result := make([]*models.Run, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

// ListByStatus returns all runs in a given lifecycle status. The
// orchestrator does not call it; nothing recovers runs on restart.
func (s *RunStorage) ListByStatus(ctx context.Context, status models.RunStatus) ([]*models.Run, error) {
	var rows []models.Run
	if err := s.db.Store().Find(&rows, badgerhold.Where("Status").Eq(status)); err != nil {
		return nil, fmt.Errorf("run_storage: list by status %s: %w", status, err)
	}
	result := make([]*models.Run, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

// Delete removes a run by id.
func (s *RunStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Run{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("run_storage: delete %s: %w", id, err)
	}
	return nil
}
