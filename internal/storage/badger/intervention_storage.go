package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// InterventionStorage persists Intervention rows, keyed by Intervention.ID.
type InterventionStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewInterventionStorage builds an InterventionStorage over db.
func NewInterventionStorage(db *DB, logger arbor.ILogger) *InterventionStorage {
	return &InterventionStorage{db: db, logger: logger}
}

// Save upserts one intervention.
func (s *InterventionStorage) Save(ctx context.Context, iv *models.Intervention) error {
	if err := s.db.Store().Upsert(iv.ID, iv); err != nil {
		return fmt.Errorf("intervention_storage: save %s: %w", iv.ID, err)
	}
	return nil
}

// Get loads one intervention by id.
func (s *InterventionStorage) Get(ctx context.Context, id string) (*models.Intervention, error) {
	var iv models.Intervention
	if err := s.db.Store().Get(id, &iv); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("intervention_storage: intervention %s not found", id)
		}
		return nil, fmt.Errorf("intervention_storage: get %s: %w", id, err)
	}
	return &iv, nil
}

// ListPending returns every intervention awaiting resolution, ordered for
// the operator queue by priority (§6 "interventions sorted by priority").
func (s *InterventionStorage) ListPending(ctx context.Context) ([]*models.Intervention, error) {
	var rows []models.Intervention
	if err := s.db.Store().Find(&rows, badgerhold.Where("Status").Eq(models.InterventionPending).SortBy("Priority").Reverse()); err != nil {
		return nil, fmt.Errorf("intervention_storage: list pending: %w", err)
	}
	result := make([]*models.Intervention, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

// ListByRun returns every intervention raised against a run.
func (s *InterventionStorage) ListByRun(ctx context.Context, runID string) ([]*models.Intervention, error) {
	var rows []models.Intervention
	if err := s.db.Store().Find(&rows, badgerhold.Where("RunID").Eq(runID)); err != nil {
		return nil, fmt.Errorf("intervention_storage: list by run %s: %w", runID, err)
	}
	result := make([]*models.Intervention, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}
