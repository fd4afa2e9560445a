package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// FieldMapStorage persists FieldMap rows under the composite key
// "(job_id, field_name)" (models.FieldMap.Key()).
type FieldMapStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewFieldMapStorage builds a FieldMapStorage over db.
func NewFieldMapStorage(db *DB, logger arbor.ILogger) *FieldMapStorage {
	return &FieldMapStorage{db: db, logger: logger}
}

// Save validates and upserts a field mapping. "mapping without a spec is
// rejected at save time" (§3) is enforced by FieldMap.Validate.
func (s *FieldMapStorage) Save(ctx context.Context, fm *models.FieldMap) error {
	if err := fm.Validate(); err != nil {
		return fmt.Errorf("fieldmap_storage: %w", err)
	}
	if err := s.db.Store().Upsert(fm.Key(), fm); err != nil {
		return fmt.Errorf("fieldmap_storage: save %s: %w", fm.Key(), err)
	}
	return nil
}

// ListForJob returns every declared field mapping for a job.
func (s *FieldMapStorage) ListForJob(ctx context.Context, jobID string) (map[string]models.FieldMap, error) {
	var rows []models.FieldMap
	if err := s.db.Store().Find(&rows, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("fieldmap_storage: list for job %s: %w", jobID, err)
	}
	result := make(map[string]models.FieldMap, len(rows))
	for _, fm := range rows {
		result[fm.FieldName] = fm
	}
	return result, nil
}

// Delete removes one field mapping.
func (s *FieldMapStorage) Delete(ctx context.Context, jobID, fieldName string) error {
	key := models.FieldMap{JobID: jobID, FieldName: fieldName}.Key()
	if err := s.db.Store().Delete(key, &models.FieldMap{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("fieldmap_storage: delete %s: %w", key, err)
	}
	return nil
}
