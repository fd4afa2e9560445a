package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// RecordStorage persists extracted Record rows, keyed by Record.ID.
type RecordStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewRecordStorage builds a RecordStorage over db.
func NewRecordStorage(db *DB, logger arbor.ILogger) *RecordStorage {
	return &RecordStorage{db: db, logger: logger}
}

// Save upserts one extracted record.
func (s *RecordStorage) Save(ctx context.Context, rec *models.Record) error {
	if err := s.db.Store().Upsert(rec.ID, rec); err != nil {
		return fmt.Errorf("record_storage: save %s: %w", rec.ID, err)
	}
	return nil
}

// ListByRun returns every record a run produced, in store key (record ID)
// order rather than insertion order.
func (s *RecordStorage) ListByRun(ctx context.Context, runID string) ([]*models.Record, error) {
	var rows []models.Record
	if err := s.db.Store().Find(&rows, badgerhold.Where("RunID").Eq(runID)); err != nil {
		return nil, fmt.Errorf("record_storage: list by run %s: %w", runID, err)
	}
	result := make([]*models.Record, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

// Delete removes a record by id.
func (s *RecordStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Record{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("record_storage: delete %s: %w", id, err)
	}
	return nil
}

// RunEventStorage persists the append-only per-run event log, keyed by the
// composite "(run_id, seq)" since RunEvent carries no single natural key.
type RunEventStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewRunEventStorage builds a RunEventStorage over db.
func NewRunEventStorage(db *DB, logger arbor.ILogger) *RunEventStorage {
	return &RunEventStorage{db: db, logger: logger}
}

func runEventKey(runID string, seq uint64) string {
	return fmt.Sprintf("%s:%020d", runID, seq)
}

// Append stores one event. Callers assign monotonically increasing Seq
// numbers per run (§9 "at-least-once, monotonic per-run sequence").
func (s *RunEventStorage) Append(ctx context.Context, ev *models.RunEvent) error {
	key := runEventKey(ev.RunID, ev.Seq)
	if err := s.db.Store().Upsert(key, ev); err != nil {
		return fmt.Errorf("runevent_storage: append %s: %w", key, err)
	}
	return nil
}

// ListByRun returns every event for a run, ordered by sequence number.
func (s *RunEventStorage) ListByRun(ctx context.Context, runID string) ([]*models.RunEvent, error) {
	var rows []models.RunEvent
	if err := s.db.Store().Find(&rows, badgerhold.Where("RunID").Eq(runID).SortBy("Seq")); err != nil {
		return nil, fmt.Errorf("runevent_storage: list by run %s: %w", runID, err)
	}
	result := make([]*models.RunEvent, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}
