package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
)

// Manager wires a single Badger database connection to one Storage type
// per aggregate (Job, FieldMap, Run, RunEvent, Record, ApiKey,
// Intervention), mirroring the control plane's per-aggregate storage
// model (§3).
type Manager struct {
	db *DB

	job          *JobStorage
	fieldMap     *FieldMapStorage
	run          *RunStorage
	runEvent     *RunEventStorage
	record       *RecordStorage
	apiKey       *ApiKeyStorage
	intervention *InterventionStorage

	logger arbor.ILogger
}

// NewManager opens the Badger database at cfg.Path and constructs every
// aggregate's Storage type over it.
func NewManager(logger arbor.ILogger, cfg config.StorageConfig) (*Manager, error) {
	db, err := Open(logger, cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:           db,
		job:          NewJobStorage(db, logger),
		fieldMap:     NewFieldMapStorage(db, logger),
		run:          NewRunStorage(db, logger),
		runEvent:     NewRunEventStorage(db, logger),
		record:       NewRecordStorage(db, logger),
		apiKey:       NewApiKeyStorage(db, logger),
		intervention: NewInterventionStorage(db, logger),
		logger:       logger,
	}

	logger.Info().Str("path", cfg.Path).Msg("badger storage manager initialized")
	return m, nil
}

func (m *Manager) Job() *JobStorage                  { return m.job }
func (m *Manager) FieldMap() *FieldMapStorage         { return m.fieldMap }
func (m *Manager) Run() *RunStorage                   { return m.run }
func (m *Manager) RunEvent() *RunEventStorage         { return m.runEvent }
func (m *Manager) Record() *RecordStorage             { return m.record }
func (m *Manager) ApiKey() *ApiKeyStorage             { return m.apiKey }
func (m *Manager) Intervention() *InterventionStorage { return m.intervention }

// DB exposes the underlying connection, e.g. for the queue adapter to share
// the same Badger instance.
func (m *Manager) DB() *DB {
	return m.db
}

// Close releases the database.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
