package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// ApiKeyStorage persists ApiKey rows, keyed by ApiKey.KeyID.
//
// The in-memory ledger (internal/engine/ledger) is authoritative during a
// process's lifetime; this storage seeds it on startup. Reservations and
// failures recorded by the ledger are not written back here.
type ApiKeyStorage struct {
	db     *DB
	logger arbor.ILogger
}

// NewApiKeyStorage builds an ApiKeyStorage over db.
func NewApiKeyStorage(db *DB, logger arbor.ILogger) *ApiKeyStorage {
	return &ApiKeyStorage{db: db, logger: logger}
}

// Save upserts one key's credit state.
func (s *ApiKeyStorage) Save(ctx context.Context, key *models.ApiKey) error {
	if err := s.db.Store().Upsert(key.KeyID, key); err != nil {
		return fmt.Errorf("apikey_storage: save %s: %w", key.KeyID, err)
	}
	return nil
}

// ListByProvider returns every key registered for a provider.
func (s *ApiKeyStorage) ListByProvider(ctx context.Context, provider string) ([]*models.ApiKey, error) {
	var rows []models.ApiKey
	if err := s.db.Store().Find(&rows, badgerhold.Where("Provider").Eq(provider)); err != nil {
		return nil, fmt.Errorf("apikey_storage: list by provider %s: %w", provider, err)
	}
	result := make([]*models.ApiKey, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

// ListAll returns every registered key, used to seed the ledger on startup.
func (s *ApiKeyStorage) ListAll(ctx context.Context) ([]*models.ApiKey, error) {
	var rows []models.ApiKey
	if err := s.db.Store().Find(&rows, &badgerhold.Query{}); err != nil {
		return nil, fmt.Errorf("apikey_storage: list all: %w", err)
	}
	result := make([]*models.ApiKey, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

// Delete removes a key by id.
func (s *ApiKeyStorage) Delete(ctx context.Context, keyID string) error {
	if err := s.db.Store().Delete(keyID, &models.ApiKey{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("apikey_storage: delete %s: %w", keyID, err)
	}
	return nil
}
