// Package badger is the concrete storage engine behind the control plane's
// per-aggregate storage model: one badgerhold-backed Storage type per
// aggregate table (Job, FieldMap, Run, RunEvent, Record, ApiKey,
// Intervention).
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
)

// DB manages the Badger database connection shared by every aggregate's
// Storage type.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (creating if needed) the Badger database at cfg.Path.
func Open(logger arbor.ILogger, cfg config.StorageConfig) (*DB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			logger.Debug().Str("path", cfg.Path).Msg("deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Path).Msg("failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("badger: create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil // arbor handles logging instead of badger's own logger

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Path, err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("badger database opened")
	return &DB{store: store, logger: logger}, nil
}

// Store exposes the underlying badgerhold store for Storage types to embed.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close releases the database.
func (d *DB) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
