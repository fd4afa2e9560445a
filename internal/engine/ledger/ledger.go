// Package ledger implements the API-Key Ledger (C9): per-provider credit
// tracking shared across runs, with reservation and failure handling
// serialized per key.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// authFailureKinds are the provider error classes that deactivate a key
// outright rather than just recording a transient failure (§4.5: "401/403
// -> deactivate key").
var authFailureKinds = map[string]bool{"auth_401": true, "auth_403": true}

// Reservation is the result of a successful Reserve call.
type Reservation struct {
	KeyID     string
	Remaining int
}

// Ledger holds one provider->keys table, guarded by a single mutex. §4.9/§5
// calls for "per-key exclusive lock on reserve/record_failure; picking the
// best key reads under shared lock then retries if state changes" - a
// single mutex over the whole table gives that serialization directly,
// since the provider's key set is small and reservation is a quick
// in-memory increment, not an I/O-bound operation.
type Ledger struct {
	mu     sync.Mutex
	logger arbor.ILogger
	keys   map[string]*models.ApiKey // key_id -> key
}

// New builds an empty ledger; keys are registered via Register before use.
func New(logger arbor.ILogger) *Ledger {
	return &Ledger{logger: logger, keys: make(map[string]*models.ApiKey)}
}

// Register adds or replaces a key's bookkeeping entry (used on startup to
// load persisted ApiKey rows into memory).
func (l *Ledger) Register(key *models.ApiKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key.SyncActive()
	l.keys[key.KeyID] = key
}

// Reserve picks the active key for provider with the most remaining credits,
// increments its used_credits, and returns the reservation. Returns ErrNoKey
// if no active key has any remaining credit, which the
// Escalation Engine maps to `no_provider_key` (§4.5).
func (l *Ledger) Reserve(provider string) (*Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var best *models.ApiKey
	for _, k := range l.keys {
		if k.Provider != provider || !k.IsActive {
			continue
		}
		if best == nil || k.Remaining() > best.Remaining() {
			best = k
		}
	}
	if best == nil || best.Remaining() <= 0 {
		return nil, ErrNoKey
	}

	best.UsedCredits++
	best.LastUsedAt = time.Now()
	best.SyncActive()

	return &Reservation{KeyID: best.KeyID, Remaining: best.Remaining()}, nil
}

// RecordFailure applies a provider error outcome to keyID. Auth-class
// failures deactivate the key outright; other kinds are logged but leave
// the key active for the next reservation attempt.
func (l *Ledger) RecordFailure(keyID, kind string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k, ok := l.keys[keyID]
	if !ok {
		return fmt.Errorf("ledger: unknown key %q", keyID)
	}
	if authFailureKinds[kind] {
		k.IsActive = false
		l.logger.Warn().Str("key_id", keyID).Str("kind", kind).Msg("provider key deactivated")
	}
	return nil
}

// ProviderSummary aggregates remaining credit across one provider's keys.
type ProviderSummary struct {
	Provider        string
	ActiveKeys      int
	TotalRemaining  int
}

// Stats returns per-key remaining credit and a per-provider summary. An
// inactive key reports 0 remaining credit.
func (l *Ledger) Stats() (map[string]int, map[string]ProviderSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	perKey := make(map[string]int, len(l.keys))
	perProvider := make(map[string]ProviderSummary)
	for _, k := range l.keys {
		remaining := 0
		if k.IsActive {
			remaining = k.Remaining()
		}
		perKey[k.KeyID] = remaining
		summary := perProvider[k.Provider]
		summary.Provider = k.Provider
		if k.IsActive {
			summary.ActiveKeys++
		}
		summary.TotalRemaining += remaining
		perProvider[k.Provider] = summary
	}
	return perKey, perProvider
}
