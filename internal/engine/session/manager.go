// Package session implements the Session Manager (C6): a thread-safe pool
// of reusable browser identities keyed by (domain, proxy identity), scored
// by a trust function that decides reuse eligibility.
package session

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// maxFailureStreak retires a session once its consecutive-failure count
// reaches this, per §4.6 mark_failure.
const maxFailureStreak = 3

// maxAgeMinutes retires a session on cleanup regardless of trust score.
const maxAgeMinutes = 120.0

// Manager owns the session pool. A single RWMutex guards the map: shared
// lock for get (copies the handle out before I/O touches it), exclusive
// lock for create/mark_success/mark_failure/cleanup, per §4.6's concurrency
// note.
type Manager struct {
	mu       sync.RWMutex
	sessions map[models.SessionKey]*models.Session
	logger   arbor.ILogger
	now      func() time.Time
}

// New builds an empty session pool.
func New(logger arbor.ILogger) *Manager {
	return &Manager{
		sessions: make(map[models.SessionKey]*models.Session),
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns a copy of the session for key if present, not aged past
// maxAgeMinutes, and trust_score >= 40 (models.TrustDegradedMin), else nil.
// An aged or low-trust entry is retired on this call rather than left for
// the periodic Cleanup sweep, per §8: a session must not be handed out
// stale just because the cleanup cron hasn't run yet. The caller receives a
// copy so subsequent pool mutations (concurrent mark_failure, cleanup)
// don't race with the caller's I/O.
func (m *Manager) Get(key models.SessionKey) *models.Session {
	now := m.now()

	m.mu.RLock()
	s, ok := m.sessions[key]
	if !ok {
		m.mu.RUnlock()
		return nil
	}
	copied := *s
	m.mu.RUnlock()

	if copied.AgeMinutes(now) > maxAgeMinutes || copied.TrustScore(now) < models.TrustDegradedMin {
		m.mu.Lock()
		if cur, ok := m.sessions[key]; ok && cur.CreatedAt.Equal(copied.CreatedAt) {
			delete(m.sessions, key)
		}
		m.mu.Unlock()
		return nil
	}
	return &copied
}

// Create stores a new session for key, replacing any existing entry.
func (m *Manager) Create(key models.SessionKey, cookies, storageState []byte, userAgent, viewport string) *models.Session {
	s := &models.Session{
		Key:          key,
		Cookies:      cookies,
		StorageState: storageState,
		UserAgent:    userAgent,
		Viewport:     viewport,
		CreatedAt:    m.now(),
		TotalUses:    1,
	}
	m.mu.Lock()
	m.sessions[key] = s
	m.mu.Unlock()

	m.logger.Debug().Str("session", key.String()).Msg("session created")
	copied := *s
	return &copied
}

// MarkSuccess refreshes last_success_at and resets the failure streak for
// key. total_uses is incremented at reuse time by the caller obtaining the
// session, per §4.6 ("already incremented at reuse time").
func (m *Manager) MarkSuccess(key models.SessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return
	}
	s.LastSuccessAt = m.now()
	s.FailureStreak = 0
}

// MarkFailure increments the failure streak for key and retires the session
// once it reaches maxFailureStreak.
func (m *Manager) MarkFailure(key models.SessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return
	}
	s.FailureStreak++
	if s.FailureStreak >= maxFailureStreak {
		delete(m.sessions, key)
		m.logger.Debug().Str("session", key.String()).Msg("session retired after failure streak")
	}
}

// Reuse increments total_uses for an already-fetched session handle at the
// moment it is actually reused for a fetch, per the §4.6 "already
// incremented at reuse time" note.
func (m *Manager) Reuse(key models.SessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		s.TotalUses++
	}
}

// Refresh overwrites the captured cookies/storage state for an existing
// session after a successful reuse, without resetting CreatedAt.
func (m *Manager) Refresh(key models.SessionKey, cookies, storageState []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		s.Cookies = cookies
		s.StorageState = storageState
	}
}

// Cleanup retires any session older than maxAgeMinutes or with a trust
// score below models.TrustDegradedMin.
func (m *Manager) Cleanup() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	retired := 0
	for key, s := range m.sessions {
		if s.AgeMinutes(now) > maxAgeMinutes || s.TrustScore(now) < models.TrustDegradedMin {
			delete(m.sessions, key)
			retired++
		}
	}
	if retired > 0 {
		m.logger.Debug().Int("retired", retired).Msg("session cleanup sweep")
	}
	return retired
}

// Size returns the current pool size, mainly for metrics/tests.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
