package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

func newTestManager(now time.Time) *Manager {
	m := New(config.GetLogger())
	m.now = func() time.Time { return now }
	return m
}

func TestCreateThenGet_ReturnsSession(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(base)
	key := models.NewSessionKey("example.com", "")

	m.Create(key, []byte("cookie-data"), nil, "UA/1.0", "1280x720")

	got := m.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, "UA/1.0", got.UserAgent)
}

func TestGet_ReturnsNilAfterFailureStreakRetiresSession(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(base)
	key := models.NewSessionKey("example.com", "")
	m.Create(key, nil, nil, "UA", "1280x720")

	m.MarkFailure(key)
	m.MarkFailure(key)
	// two failures: trust score 70, still handed out
	got := m.Get(key)
	require.NotNil(t, got)

	// third failure retires the session outright
	m.MarkFailure(key)
	assert.Nil(t, m.Get(key))
}

func TestGet_RetiresAgedSessionOnNextGet(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(base)
	key := models.NewSessionKey("example.com", "")
	m.Create(key, nil, nil, "UA", "1280x720")

	// age=121min, failure_streak=0: trust score alone (100 - 61*0.5 = 69.5)
	// stays above TrustDegradedMin, so only the age check can retire it.
	m.now = func() time.Time { return base.Add(121 * time.Minute) }
	assert.Nil(t, m.Get(key))
	assert.Equal(t, 0, m.Size())
}

func TestMarkSuccess_ResetsFailureStreakAndStampsLastSuccess(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(base)
	key := models.NewSessionKey("example.com", "")
	m.Create(key, nil, nil, "UA", "1280x720")
	m.MarkFailure(key)

	m.MarkSuccess(key)
	got := m.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.FailureStreak)
	assert.Equal(t, base, got.LastSuccessAt)
}

func TestCleanup_RetiresSessionsPastMaxAge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(base)
	fresh := models.NewSessionKey("fresh.example.com", "")
	stale := models.NewSessionKey("stale.example.com", "")
	m.Create(fresh, nil, nil, "UA", "1280x720")
	m.Create(stale, nil, nil, "UA", "1280x720")

	m.now = func() time.Time { return base.Add(130 * time.Minute) }
	retired := m.Cleanup()

	assert.Equal(t, 2, retired)
	assert.Equal(t, 0, m.Size())
}

func TestReuse_IncrementsTotalUses(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newTestManager(base)
	key := models.NewSessionKey("example.com", "")
	m.Create(key, nil, nil, "UA", "1280x720")

	m.Reuse(key)
	m.Reuse(key)

	m.mu.RLock()
	uses := m.sessions[key].TotalUses
	m.mu.RUnlock()
	assert.Equal(t, 3, uses)
}
