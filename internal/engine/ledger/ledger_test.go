package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

func TestReserve_PicksKeyWithMostRemaining(t *testing.T) {
	l := New(config.GetLogger())
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "low", TotalCredits: 10, UsedCredits: 8, IsActive: true})
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "high", TotalCredits: 100, UsedCredits: 10, IsActive: true})

	res, err := l.Reserve("acme")
	require.NoError(t, err)
	assert.Equal(t, "high", res.KeyID)
	assert.Equal(t, 89, res.Remaining)
}

func TestReserve_NoActiveKey_ReturnsErrNoKey(t *testing.T) {
	l := New(config.GetLogger())
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "dead", TotalCredits: 10, UsedCredits: 10, IsActive: false})

	_, err := l.Reserve("acme")
	assert.True(t, errors.Is(err, ErrNoKey))
}

func TestReserve_ExhaustsAllCredit(t *testing.T) {
	l := New(config.GetLogger())
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "k1", TotalCredits: 2, UsedCredits: 0, IsActive: true})

	_, err := l.Reserve("acme")
	require.NoError(t, err)
	_, err = l.Reserve("acme")
	require.NoError(t, err)
	_, err = l.Reserve("acme")
	assert.True(t, errors.Is(err, ErrNoKey))
}

func TestRecordFailure_AuthClassDeactivatesKey(t *testing.T) {
	l := New(config.GetLogger())
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "k1", TotalCredits: 10, IsActive: true})

	require.NoError(t, l.RecordFailure("k1", "auth_401"))

	_, err := l.Reserve("acme")
	assert.True(t, errors.Is(err, ErrNoKey))
}

func TestRecordFailure_NonAuthKind_LeavesKeyActive(t *testing.T) {
	l := New(config.GetLogger())
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "k1", TotalCredits: 10, IsActive: true})

	require.NoError(t, l.RecordFailure("k1", "server_5xx"))

	res, err := l.Reserve("acme")
	require.NoError(t, err)
	assert.Equal(t, "k1", res.KeyID)
}

func TestStats_AggregatesPerProvider(t *testing.T) {
	l := New(config.GetLogger())
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "a", TotalCredits: 10, UsedCredits: 2, IsActive: true})
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "b", TotalCredits: 5, UsedCredits: 5, IsActive: false})

	perKey, perProvider := l.Stats()
	assert.Equal(t, 8, perKey["a"])
	assert.Equal(t, 0, perKey["b"])
	assert.Equal(t, 1, perProvider["acme"].ActiveKeys)
	assert.Equal(t, 8, perProvider["acme"].TotalRemaining)
}
