package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(config.GetLogger(), config.StorageConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestJobStorage_SaveGetDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	job := &models.Job{
		ID:         "job-1",
		TargetURL:  "https://example.com/listing",
		Fields:     []string{"price"},
		CrawlMode:  models.CrawlModeSingle,
		EngineMode: models.EngineModeAuto,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, m.Job().Save(ctx, job))

	got, err := m.Job().Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, job.TargetURL, got.TargetURL)

	jobs, err := m.Job().ListByEngineMode(ctx, models.EngineModeAuto)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	require.NoError(t, m.Job().Delete(ctx, "job-1"))
	_, err = m.Job().Get(ctx, "job-1")
	assert.Error(t, err)
}

func TestFieldMapStorage_ListForJob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	fm := &models.FieldMap{
		JobID:     "job-1",
		FieldName: "price",
		Selector: models.SelectorSpec{
			Language:   models.SelectorCSS,
			Expression: ".price",
			Mode:       models.SelectorModeText,
		},
		FieldType: models.FieldTypeMoney,
	}
	require.NoError(t, m.FieldMap().Save(ctx, fm))

	rows, err := m.FieldMap().ListForJob(ctx, "job-1")
	require.NoError(t, err)
	require.Contains(t, rows, "price")
	assert.Equal(t, ".price", rows["price"].Selector.Expression)

	require.NoError(t, m.FieldMap().Delete(ctx, "job-1", "price"))
	rows, err = m.FieldMap().ListForJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRunStorage_ListByStatus(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	run := &models.Run{ID: "run-1", JobID: "job-1", Status: models.RunStatusWaitingForHuman, CreatedAt: time.Now()}
	require.NoError(t, m.Run().Save(ctx, run))

	rows, err := m.Run().ListByStatus(ctx, models.RunStatusWaitingForHuman)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "run-1", rows[0].ID)

	byJob, err := m.Run().ListByJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, byJob, 1)
}

func TestRunEventStorage_AppendOrdersBySeq(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		ev := &models.RunEvent{RunID: "run-1", Seq: i, Timestamp: time.Now(), Level: "info", Message: "tick"}
		require.NoError(t, m.RunEvent().Append(ctx, ev))
	}

	rows, err := m.RunEvent().ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, uint64(1), rows[0].Seq)
	assert.Equal(t, uint64(3), rows[2].Seq)
}

func TestRecordStorage_ListByRun(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	rec := &models.Record{
		ID:    "rec-1",
		RunID: "run-1",
		Data:  map[string]any{"price": 9.99},
		Evidence: map[string]models.Evidence{
			"price": {Raw: "$9.99", Confidence: 1},
		},
	}
	require.NoError(t, m.Record().Save(ctx, rec))

	rows, err := m.Record().ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "rec-1", rows[0].ID)
}

func TestApiKeyStorage_ListByProviderAndAll(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	key := &models.ApiKey{Provider: "scraperapi", KeyID: "key-1", TotalCredits: 100, IsActive: true}
	require.NoError(t, m.ApiKey().Save(ctx, key))

	byProvider, err := m.ApiKey().ListByProvider(ctx, "scraperapi")
	require.NoError(t, err)
	assert.Len(t, byProvider, 1)

	all, err := m.ApiKey().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInterventionStorage_ListPendingSortedByPriority(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	low := &models.Intervention{ID: "iv-low", RunID: "run-1", Type: models.InterventionAuthRequired, Priority: 1, Status: models.InterventionPending, CreatedAt: time.Now()}
	high := &models.Intervention{ID: "iv-high", RunID: "run-1", Type: models.InterventionHardBlock, Priority: 9, Status: models.InterventionPending, CreatedAt: time.Now()}
	require.NoError(t, m.Intervention().Save(ctx, low))
	require.NoError(t, m.Intervention().Save(ctx, high))

	rows, err := m.Intervention().ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "iv-high", rows[0].ID)

	byRun, err := m.Intervention().ListByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, byRun, 2)
}
