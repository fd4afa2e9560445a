package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
	"github.com/ternarybob/scrapeengine/internal/engine/extractor"
	"github.com/ternarybob/scrapeengine/internal/engine/ledger"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
	"github.com/ternarybob/scrapeengine/internal/engine/typer"
)

func testJob(url string) *models.Job {
	return &models.Job{
		ID:         "job-1",
		TargetURL:  url,
		Fields:     []string{"title"},
		CrawlMode:  models.CrawlModeSingle,
		EngineMode: models.EngineModeProvider,
	}
}

func testFields() map[string]models.FieldMap {
	return map[string]models.FieldMap{
		"title": {
			JobID:     "job-1",
			FieldName: "title",
			Selector: models.SelectorSpec{
				Language:   models.SelectorCSS,
				Expression: "h1",
				Mode:       models.SelectorModeText,
			},
			FieldType: models.FieldTypeString,
		},
	}
}

func newProviderExecutor(t *testing.T, baseURL, provider string) (*ProviderExecutor, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(config.GetLogger())
	ex := extractor.New(config.GetLogger(), typer.Context{
		DefaultRegion: "US", Locale: "en", Timezone: "UTC", Now: time.Now(),
	})
	pe := NewProviderExecutor(ProviderConfig{
		Provider: provider,
		BaseURL:  baseURL,
		Timeout:  5 * time.Second,
	}, l, config.GetLogger(), ex)
	return pe, l
}

func TestProviderExecute_SuccessConsumesOneCreditAndExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-a", r.Header.Get("X-Api-Key"))
		_ = json.NewEncoder(w).Encode(providerResponse{
			HTML:       `<html><body><h1>Hello</h1></body></html>`,
			StatusCode: 200,
			FinalURL:   "https://example.com/page",
		})
	}))
	defer srv.Close()

	pe, l := newProviderExecutor(t, srv.URL, "acme")
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "key-a", TotalCredits: 10, IsActive: true})

	outcome, err := pe.Execute(context.Background(), testJob("https://example.com/page"), testFields())
	require.NoError(t, err)
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, float64(1), outcome.Cost)

	perKey, _ := l.Stats()
	assert.Equal(t, 9, perKey["key-a"])
}

func TestProviderExecute_NoActiveKey_YieldsNoProviderKeySignal(t *testing.T) {
	pe, _ := newProviderExecutor(t, "http://unused.invalid", "acme")

	outcome, err := pe.Execute(context.Background(), testJob("https://example.com/page"), testFields())
	require.NoError(t, err)
	assert.True(t, outcome.hasSignal(models.SignalNoProviderKey))
	assert.Empty(t, outcome.Records)
}

func TestProviderExecute_AuthFailureTriesNextKey(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		key := r.Header.Get("X-Api-Key")
		if key == "bad-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(providerResponse{
			HTML:       `<html><body><h1>Hello</h1></body></html>`,
			StatusCode: 200,
			FinalURL:   "https://example.com/page",
		})
	}))
	defer srv.Close()

	pe, l := newProviderExecutor(t, srv.URL, "acme")
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "bad-key", TotalCredits: 100, IsActive: true})
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "good-key", TotalCredits: 10, IsActive: true})

	outcome, err := pe.Execute(context.Background(), testJob("https://example.com/page"), testFields())
	require.NoError(t, err)
	require.Len(t, outcome.Records, 1)
	assert.Equal(t, 2, calls)

	perKey, _ := l.Stats()
	assert.Equal(t, 0, perKey["bad-key"]) // deactivated keys report no remaining credit
}

func TestProviderExecute_HardBlockSetsSignalWithoutRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnavailableForLegalReasons)
	}))
	defer srv.Close()

	pe, l := newProviderExecutor(t, srv.URL, "acme")
	l.Register(&models.ApiKey{Provider: "acme", KeyID: "key-a", TotalCredits: 10, IsActive: true})

	outcome, err := pe.Execute(context.Background(), testJob("https://example.com/page"), testFields())
	require.NoError(t, err)
	assert.True(t, outcome.hasSignal(models.SignalHardBlock))
}
