package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/extractor"
	"github.com/ternarybob/scrapeengine/internal/engine/ledger"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// ProviderConfig configures the C5 provider executor's remote API shim.
type ProviderConfig struct {
	Provider      string // ledger provider key, e.g. "scraperapi"
	BaseURL       string
	APIKeyHeader  string // defaults to "X-Api-Key"
	Timeout       time.Duration
	RenderJS      bool
	Premium       bool
	MaxKeyRetries int // bounded ledger iteration on 401/403, §4.5
}

// providerRequest mirrors the paid-provider request shape from §6:
// {url, render_js?, premium?}.
type providerRequest struct {
	URL      string `json:"url"`
	RenderJS bool   `json:"render_js,omitempty"`
	Premium  bool   `json:"premium,omitempty"`
}

type providerResponse struct {
	HTML       string `json:"html"`
	FinalURL   string `json:"final_url"`
	StatusCode int    `json:"status_code"`
}

// ProviderExecutor is the C5 tier: an external paid scraping API, accounted
// for by the API-Key Ledger (C9). Every key attempt reserves one credit
// before issuing the call; list-mode detail-page fetches reuse that
// attempt's key without reserving further credits.
type ProviderExecutor struct {
	logger    arbor.ILogger
	client    *http.Client
	ledger    *ledger.Ledger
	extractor *extractor.Extractor
	cfg       ProviderConfig
}

// NewProviderExecutor builds a ProviderExecutor over a shared Ledger.
func NewProviderExecutor(cfg ProviderConfig, l *ledger.Ledger, logger arbor.ILogger, ex *extractor.Extractor) *ProviderExecutor {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-Api-Key"
	}
	if cfg.MaxKeyRetries <= 0 {
		cfg.MaxKeyRetries = 3
	}
	return &ProviderExecutor{
		logger:    logger,
		client:    &http.Client{Timeout: cfg.Timeout},
		ledger:    l,
		extractor: ex,
		cfg:       cfg,
	}
}

// Execute runs the full §4.5 contract: reserve a credit, call the remote
// API, map its errors onto the shared signal taxonomy, and (on a usable
// response) hand the rendered HTML to the Field Extractor.
func (p *ProviderExecutor) Execute(ctx context.Context, job *models.Job, fields map[string]models.FieldMap) (*ExecutionOutcome, error) {
	start := time.Now()
	outcome := &ExecutionOutcome{}

	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxKeyRetries; attempt++ {
		res, err := p.ledger.Reserve(p.cfg.Provider)
		if err != nil {
			outcome.addSignal(models.SignalNoProviderKey)
			outcome.Elapsed = time.Since(start)
			return outcome, nil
		}
		outcome.Cost += 1

		body, status, finalURL, fetchErr := p.call(ctx, res.KeyID, job.TargetURL)
		if fetchErr != nil {
			lastErr = fetchErr
			outcome.addSignal(models.SignalNetwork)
			outcome.Elapsed = time.Since(start)
			return outcome, fetchErr
		}

		switch {
		case status == 401 || status == 403:
			kind := "auth_403"
			if status == 401 {
				kind = "auth_401"
			}
			if err := p.ledger.RecordFailure(res.KeyID, kind); err != nil {
				p.logger.Warn().Err(err).Str("key_id", res.KeyID).Msg("failed to record ledger failure")
			}
			outcome.addSignal(models.SignalBlocked)
			continue // try next active key, bounded by MaxKeyRetries

		case status == 451:
			outcome.addSignal(models.SignalHardBlock)
			outcome.Elapsed = time.Since(start)
			return outcome, nil

		case status >= 500:
			outcome.addSignal(models.SignalBadResponse)
			outcome.Elapsed = time.Since(start)
			return outcome, nil
		}

		artifact := extractor.Artifact{HTML: body, URL: finalURL}
		outcome.Artifact = artifact
		outcome.FinalURL = finalURL
		outcome.Elapsed = time.Since(start)

		if job.CrawlMode == models.CrawlModeList && job.ListConfig != nil {
			records, err := p.extractor.ExtractList(artifact, *job.ListConfig, fields, func(u string) (extractor.Artifact, error) {
				b, _, fu, fErr := p.call(ctx, res.KeyID, u)
				if fErr != nil {
					return extractor.Artifact{}, fErr
				}
				return extractor.Artifact{HTML: b, URL: fu}, nil
			})
			if err != nil {
				return outcome, err
			}
			if len(records) == 0 && job.ListConfig.MaxItems != 0 {
				outcome.addSignal(models.SignalExtractionEmpty)
			}
			outcome.Records = records
		} else {
			record, err := p.extractor.ExtractSingle(artifact, fields)
			if err != nil {
				return outcome, err
			}
			if record == nil {
				outcome.addSignal(models.SignalExtractionEmpty)
			} else {
				record.Meta.Engine = models.TierProvider
				record.Meta.HTTPStatus = status
				record.Meta.FetchedAt = time.Now()
				outcome.Records = []*models.Record{record}
			}
		}
		return outcome, nil
	}

	outcome.addSignal(models.SignalBlocked)
	outcome.Elapsed = time.Since(start)
	return outcome, lastErr
}

// call issues one request to the provider API for targetURL, authenticated
// with apiKey, and returns the rendered body, status, and resolved URL.
func (p *ProviderExecutor) call(ctx context.Context, apiKey, targetURL string) (body string, status int, finalURL string, err error) {
	payload, err := json.Marshal(providerRequest{
		URL:      targetURL,
		RenderJS: p.cfg.RenderJS,
		Premium:  p.cfg.Premium,
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("provider executor: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, "", fmt.Errorf("provider executor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(p.cfg.APIKeyHeader, apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, "", fmt.Errorf("provider executor: call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, "", fmt.Errorf("provider executor: read response: %w", err)
	}

	var decoded providerResponse
	if jsonErr := json.Unmarshal(raw, &decoded); jsonErr != nil {
		// Provider returned a non-JSON body; treat the raw bytes as the page.
		return string(raw), resp.StatusCode, targetURL, nil
	}
	if decoded.FinalURL == "" {
		decoded.FinalURL = targetURL
	}
	status = decoded.StatusCode
	if status == 0 {
		status = resp.StatusCode
	}
	return decoded.HTML, status, decoded.FinalURL, nil
}
