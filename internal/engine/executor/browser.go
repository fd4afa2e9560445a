package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/extractor"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
	"github.com/ternarybob/scrapeengine/internal/engine/session"
)

// BrowserExecutor is the C4 headless browser tier: it reuses trusted
// sessions from the Session Manager, installs stability fixtures, handles
// one consent cycle, paces interactions to look human, then hands the
// rendered DOM to the Field Extractor.
type BrowserExecutor struct {
	logger    arbor.ILogger
	pool      *BrowserPool
	sessions  *session.Manager
	extractor *extractor.Extractor
	navTimeout time.Duration
}

// NewBrowserExecutor builds a BrowserExecutor over an already-initialized
// BrowserPool and the shared Session Manager.
func NewBrowserExecutor(pool *BrowserPool, sessions *session.Manager, ex *extractor.Extractor, logger arbor.ILogger, navTimeout time.Duration) *BrowserExecutor {
	return &BrowserExecutor{logger: logger, pool: pool, sessions: sessions, extractor: ex, navTimeout: navTimeout}
}

// Execute runs the full §4.4 contract for one job.
func (b *BrowserExecutor) Execute(ctx context.Context, job *models.Job, fields map[string]models.FieldMap) (*ExecutionOutcome, error) {
	start := time.Now()
	key := models.NewSessionKey(domain(job.TargetURL), job.EffectiveProxyIdentity())

	tabCtx, err := b.pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf("browser executor: %w", err)
	}
	tabCtx, cancel := context.WithTimeout(tabCtx, b.navTimeout)
	defer cancel()

	reused := b.sessions.Get(key)
	if reused != nil {
		b.sessions.Reuse(key)
		if err := injectCookies(tabCtx, reused.Cookies); err != nil {
			b.logger.Warn().Err(err).Str("session", key.String()).Msg("failed to inject session cookies")
		}
	}

	if err := installStabilityFixtures(tabCtx); err != nil {
		b.logger.Debug().Err(err).Msg("failed to install stability fixtures")
	}

	w, h := viewportDims(job.BrowserProfile)
	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(w, h)); err != nil {
		b.logger.Debug().Err(err).Msg("failed to apply viewport profile")
	}

	var body, finalURL string
	var status int64
	navErr := chromedp.Run(tabCtx,
		chromedp.Navigate(job.TargetURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &body),
	)

	outcome := &ExecutionOutcome{Elapsed: time.Since(start), FinalURL: finalURL}

	if navErr != nil {
		b.sessions.MarkFailure(key)
		outcome.addSignal(models.SignalTimeout)
		return outcome, navErr
	}

	humanPause(tabCtx)
	if handleConsent(tabCtx, 3*time.Second) {
		if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &body)); err != nil {
			b.logger.Debug().Err(err).Msg("failed to re-capture dom after consent")
		}
	}
	smallScroll(tabCtx)
	humanPause(tabCtx)

	if status == 0 {
		status = 200 // chromedp's high-level API does not surface the top-level response status directly
	}

	if detectHardBlock(body) {
		b.sessions.MarkFailure(key)
		outcome.addSignal(models.SignalHardBlock)
		return outcome, nil
	}

	artifact := extractor.Artifact{HTML: body, URL: finalURL}
	outcome.Artifact = artifact

	if job.CrawlMode == models.CrawlModeList && job.ListConfig != nil {
		records, err := b.extractor.ExtractList(artifact, *job.ListConfig, fields, func(u string) (extractor.Artifact, error) {
			return b.fetchWithinSession(tabCtx, u)
		})
		if err != nil {
			b.sessions.MarkFailure(key)
			return outcome, err
		}
		if len(records) == 0 && job.ListConfig.MaxItems != 0 {
			outcome.addSignal(models.SignalExtractionEmpty)
		}
		outcome.Records = records
	} else {
		record, err := b.extractor.ExtractSingle(artifact, fields)
		if err != nil {
			b.sessions.MarkFailure(key)
			return outcome, err
		}
		if record == nil {
			outcome.addSignal(models.SignalExtractionEmpty)
		} else {
			record.Meta.Engine = models.TierBrowser
			record.Meta.HTTPStatus = int(status)
			record.Meta.FetchedAt = time.Now()
			outcome.Records = []*models.Record{record}
		}
	}

	cookies, captureErr := captureCookies(tabCtx, job.TargetURL)
	if captureErr != nil {
		b.logger.Debug().Err(captureErr).Msg("failed to capture session cookies")
	}
	if reused != nil {
		b.sessions.MarkSuccess(key)
		if cookies != nil {
			b.sessions.Refresh(key, cookies, nil)
		}
	} else {
		b.sessions.Create(key, cookies, nil, job.BrowserProfile.UserAgent, job.BrowserProfile.Viewport)
		b.sessions.MarkSuccess(key)
	}

	return outcome, nil
}

// fetchWithinSession navigates the same tab to a detail page URL while
// list-mode walks item links, reusing the already-warmed session state.
func (b *BrowserExecutor) fetchWithinSession(ctx context.Context, targetURL string) (extractor.Artifact, error) {
	var body, finalURL string
	err := chromedp.Run(ctx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &body),
	)
	if err != nil {
		return extractor.Artifact{}, err
	}
	humanPause(ctx)
	return extractor.Artifact{HTML: body, URL: finalURL}, nil
}
