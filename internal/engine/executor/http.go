package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/extractor"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// jsFrameworkMarkers are body substrings that indicate client-side rendering
// is required for the page to carry real content (§4.3).
var jsFrameworkMarkers = []*regexp.Regexp{
	regexp.MustCompile(`__NEXT_DATA__`),
	regexp.MustCompile(`data-reactroot`),
	regexp.MustCompile(`ng-version`),
	regexp.MustCompile(`data-vue-`),
	regexp.MustCompile(`svelte-[a-zA-Z0-9]+`),
}

var robotsNoindexPattern = regexp.MustCompile(`(?i)<meta\s+name=["']robots["']\s+content=["'][^"']*noindex[^"']*["']`)

// HTTPConfig configures the HTTP executor's fetch behavior.
type HTTPConfig struct {
	Timeout       time.Duration
	UserAgent     string
	AcceptLanguage string
}

// HTTPExecutor fetches pages with plain HTTP, never executing JavaScript
// (C3). It wraps gocolly the way the teacher's HTMLScraper does: a cloned
// collector per request, a context-aware transport for in-flight
// cancellation, and response capture via callbacks.
type HTTPExecutor struct {
	logger    arbor.ILogger
	collector *colly.Collector
	extractor *extractor.Extractor
	cfg       HTTPConfig
}

// NewHTTPExecutor builds an HTTPExecutor. The base collector is cloned per
// fetch to avoid handler accumulation across requests (teacher pattern in
// html_scraper.go).
func NewHTTPExecutor(cfg HTTPConfig, logger arbor.ILogger, ex *extractor.Extractor) *HTTPExecutor {
	c := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	c.SetRequestTimeout(cfg.Timeout)
	return &HTTPExecutor{logger: logger, collector: c, extractor: ex, cfg: cfg}
}

// contextAwareTransport cancels in-flight requests when ctx is done,
// grounded on the teacher's html_scraper.go transport wrapper.
type contextAwareTransport struct {
	base http.RoundTripper
	ctx  context.Context
}

func (t *contextAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	select {
	case <-t.ctx.Done():
		return nil, t.ctx.Err()
	default:
	}
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

type fetchCapture struct {
	status   int
	headers  http.Header
	body     string
	finalURL string
	err      error
}

// Fetch retrieves targetURL and returns an Artifact plus block/hint signals,
// without evaluating the job's selectors.
func (h *HTTPExecutor) Fetch(ctx context.Context, targetURL string, profile models.BrowserProfile) (extractor.Artifact, *fetchCapture) {
	c := h.collector.Clone()
	c.WithTransport(&contextAwareTransport{base: http.DefaultTransport, ctx: ctx})

	capture := &fetchCapture{finalURL: targetURL}

	c.OnRequest(func(r *colly.Request) {
		if profile.UserAgent != "" {
			r.Headers.Set("User-Agent", profile.UserAgent)
		}
		lang := h.cfg.AcceptLanguage
		if lang == "" {
			lang = "en-US,en;q=0.9"
		}
		r.Headers.Set("Accept-Language", lang)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})
	c.OnResponse(func(r *colly.Response) {
		capture.status = r.StatusCode
		capture.headers = *r.Headers
		capture.body = string(r.Body)
		capture.finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		capture.err = err
		if r != nil {
			capture.status = r.StatusCode
		}
	})

	if err := c.Visit(targetURL); err != nil && capture.err == nil {
		capture.err = err
	}
	c.Wait()

	return extractor.Artifact{HTML: capture.body, URL: capture.finalURL}, capture
}

// Execute runs the full C3 contract: fetch, derive block/hint signals, and
// (unless a hard signal makes extraction meaningless) run the Field
// Extractor over the result.
func (h *HTTPExecutor) Execute(ctx context.Context, job *models.Job, fields map[string]models.FieldMap) (*ExecutionOutcome, error) {
	start := time.Now()

	if !h.robotsAllow(ctx, job.TargetURL) {
		outcome := &ExecutionOutcome{FinalURL: job.TargetURL, Elapsed: time.Since(start)}
		outcome.addSignal(models.SignalBlocked)
		return outcome, nil
	}

	artifact, capture := h.Fetch(ctx, job.TargetURL, job.BrowserProfile)
	outcome := &ExecutionOutcome{Artifact: artifact, FinalURL: artifact.URL, Elapsed: time.Since(start)}

	if capture.err != nil {
		outcome.addSignal(classifyTransportError(capture.status))
		return outcome, capture.err
	}

	switch {
	case capture.status == 401 || capture.status == 403 || capture.status == 429:
		outcome.addSignal(models.SignalBlocked)
		return outcome, nil
	case capture.status >= 500:
		outcome.addSignal(models.SignalBadResponse)
		return outcome, nil
	}

	for _, marker := range jsFrameworkMarkers {
		if marker.MatchString(capture.body) {
			outcome.addSignal(models.SignalJSRequired)
			break
		}
	}
	if robotsNoindexPattern.MatchString(capture.body) {
		outcome.addSignal(models.SignalJSRequired)
	}

	if job.CrawlMode == models.CrawlModeList && job.ListConfig != nil {
		records, err := h.extractor.ExtractList(artifact, *job.ListConfig, fields, func(u string) (extractor.Artifact, error) {
			a, c := h.Fetch(ctx, u, job.BrowserProfile)
			return a, c.err
		})
		if err != nil {
			return outcome, err
		}
		if len(records) == 0 && job.ListConfig.MaxItems != 0 {
			outcome.addSignal(models.SignalExtractionEmpty)
		}
		outcome.Records = records
	} else {
		record, err := h.extractor.ExtractSingle(artifact, fields)
		if err != nil {
			return outcome, err
		}
		if record == nil {
			outcome.addSignal(models.SignalExtractionEmpty)
		} else {
			record.Meta.Engine = models.TierHTTP
			record.Meta.HTTPStatus = capture.status
			record.Meta.FetchedAt = time.Now()
			outcome.Records = []*models.Record{record}
		}
	}

	return outcome, nil
}

// robotsAllow fetches and evaluates robots.txt for targetURL's origin,
// following the teacher's FollowRobotsTxt intent (§6 domain stack). A
// missing or unparseable robots.txt fails open, matching gocolly's own
// IgnoreRobotsTxt default of "don't fetch unless configured to".
func (h *HTTPExecutor) robotsAllow(ctx context.Context, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return true
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return true
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return true
	}
	group := data.FindGroup(h.cfg.UserAgent)
	return group.Test(u.Path)
}

func classifyTransportError(status int) models.Signal {
	if status >= 500 {
		return models.SignalBadResponse
	}
	return models.SignalNetwork
}

// bodyContainsAny is a small helper kept for readability at call sites that
// check multiple case-insensitive substrings.
func bodyContainsAny(body string, markers []string) bool {
	lower := strings.ToLower(body)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
