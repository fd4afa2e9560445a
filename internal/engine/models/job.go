// Package models defines the core data model for the scraping control
// plane: Job, FieldMap, Run, Record, Session, ApiKey and Intervention.
package models

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CrawlMode selects whether a job extracts a single page or a list of items.
type CrawlMode string

const (
	CrawlModeSingle CrawlMode = "single"
	CrawlModeList   CrawlMode = "list"
)

// EngineMode pins a job to a specific executor tier, or lets the escalation
// engine pick one automatically.
type EngineMode string

const (
	EngineModeAuto     EngineMode = "auto"
	EngineModeHTTP     EngineMode = "http"
	EngineModeBrowser  EngineMode = "browser"
	EngineModeProvider EngineMode = "provider"
)

// ListConfig configures list-mode pagination and item discovery.
type ListConfig struct {
	ItemLinksSelector    SelectorSpec `json:"item_links_selector"`
	PaginationSelector   SelectorSpec `json:"pagination_selector"`
	MaxPages             int          `json:"max_pages"`
	MaxItems             int          `json:"max_items"`
}

// BrowserProfile describes the stable, reproducible browser fingerprint used
// by the Browser Executor. Per-job fields override the process default
// individually; a zero value for a field means "use the process default".
type BrowserProfile struct {
	UserAgent   string `json:"user_agent,omitempty"`
	Viewport    string `json:"viewport,omitempty"` // "WIDTHxHEIGHT"
	Locale      string `json:"locale,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	ColorScheme string `json:"color_scheme,omitempty"`
}

// Merge overlays non-zero fields of override onto a copy of the receiver,
// implementing "per-job override is authoritative when present".
func (p BrowserProfile) Merge(override BrowserProfile) BrowserProfile {
	merged := p
	if override.UserAgent != "" {
		merged.UserAgent = override.UserAgent
	}
	if override.Viewport != "" {
		merged.Viewport = override.Viewport
	}
	if override.Locale != "" {
		merged.Locale = override.Locale
	}
	if override.Timezone != "" {
		merged.Timezone = override.Timezone
	}
	if override.ColorScheme != "" {
		merged.ColorScheme = override.ColorScheme
	}
	return merged
}

// Job is the immutable-after-validation specification of a scrape target.
type Job struct {
	ID             string         `json:"id" badgerhold:"key" validate:"required"`
	TargetURL      string         `json:"target_url" validate:"required,url"`
	Fields         []string       `json:"fields" validate:"required,min=1,dive,required"`
	CrawlMode      CrawlMode      `json:"crawl_mode" validate:"required,oneof=single list"`
	ListConfig     *ListConfig    `json:"list_config,omitempty"`
	RequiresAuth   bool           `json:"requires_auth"`
	EngineMode     EngineMode     `json:"engine_mode" badgerhold:"index" validate:"required,oneof=auto http browser provider"`
	BrowserProfile BrowserProfile `json:"browser_profile"`
	StrategyHint   string         `json:"strategy_hint,omitempty"`
	ProxyIdentity  string         `json:"proxy_identity,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate enforces the Job invariants from the data model. Struct-shape
// checks (required fields, the closed crawl_mode/engine_mode sets) run
// through go-playground/validator; the cross-field rules it can't express
// as tags — scheme allowlisting, duplicate field names, list_config's
// crawl_mode-conditional presence — are checked by hand afterward.
func (j *Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("job: %w", err)
	}

	u, err := url.Parse(j.TargetURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("job: target_url must be an absolute URL: %q", j.TargetURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("job: target_url scheme must be http or https, got %q", u.Scheme)
	}

	seen := make(map[string]bool, len(j.Fields))
	for _, f := range j.Fields {
		if seen[f] {
			return fmt.Errorf("job: duplicate declared field %q", f)
		}
		seen[f] = true
	}

	switch j.CrawlMode {
	case CrawlModeSingle:
		if j.ListConfig != nil {
			return fmt.Errorf("job: list_config must be absent when crawl_mode=single")
		}
	case CrawlModeList:
		if j.ListConfig == nil {
			return fmt.Errorf("job: list_config is required when crawl_mode=list")
		}
	}

	return nil
}

// EffectiveProxyIdentity returns the job's proxy identity, defaulting to
// "default" per the Session Manager key contract.
func (j *Job) EffectiveProxyIdentity() string {
	if j.ProxyIdentity == "" {
		return "default"
	}
	return j.ProxyIdentity
}

// MaskSensitiveData returns a shallow copy with nothing redacted: Job
// carries no auth material. Run and Session have no masking method.
func (j *Job) MaskSensitiveData() *Job {
	masked := *j
	return &masked
}
