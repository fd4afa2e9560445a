// Package typer implements the Value Typer (C1): a deterministic pipeline
// that cleans, parses, validates, normalizes and scores a raw extracted
// string into a typed value with confidence and evidence.
//
// The source system dispatches parsers through a type->function registry
// resolved at runtime. Here the dispatch is a switch over the closed
// FieldType enum (internal/engine/models). The compiler does not check it
// for exhaustiveness: an unhandled type falls to the default branch and
// fails with "unknown_field_type", and TestAllFieldTypesHaveADispatchCase
// checks every enum member against it.
package typer

import (
	"time"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// Typed is the output of typing one raw field value.
type Typed struct {
	Value      any      `json:"value"` // nil when parsing/validation failed
	Raw        string   `json:"raw"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// ToEvidence projects a Typed result into the Record evidence shape.
func (t Typed) ToEvidence() models.Evidence {
	return models.Evidence{
		Raw:        t.Raw,
		Confidence: t.Confidence,
		Reasons:    t.Reasons,
		Errors:     t.Errors,
	}
}

// Context carries the ambient parsing context a handful of types need:
// default region for phone numbers, locale/timezone for dates.
type Context struct {
	DefaultRegion string // e.g. "US" - phone/mobile/fax
	Locale        string // e.g. "en" - date/time/datetime
	Timezone      string // IANA zone name - date/time/datetime
	Now           time.Time
}

// DefaultContext returns a Context with sane process-wide defaults.
func DefaultContext() Context {
	return Context{
		DefaultRegion: "US",
		Locale:        "en",
		Timezone:      "UTC",
		Now:           time.Now(),
	}
}

// result is the mutable accumulator parsers build up across pipeline
// stages; confidence accumulates on success and is docked on each
// validation violation, per §4.1.
type result struct {
	value      any
	raw        string
	confidence float64
	reasons    []string
	errors     []string
}

func newResult(raw string) *result {
	return &result{raw: raw}
}

func (r *result) addReason(reason string, delta float64) {
	r.reasons = append(r.reasons, reason)
	r.confidence = clamp01(r.confidence + delta)
}

func (r *result) addError(errToken string, delta float64) {
	r.errors = append(r.errors, errToken)
	r.confidence = clamp01(r.confidence - delta)
}

func (r *result) fail(errToken string) Typed {
	r.errors = append(r.errors, errToken)
	return Typed{Value: nil, Raw: r.raw, Confidence: 0, Reasons: r.reasons, Errors: r.errors}
}

func (r *result) ok(value any) Typed {
	return Typed{Value: value, Raw: r.raw, Confidence: clamp01(r.confidence), Reasons: r.reasons, Errors: r.errors}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
