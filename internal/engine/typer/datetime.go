package typer

import (
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

type dateKind int

const (
	dateKindDate dateKind = iota
	dateKindTime
	dateKindDatetime
)

// typeDateLike covers date/time/datetime: parse with natural-language
// support using context locale/timezone, normalize to ISO-8601, enforce
// year bounds and past/future constraints (§4.1).
func typeDateLike(raw string, smart models.SmartConfig, ctx Context, kind dateKind) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		return r.fail("empty_value")
	}

	loc := resolveLocation(smart.Timezone, ctx.Timezone)
	now := ctx.Now
	if now.IsZero() {
		now = time.Now()
	}

	cfg := &dateparser.Configuration{
		DefaultTimezone: loc,
		CurrentTime:     now,
	}
	languages := []string{"en"}
	if smart.Locale != "" {
		languages = []string{smart.Locale}
	} else if ctx.Locale != "" {
		languages = []string{ctx.Locale}
	}

	parsed, err := dateparser.Parse(cfg, cleaned, languages...)
	if err != nil || parsed == nil {
		return r.fail("unparseable_date")
	}
	t := parsed.Time
	if t.IsZero() {
		return r.fail("unparseable_date")
	}

	r.addReason("parsed_natural_language_date", 0.9)

	minYear := smart.MinYear
	if minYear == 0 {
		minYear = 1900
	}
	maxYear := smart.MaxYear
	if maxYear == 0 {
		maxYear = now.Year() + 50
	}
	if t.Year() < minYear || t.Year() > maxYear {
		r.addError("year_out_of_bounds", 0.5)
	}
	if smart.PastOnly && t.After(now) {
		r.addError("must_be_past", 0.4)
	}
	if smart.FutureOnly && t.Before(now) {
		r.addError("must_be_future", 0.4)
	}

	switch kind {
	case dateKindDate:
		return r.ok(t.Format("2006-01-02"))
	case dateKindTime:
		return r.ok(t.Format("15:04:05"))
	default:
		return r.ok(t.UTC().Format(time.RFC3339))
	}
}

func resolveLocation(fieldTZ, ctxTZ string) *time.Location {
	name := fieldTZ
	if name == "" {
		name = ctxTZ
	}
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
