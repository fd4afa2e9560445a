// Package extractor implements the Field Extractor (C2): it evaluates a
// job's declared selectors against a fetched artifact and routes every raw
// string through the Value Typer to assemble Records.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
	"github.com/ternarybob/scrapeengine/internal/engine/typer"
)

// Artifact is a fetched page ready for selector evaluation: the raw HTML and
// the URL it was fetched from (used for relative-link resolution).
type Artifact struct {
	HTML string
	URL  string
}

// Extractor evaluates SelectorSpecs against an Artifact and produces typed
// Records.
type Extractor struct {
	logger  arbor.ILogger
	typerCtx typer.Context
}

// New builds an Extractor with the given logger and typer context (default
// region/locale/timezone/now used by date/phone field types).
func New(logger arbor.ILogger, ctx typer.Context) *Extractor {
	return &Extractor{logger: logger, typerCtx: ctx}
}

// FieldResult is one typed field value plus its evidence, keyed by field
// name, before it is folded into a Record.
type FieldResult struct {
	Typed typer.Typed
}

// ExtractSingle evaluates every declared field against the artifact root and
// returns exactly one Record (possibly with nulls) if at least one field
// resolved to a non-nil value, per §4.2 step 1.
func (e *Extractor) ExtractSingle(artifact Artifact, fields map[string]models.FieldMap) (*models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(artifact.HTML))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}
	xdoc, xerr := htmlquery.Parse(strings.NewReader(artifact.HTML))

	data := make(map[string]any, len(fields))
	evidence := make(map[string]models.Evidence, len(fields))
	resolved := 0

	for name, fm := range fields {
		raw, all := e.evaluate(doc, xdoc, xerr, fm.Selector, artifact.URL)
		if fm.Selector.All {
			typed := e.typeList(all, fm)
			data[name] = typed.values
			evidence[name] = typed.evidence
			if len(typed.values) > 0 {
				resolved++
			}
			continue
		}
		t := typer.Type(fm.FieldType, raw, fm.SmartConfig, fm.ValidationRules, e.typerCtx)
		if len(all) == 0 && t.Value != nil {
			// No element matched: the field is null whatever the typer made of "".
			t.Value = nil
			t.Confidence = 0
			t.Errors = append(t.Errors, "empty_value")
		}
		if t.Value != nil {
			resolved++
		}
		data[name] = t.Value
		evidence[name] = t.ToEvidence()
	}

	if resolved == 0 {
		return nil, nil
	}

	return &models.Record{
		Data:     data,
		Evidence: evidence,
		Meta: models.RecordMeta{
			URL:    artifact.URL,
		},
	}, nil
}

type listTyped struct {
	values   []any
	evidence models.Evidence
}

// typeList types every matched string for an all=true selector and collapses
// their evidence into one combined Evidence entry (mean confidence, unioned
// reasons/errors), since Evidence is recorded per field name not per element.
func (e *Extractor) typeList(raws []string, fm models.FieldMap) listTyped {
	values := make([]any, 0, len(raws))
	var reasons, errs []string
	var confSum float64
	for _, raw := range raws {
		t := typer.Type(fm.FieldType, raw, fm.SmartConfig, fm.ValidationRules, e.typerCtx)
		if t.Value != nil {
			values = append(values, t.Value)
		}
		reasons = append(reasons, t.Reasons...)
		errs = append(errs, t.Errors...)
		confSum += t.Confidence
	}
	conf := 0.0
	if len(raws) > 0 {
		conf = confSum / float64(len(raws))
	}
	return listTyped{
		values: values,
		evidence: models.Evidence{
			Raw:        strings.Join(raws, " | "),
			Confidence: conf,
			Reasons:    reasons,
			Errors:     errs,
		},
	}
}

// ItemLinks evaluates a list job's item_links_selector against the artifact,
// returning absolute detail-page URLs.
func (e *Extractor) ItemLinks(artifact Artifact, sel models.SelectorSpec) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(artifact.HTML))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}
	xdoc, xerr := htmlquery.Parse(strings.NewReader(artifact.HTML))

	_, raws := e.evaluate(doc, xdoc, xerr, withAll(sel), artifact.URL)
	links := make([]string, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	base, _ := url.Parse(artifact.URL)
	for _, raw := range raws {
		resolved := resolveURL(raw, base)
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true
		links = append(links, resolved)
	}
	return links, nil
}

// NextPageURL evaluates a list job's pagination_selector, returning the
// resolved next-page URL, or "" if none is present.
func (e *Extractor) NextPageURL(artifact Artifact, sel models.SelectorSpec) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(artifact.HTML))
	if err != nil {
		return ""
	}
	xdoc, xerr := htmlquery.Parse(strings.NewReader(artifact.HTML))
	raw, _ := e.evaluate(doc, xdoc, xerr, sel, artifact.URL)
	if raw == "" {
		return ""
	}
	base, _ := url.Parse(artifact.URL)
	return resolveURL(raw, base)
}

func withAll(sel models.SelectorSpec) models.SelectorSpec {
	sel.All = true
	return sel
}

func resolveURL(href string, base *url.URL) string {
	if href == "" {
		return ""
	}
	if base == nil {
		if u, err := url.Parse(href); err == nil && u.IsAbs() {
			return u.String()
		}
		return ""
	}
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return u.String()
}

// evaluate dispatches to the CSS or XPath selector engine and returns both
// the single (first-match) raw string and the full list of matches, with an
// optional regex capture applied to each. Missing elements yield "".
func (e *Extractor) evaluate(doc *goquery.Document, xdoc *html.Node, xerr error, sel models.SelectorSpec, sourceURL string) (string, []string) {
	var matches []string
	switch sel.Language {
	case models.SelectorXPath:
		if xerr != nil {
			e.logger.Warn().Err(xerr).Str("url", sourceURL).Msg("failed to parse html for xpath evaluation")
			return "", nil
		}
		matches = e.evaluateXPath(xdoc, sel)
	default:
		matches = e.evaluateCSS(doc, sel)
	}

	if sel.RegexCapture != "" {
		for i, m := range matches {
			matches[i] = applyCapture(m, sel.RegexCapture)
		}
	}

	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], matches
}

func (e *Extractor) evaluateCSS(doc *goquery.Document, sel models.SelectorSpec) []string {
	var out []string
	sel2 := doc.Find(sel.Expression)
	sel2.EachWithBreak(func(i int, s *goquery.Selection) bool {
		out = append(out, readSelection(s, sel))
		return sel.All
	})
	return out
}

func readSelection(s *goquery.Selection, sel models.SelectorSpec) string {
	if sel.Mode == models.SelectorModeAttribute {
		v, _ := s.Attr(sel.Attribute)
		return v
	}
	return s.Text()
}

func (e *Extractor) evaluateXPath(doc *html.Node, sel models.SelectorSpec) []string {
	nodes, err := htmlquery.QueryAll(doc, sel.Expression)
	if err != nil || len(nodes) == 0 {
		return nil
	}
	var out []string
	for _, n := range nodes {
		if sel.Mode == models.SelectorModeAttribute {
			out = append(out, htmlquery.SelectAttr(n, sel.Attribute))
		} else {
			out = append(out, htmlquery.InnerText(n))
		}
		if !sel.All {
			break
		}
	}
	return out
}
