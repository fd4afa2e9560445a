package typer

import (
	"strconv"
	"strings"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

func typeString(raw string, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, false)
	if cleaned == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		r.addReason("parsed_empty", 0.5)
		return r.ok(cleaned)
	}
	r.addReason("cleaned", 0.9)
	applyStringBounds(r, cleaned, rules)
	return r.ok(cleaned)
}

func typeText(raw string, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		r.addReason("parsed_empty", 0.5)
		return r.ok(cleaned)
	}
	r.addReason("stripped_html", 0.9)
	applyStringBounds(r, cleaned, rules)
	return r.ok(cleaned)
}

func typeHTML(raw string, rules models.ValidationRules) Typed {
	r := newResult(raw)
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		r.addReason("parsed_empty", 0.5)
		return r.ok(trimmed)
	}
	r.addReason("parsed_html", 0.9)
	applyStringBounds(r, trimmed, rules)
	return r.ok(trimmed)
}

func applyStringBounds(r *result, s string, rules models.ValidationRules) {
	if rules.MinLength > 0 && len(s) < rules.MinLength {
		r.addError("below_min_length", 0.3)
	}
	if rules.MaxLength > 0 && len(s) > rules.MaxLength {
		r.addError("above_max_length", 0.3)
	}
	if rules.Pattern != "" && !matchPattern(rules.Pattern, s) {
		r.addError("pattern_mismatch", 0.4)
	}
	if len(rules.AllowedSet) > 0 && !inAllowedSet(rules.AllowedSet, s) {
		r.addError("not_in_allowed_set", 0.4)
	}
}

func typeBoolean(raw string) Typed {
	r := newResult(raw)
	cleaned := strings.ToLower(cleanString(raw, true))
	switch cleaned {
	case "true", "yes", "y", "1", "on", "checked", "available", "in stock", "in-stock":
		r.addReason("parsed_true", 0.95)
		return r.ok(true)
	case "false", "no", "n", "0", "off", "unchecked", "unavailable", "out of stock", "out-of-stock":
		r.addReason("parsed_false", 0.95)
		return r.ok(false)
	case "":
		return r.fail("empty_value")
	default:
		// Fall back to a best-effort numeric truthiness check.
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			r.addReason("parsed_numeric_truthiness", 0.6)
			return r.ok(f != 0)
		}
		return r.fail("invalid_boolean")
	}
}

func typeCategory(raw string, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		return r.ok(cleaned)
	}
	if len(rules.AllowedSet) > 0 {
		if !inAllowedSet(rules.AllowedSet, cleaned) {
			r.addError("not_in_allowed_set", 0.5)
			return r.fail("invalid_category")
		}
		r.addReason("matched_allowed_set", 0.95)
	} else {
		r.addReason("parsed_category", 0.8)
	}
	return r.ok(cleaned)
}

// typeNamePart covers person_name/first_name/last_name/company/job_title:
// these are all "cleaned free text with light bounds", no further typed
// structure beyond the string itself.
func typeNamePart(raw string, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		return r.ok(cleaned)
	}
	r.addReason("cleaned", 0.85)
	applyStringBounds(r, cleaned, rules)
	return r.ok(cleaned)
}

func inAllowedSet(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, v string) bool {
	re, err := compileCached(pattern)
	if err != nil {
		return true // an invalid pattern never rejects a value
	}
	return re.MatchString(v)
}
