package typer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

var thousandsSeparator = regexp.MustCompile(`[,\s]`)

// stripThousands removes thousands separators (comma or space) so the
// remaining string is parseable as a plain number.
func stripThousands(s string) string {
	return thousandsSeparator.ReplaceAllString(s, "")
}

// extractNumericToken pulls the first signed-number-looking substring out
// of raw, tolerating surrounding units/symbols ("4.5 out of 5", "$12.00").
func extractNumericToken(raw string) string {
	re := regexp.MustCompile(`-?\d[\d,\s]*(\.\d+)?`)
	return strings.TrimSpace(re.FindString(raw))
}

func typeInteger(raw string, smart models.SmartConfig, rules models.ValidationRules) Typed {
	r := newResult(raw)
	token := stripThousands(extractNumericToken(cleanString(raw, true)))
	if token == "" {
		return r.fail("not_numeric")
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return r.fail("invalid_integer")
	}
	i := int64(f)
	if !smart.AllowNegative && i < 0 {
		return r.fail("negative_not_allowed")
	}
	r.addReason("parsed_integer", 0.95)
	applyNumericBounds(r, float64(i), rules)
	return r.ok(i)
}

func typeDecimal(raw string, smart models.SmartConfig, rules models.ValidationRules) Typed {
	r := newResult(raw)
	token := stripThousands(extractNumericToken(cleanString(raw, true)))
	if token == "" {
		return r.fail("not_numeric")
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return r.fail("invalid_decimal")
	}
	if !smart.AllowNegative && d.IsNegative() {
		return r.fail("negative_not_allowed")
	}
	r.addReason("parsed_decimal", 0.95)
	f, _ := d.Float64()
	applyNumericBounds(r, f, rules)
	return r.ok(d)
}

func typeNumber(raw string, smart models.SmartConfig, rules models.ValidationRules) Typed {
	// "number" is a permissive float, same parser as decimal but returns a
	// plain float64 instead of a decimal.Decimal for callers that don't
	// need exact precision.
	typed := typeDecimal(raw, smart, rules)
	if typed.Value == nil {
		return typed
	}
	d := typed.Value.(decimal.Decimal)
	f, _ := d.Float64()
	typed.Value = f
	return typed
}

func typePercentage(raw string, smart models.SmartConfig, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	hasSign := strings.Contains(cleaned, "%")
	token := stripThousands(extractNumericToken(cleaned))
	if token == "" {
		return r.fail("not_numeric")
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return r.fail("invalid_percentage")
	}
	if hasSign {
		r.addReason("parsed_percent_symbol", 0.95)
	} else {
		r.addReason("parsed_bare_number_as_percent", 0.7)
	}
	applyNumericBounds(r, f, rules)
	return r.ok(f)
}

func typeRating(raw string, smart models.SmartConfig, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)

	// Common "X out of Y" / "X/Y" rating phrasing yields X as written; the
	// value is not rescaled by Y.
	if m := ratingOutOfPattern.FindStringSubmatch(cleaned); len(m) == 3 {
		num, errN := strconv.ParseFloat(m[1], 64)
		den, errD := strconv.ParseFloat(m[2], 64)
		if errN == nil && errD == nil && den > 0 {
			r.addReason("parsed_rating_out_of", 0.9)
			applyNumericBounds(r, num, rules)
			return r.ok(num)
		}
	}

	token := stripThousands(extractNumericToken(cleaned))
	if token == "" {
		return r.fail("not_numeric")
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return r.fail("invalid_rating")
	}
	r.addReason("parsed_rating", 0.85)
	applyNumericBounds(r, f, rules)
	return r.ok(f)
}

var ratingOutOfPattern = regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*(?:out of|/)\s*(\d+(?:\.\d+)?)`)

func applyNumericBounds(r *result, v float64, rules models.ValidationRules) {
	if rules.MinValue != nil && v < *rules.MinValue {
		r.addError("below_min_value", 0.4)
	}
	if rules.MaxValue != nil && v > *rules.MaxValue {
		r.addError("above_max_value", 0.4)
	}
}
