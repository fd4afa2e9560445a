package typer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// Money is the typed output of the money field type: §4.1 "output
// {amount: decimal, currency: code}".
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

var currencySymbols = map[string]string{
	"$": "USD", "£": "GBP", "€": "EUR", "¥": "JPY",
	"₹": "INR", "₩": "KRW", "₽": "RUB", "฿": "THB",
}

var isoCurrencyPattern = regexp.MustCompile(`(?i)\b(USD|GBP|EUR|JPY|INR|KRW|RUB|THB|AUD|CAD|CHF|CNY|NZD)\b`)

func typeMoney(raw string, smart models.SmartConfig, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		return r.ok(nil)
	}

	currency := ""
	for sym, code := range currencySymbols {
		if strings.Contains(cleaned, sym) {
			currency = code
			break
		}
	}
	if currency == "" {
		if m := isoCurrencyPattern.FindString(cleaned); m != "" {
			currency = strings.ToUpper(m)
		}
	}
	if currency == "" {
		if smart.DefaultCurrency != "" {
			currency = smart.DefaultCurrency
			r.addReason("used_default_currency", 0)
		} else {
			r.addError("currency_not_detected", 0.3)
		}
	} else {
		r.addReason("detected_currency", 0.2)
	}

	token := stripThousands(extractNumericToken(cleaned))
	if token == "" {
		return r.fail("not_numeric")
	}
	amount, err := decimal.NewFromString(token)
	if err != nil {
		return r.fail("invalid_money_amount")
	}
	// A sign written before the currency symbol ("-$40.00") is not part of
	// the numeric token.
	if strings.HasPrefix(cleaned, "-") && amount.IsPositive() {
		amount = amount.Neg()
	}

	if amount.IsNegative() && !smart.AllowNegative {
		return r.fail("negative_amount_rejected")
	}

	r.addReason("parsed_money", 0.78)
	if rules.MinValue != nil || rules.MaxValue != nil {
		f, _ := amount.Float64()
		applyNumericBounds(r, f, rules)
	}

	return r.ok(Money{Amount: amount, Currency: currency})
}
