package typer

import (
	"github.com/nyaruka/phonenumbers"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// §4.1 phone/mobile/fax contract: parse via a phone library, normalize to
// E.164 with a default region from context, validate IsValidNumber.
// Confidence: 0.95 valid, 0.7 only IsPossibleNumber, 0 otherwise.
func typePhone(raw string, smart models.SmartConfig, ctx Context) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		return r.fail("empty_value")
	}

	region := smart.DefaultRegion
	if region == "" {
		region = ctx.DefaultRegion
	}
	if region == "" {
		region = "US"
	}

	num, err := phonenumbers.Parse(cleaned, region)
	if err != nil {
		return r.fail("unparseable_phone")
	}

	e164 := phonenumbers.Format(num, phonenumbers.E164)

	if phonenumbers.IsValidNumber(num) {
		r.addReason("parsed_e164", 0.95)
		return r.ok(e164)
	}
	if phonenumbers.IsPossibleNumber(num) {
		r.addReason("possible_but_unvalidated", 0.7)
		return r.ok(e164)
	}
	return r.fail("invalid_phone_number")
}
