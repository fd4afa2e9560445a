package typer

import (
	"regexp"
	"strings"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// Address is the typed output of the address field type: best-effort
// structured extraction, §4.1.
type Address struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	Postal     string `json:"postal,omitempty"`
	Country    string `json:"country,omitempty"`
}

// zipLike matches US 5- and 9-digit ZIP codes only (UK and CA postal codes
// are not matched), used only as a best-effort structural hint.
var zipLike = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)

// addressLine matches "<city>, <region> <postal>" — the most common
// trailing shape in scraped single-line addresses.
var addressLine = regexp.MustCompile(`(?i)([A-Za-z .'-]+),\s*([A-Za-z]{2,})\s*(\d{5}(?:-\d{4})?)?\s*$`)

func typeAddress(raw string, smart models.SmartConfig) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		return r.fail("empty_value")
	}

	addr := Address{Raw: cleaned, Normalized: cleaned}

	if m := addressLine.FindStringSubmatch(cleaned); len(m) == 4 {
		addr.City = strings.TrimSpace(m[1])
		addr.Region = strings.TrimSpace(m[2])
		addr.Postal = strings.TrimSpace(m[3])
		r.addReason("parsed_city_region_postal", 0.7)
	} else if zip := zipLike.FindString(cleaned); zip != "" {
		addr.Postal = zip
		r.addReason("parsed_postal_only", 0.4)
	} else {
		// Best-effort parsing failure degrades to raw + low confidence,
		// not a hard failure (§4.1).
		r.addReason("raw_only", 0.2)
	}

	return r.ok(addr)
}

func typeAddressPart(raw string, rules models.ValidationRules) Typed {
	r := newResult(raw)
	cleaned := cleanString(raw, true)
	if cleaned == "" {
		if rules.Required {
			return r.fail("empty_required_value")
		}
		return r.ok(cleaned)
	}
	r.addReason("cleaned", 0.75)
	applyStringBounds(r, cleaned, rules)
	return r.ok(cleaned)
}
