package typer

import (
	"regexp"
	"strings"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// emailPattern is an RFC-like (not fully RFC 5322) email matcher, adequate
// for extracted-text validation rather than mailbox-grade acceptance.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

var disposableDomains = map[string]bool{
	"mailinator.com": true, "10minutemail.com": true, "guerrillamail.com": true,
	"tempmail.com": true, "yopmail.com": true, "trashmail.com": true,
	"throwawaymail.com": true,
}

// §4.1 email contract: confidence 0.98 parsed+normalized, 0.6 parsed but
// suspicious domain, 0 if not parsed.
func typeEmail(raw string, smart models.SmartConfig) Typed {
	r := newResult(raw)
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return r.fail("empty_value")
	}
	if len(cleaned) > 254 {
		return r.fail("too_long")
	}
	if !emailPattern.MatchString(cleaned) {
		return r.fail("invalid_format")
	}

	at := strings.LastIndex(cleaned, "@")
	local, host := cleaned[:at], strings.ToLower(cleaned[at+1:])
	normalized := local + "@" + host

	if disposableDomains[host] {
		if smart.RejectDisposable {
			return r.fail("disposable_domain")
		}
		r.addReason("parsed_email", 0.6)
		return r.ok(normalized)
	}

	r.addReason("normalized_email", 0.98)
	return r.ok(normalized)
}
