package typer

import (
	"net/url"
	"strings"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// trackingParams is the fixed set of query parameters stripped during URL
// normalization (§4.1: "strip a fixed set of tracking query parameters").
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "gclid": true, "fbclid": true,
	"msclkid": true, "ref": true, "mc_cid": true, "mc_eid": true,
}

func typeURL(raw string, smart models.SmartConfig, isImage bool) Typed {
	r := newResult(raw)
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return r.fail("empty_value")
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return r.fail("unparseable_url")
	}
	if u.Scheme == "" || u.Host == "" {
		return r.fail("missing_scheme_or_host")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		r.addError("unsupported_scheme", 0.4)
	} else {
		r.addReason("parsed_url", 0.9)
	}

	if smart.ForceHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
		r.addReason("forced_https", 0)
	}

	if smart.StripTrackingParams && u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if trackingParams[strings.ToLower(key)] {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
		r.addReason("stripped_tracking_params", 0)
	}

	if isImage {
		if !looksLikeImagePath(u.Path) {
			r.addReason("image_extension_unverified", 0)
		}
	}

	return r.ok(u.String())
}

func looksLikeImagePath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp", ".avif"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
