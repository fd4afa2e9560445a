package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// injectCookies restores a previously-captured session's cookies into the
// tab before navigation, per §4.4 step 1. cookies is a JSON-encoded
// []*network.CookieParam, the same shape captureCookies produces.
func injectCookies(ctx context.Context, cookies []byte) error {
	if len(cookies) == 0 {
		return nil
	}
	var params []*network.CookieParam
	if err := json.Unmarshal(cookies, &params); err != nil {
		return fmt.Errorf("browser: decode session cookies: %w", err)
	}

	return chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range params {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					WithExpires(c.Expires).
					Do(ctx)
				if err != nil {
					return fmt.Errorf("set cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
}

// captureCookies serializes the tab's current cookies for targetURL into the
// Session.Cookies blob, so a future run can restore this identity.
func captureCookies(ctx context.Context, targetURL string) ([]byte, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		got, err := network.GetCookies().WithURLs([]string{targetURL}).Do(ctx)
		if err != nil {
			return err
		}
		cookies = got
		return nil
	}))
	if err != nil {
		return nil, err
	}

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &network.CookieParam{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Secure: c.Secure, HTTPOnly: c.HTTPOnly, SameSite: c.SameSite,
		})
	}
	return json.Marshal(params)
}

// stabilityFixtures installs the pre-navigation spoofs described in §4.4
// step 2: plausible plugins/hardwareConcurrency/deviceMemory/connection,
// with navigator.webdriver left undefined (handled at launch via the
// disable-blink-features flag in browser_pool.go).
const stabilityFixtureScript = `
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
Object.defineProperty(navigator, 'connection', { get: () => ({ effectiveType: '4g', rtt: 50, downlink: 10 }) });
`

func installStabilityFixtures(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Evaluate(stabilityFixtureScript, nil))
}

// hardBlockMarkers are exact, case-insensitive body substrings indicating
// the page challenged the browser instead of serving content (§4.4).
var hardBlockMarkers = []string{
	"checking your browser", "access denied", "verify you are human", "cloudflare", "captcha",
}

func detectHardBlock(body string) bool {
	return bodyContainsAny(body, hardBlockMarkers)
}

// domain extracts the host (including any port) from a URL string for
// session keying; subdomains are kept as they are.
func domain(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if i := strings.IndexAny(rawURL, "/?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return rawURL
}

// SessionKeyFor returns the session key a BrowserExecutor run for job would
// use, exported so the orchestrator can act on Escalation Engine tie-breaks
// (e.g. MarkSessionFailure) against the same key.
func SessionKeyFor(job *models.Job) models.SessionKey {
	return models.NewSessionKey(domain(job.TargetURL), job.EffectiveProxyIdentity())
}
