package executor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
)

// knownConsentSelectors are sites' common cookie/consent dialog accept
// buttons (§4.4 step 4). Only these selectors are tried; there is no
// generic text-match fallback.
var knownConsentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button#accept-all",
	"[data-testid='accept-all-button']",
	".cc-btn.cc-allow",
	"button[aria-label='Accept all']",
}

// boundingRectScript returns "x,y,width,height" for the first element
// matching sel, or "" if none matches.
const boundingRectScript = `(() => {
  const el = document.querySelector(%q);
  if (!el) return "";
  const r = el.getBoundingClientRect();
  if (r.width === 0 || r.height === 0) return "";
  return r.x + "," + r.y + "," + r.width + "," + r.height;
})()`

// handleConsent runs at most one consent cycle per page: find a known
// accept control's bounding box, move the mouse to a randomized point
// inside it, click, then wait a fixed 500ms for the page to settle; it does
// not watch for a navigation or the element's removal (§4.4 step 4).
func handleConsent(ctx context.Context, timeout time.Duration) bool {
	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, sel := range knownConsentSelectors {
		if clickWithJitter(clickCtx, sel) {
			waitForSettle(ctx)
			return true
		}
	}
	return false
}

func clickWithJitter(ctx context.Context, sel string) bool {
	var rect string
	err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(boundingRectScript, sel), &rect))
	if err != nil || rect == "" {
		return false
	}

	var x, y, w, h float64
	if _, err := fmt.Sscanf(rect, "%f,%f,%f,%f", &x, &y, &w, &h); err != nil {
		return false
	}

	px, py := jitteredPoint(x, y, w, h)
	return chromedp.Run(ctx, chromedp.MouseClickXY(px, py)) == nil
}

// jitteredPoint picks a randomized point inside the element's content box so
// the click doesn't land on the exact same pixel every run.
func jitteredPoint(x, y, w, h float64) (float64, float64) {
	return x + w*(0.3+0.4*rand.Float64()), y + h*(0.3+0.4*rand.Float64())
}

func waitForSettle(ctx context.Context) {
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
	}
}
