package executor

import (
	"context"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
)

// humanPause sleeps a uniformly random duration in [0.3s, 0.8s], the pacing
// window between actions specified in §4.4 step 5.
func humanPause(ctx context.Context) {
	d := 300*time.Millisecond + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

const hoverScript = `(() => {
  const x = Math.floor(Math.random()*window.innerWidth);
  const y = Math.floor(Math.random()*window.innerHeight);
  const el = document.elementFromPoint(x, y);
  if (el) el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true, clientX: x, clientY: y}));
})()`

// smallScroll performs one small scroll and an occasional mouse hover, the
// rest of the §4.4 step 5 human-like pacing contract. Both are synthesized
// in-page rather than through CDP input events, keeping pacing a pure
// page-side effect independent of the executor's mouse-click plumbing.
func smallScroll(ctx context.Context) {
	_ = chromedp.Run(ctx, chromedp.Evaluate(`window.scrollBy(0, 200 + Math.floor(Math.random()*200))`, nil))
	if rand.Float64() < 0.3 {
		_ = chromedp.Run(ctx, chromedp.Evaluate(hoverScript, nil))
	}
}
