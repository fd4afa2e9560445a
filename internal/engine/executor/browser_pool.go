package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// BrowserPoolConfig configures the headless browser pool.
type BrowserPoolConfig struct {
	MaxInstances int
	Headless     bool
	DisableGPU   bool
	NoSandbox    bool
	NavTimeout   time.Duration
}

// browserInstance pairs a browser context with its allocator, both needing
// their own cancel funcs on shutdown.
type browserInstance struct {
	browserCtx     context.Context
	browserCancel  context.CancelFunc
	allocatorCancel context.CancelFunc
}

// BrowserPool manages a round-robin pool of headless Chrome instances
// created up front by Init. Grounded on the teacher's ChromeDPPool. Acquire
// hands out the instances' shared browser contexts in turn; no context is
// created or rebuilt per job's BrowserProfile.
type BrowserPool struct {
	mu       sync.Mutex
	cfg      BrowserPoolConfig
	logger   arbor.ILogger
	instances []*browserInstance
	next     int
}

// NewBrowserPool builds an uninitialized pool; call Init before use.
func NewBrowserPool(cfg BrowserPoolConfig, logger arbor.ILogger) *BrowserPool {
	return &BrowserPool{cfg: cfg, logger: logger}
}

// Init creates cfg.MaxInstances headless Chrome instances up front.
func (p *BrowserPool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.MaxInstances <= 0 {
		return fmt.Errorf("browser pool: max_instances must be > 0")
	}

	for i := 0; i < p.cfg.MaxInstances; i++ {
		inst, err := p.createInstance()
		if err != nil {
			if len(p.instances) == 0 {
				return fmt.Errorf("browser pool: failed to create any instance: %w", err)
			}
			p.logger.Warn().Err(err).Int("index", i).Msg("failed to create browser instance")
			continue
		}
		p.instances = append(p.instances, inst)
	}
	return nil
}

func (p *BrowserPool) createInstance() (*browserInstance, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.cfg.Headless),
		chromedp.Flag("disable-gpu", p.cfg.DisableGPU),
		chromedp.Flag("no-sandbox", p.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		// Stability fixture: keep the navigator.webdriver flag absent (§4.4 step 2).
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	timeout := p.cfg.NavTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	testCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &browserInstance{browserCtx: browserCtx, browserCancel: browserCancel, allocatorCancel: allocCancel}, nil
}

// Acquire returns the next tab context via round-robin allocation.
func (p *BrowserPool) Acquire() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.instances) == 0 {
		return nil, fmt.Errorf("browser pool: no instances available")
	}
	inst := p.instances[p.next%len(p.instances)]
	p.next++
	return inst.browserCtx, nil
}

// Shutdown cancels every browser and allocator context in the pool.
func (p *BrowserPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inst := range p.instances {
		inst.browserCancel()
		inst.allocatorCancel()
	}
	p.instances = nil
}

// viewportDims parses a BrowserProfile.Viewport string "WIDTHxHEIGHT",
// falling back to a common desktop size.
func viewportDims(profile models.BrowserProfile) (int64, int64) {
	var w, h int64 = 1366, 768
	if profile.Viewport == "" {
		return w, h
	}
	var parsedW, parsedH int64
	n, err := fmt.Sscanf(profile.Viewport, "%dx%d", &parsedW, &parsedH)
	if err == nil && n == 2 && parsedW > 0 && parsedH > 0 {
		return parsedW, parsedH
	}
	return w, h
}
