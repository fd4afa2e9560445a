// -----------------------------------------------------------------------
// Last Modified: Thursday, 30th July 2026 12:00:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/banner"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
	"github.com/ternarybob/scrapeengine/internal/engine/escalation"
	"github.com/ternarybob/scrapeengine/internal/engine/executor"
	"github.com/ternarybob/scrapeengine/internal/engine/extractor"
	"github.com/ternarybob/scrapeengine/internal/engine/ledger"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
	"github.com/ternarybob/scrapeengine/internal/engine/orchestrator"
	"github.com/ternarybob/scrapeengine/internal/engine/session"
	"github.com/ternarybob/scrapeengine/internal/engine/typer"
	"github.com/ternarybob/scrapeengine/internal/events"
	"github.com/ternarybob/scrapeengine/internal/queue"
	"github.com/ternarybob/scrapeengine/internal/storage/badger"
)

// submission is the on-disk shape of a job accepted by -submit: a Job plus
// its FieldMap rows, since a Job only declares field *names* (§3).
type submission struct {
	Job       models.Job        `json:"job"`
	FieldMaps []models.FieldMap `json:"field_maps"`
}

func main() {
	configPath := flag.String("config", "scrapeengine.toml", "configuration file path")
	submitPath := flag.String("submit", "", "path to a job+field_maps JSON file to enqueue; exits afterwards unless -wait is set")
	wait := flag.Bool("wait", false, "with -submit, block until the submitted run reaches a terminal state")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	logger := config.SetupLogger(cfg)
	defer config.Stop()

	printBanner(cfg)

	storage, err := badger.NewManager(logger, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("engine: failed to open storage")
	}
	defer storage.Close()

	background := context.Background()

	keyLedger := ledger.New(logger)
	keys, err := storage.ApiKey().ListAll(background)
	if err != nil {
		logger.Fatal().Err(err).Msg("engine: failed to load api keys")
	}
	for _, k := range keys {
		keyLedger.Register(k)
	}

	sessions := session.New(logger)
	cleanupCron := cron.New()
	cleanupSpec := fmt.Sprintf("@every %ds", cfg.Session.CleanupIntervalSecs)
	if _, err := sessions.StartCleanupSchedule(cleanupCron, cleanupSpec); err != nil {
		logger.Warn().Err(err).Msg("engine: failed to schedule session cleanup")
	}
	cleanupCron.Start()
	defer cleanupCron.Stop()

	ex := extractor.New(logger, typer.DefaultContext())

	httpExec := executor.NewHTTPExecutor(executor.HTTPConfig{
		Timeout:   config.Duration(cfg.Engine.HTTPTimeout, 20*time.Second),
		UserAgent: cfg.Engine.UserAgent,
	}, logger, ex)

	browserPool := executor.NewBrowserPool(executor.BrowserPoolConfig{
		MaxInstances: cfg.Engine.MaxConcurrency,
		Headless:     true,
		DisableGPU:   true,
		NoSandbox:    true,
		NavTimeout:   config.Duration(cfg.Engine.BrowserNavTimeout, 30*time.Second),
	}, logger)
	if err := browserPool.Init(); err != nil {
		logger.Fatal().Err(err).Msg("engine: failed to initialize browser pool")
	}
	defer browserPool.Shutdown()

	browserExec := executor.NewBrowserExecutor(browserPool, sessions, ex, logger, config.Duration(cfg.Engine.BrowserNavTimeout, 30*time.Second))

	providerExec := executor.NewProviderExecutor(executor.ProviderConfig{
		Provider:      "scraperapi",
		APIKeyHeader:  "X-Api-Key",
		Timeout:       config.Duration(cfg.Engine.ProviderTimeout, 60*time.Second),
		MaxKeyRetries: 3,
	}, keyLedger, logger, ex)

	queueStore := storage.DB().Store()
	q, err := queue.NewManager(queueStore,
		config.Duration(cfg.Queue.VisibilityTimeout, 5*time.Minute),
		cfg.Queue.MaxReceive)
	if err != nil {
		logger.Fatal().Err(err).Msg("engine: failed to open task queue")
	}

	broadcaster := events.NewBroadcaster(logger)
	broadcaster.Subscribe(func(ctx context.Context, e events.Event) {
		logger.Info().Str("run_id", e.RunID).Str("kind", string(e.Kind)).Uint64("seq", e.Seq).Msg("engine: event")
	})

	stream := newEventStream(logger, broadcaster)
	startEventStreamServer(cfg.Engine.EventStreamAddr, stream, logger)

	orch := orchestrator.New(orchestrator.Config{
		Escalation: escalation.Config{
			MaxAttempts:              cfg.Engine.DefaultMaxAttempts,
			ProviderCreditsCapPerRun: float64(cfg.Engine.ProviderCreditsCap),
		},
		BackOffBase:    config.Duration(cfg.Engine.BackOffBase, 10*time.Second),
		BackOffCap:     config.Duration(cfg.Engine.BackOffCap, 5*time.Minute),
		PollInterval:   config.Duration(cfg.Queue.PollInterval, time.Second),
		ValidateJobURL: cfg.ValidateJobURL,
	}, logger, q, storage, sessions, broadcaster, map[models.Tier]orchestrator.Executor{
		models.TierHTTP:     httpExec,
		models.TierBrowser:  browserExec,
		models.TierProvider: providerExec,
	})

	ctx, cancel := context.WithCancel(background)
	defer cancel()

	for i := 0; i < cfg.Engine.MaxConcurrency; i++ {
		go orch.RunWorker(ctx)
	}
	logger.Info().Int("workers", cfg.Engine.MaxConcurrency).Msg("engine: run workers started")

	if *submitPath != "" {
		run, err := submitJob(ctx, orch, storage, broadcaster, *submitPath, *wait)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *submitPath).Msg("engine: submission failed")
		}
		logger.Info().Str("run_id", run.ID).Str("status", string(run.Status)).Msg("engine: submission complete")
		if !*wait {
			return
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("engine: shutdown signal received")
}

// submitJob loads a job+field_maps document, enqueues it, and — when wait
// is set — blocks on the run's own event stream until it reaches a
// terminal or waiting_for_human state. There is no HTTP/UI submission
// façade (out of scope per §1); this is the one local entry point.
func submitJob(ctx context.Context, orch *orchestrator.Orchestrator, storage *badger.Manager, broadcaster *events.Broadcaster, path string, wait bool) (*models.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read %s: %w", path, err)
	}
	var sub submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("engine: parse %s: %w", path, err)
	}

	for i := range sub.FieldMaps {
		sub.FieldMaps[i].JobID = sub.Job.ID
		if err := storage.FieldMap().Save(ctx, &sub.FieldMaps[i]); err != nil {
			return nil, fmt.Errorf("engine: save field map %s: %w", sub.FieldMaps[i].FieldName, err)
		}
	}

	run, err := orch.Enqueue(ctx, &sub.Job)
	if err != nil {
		return nil, fmt.Errorf("engine: enqueue: %w", err)
	}
	if !wait {
		return run, nil
	}

	done := make(chan struct{})
	id := broadcaster.Subscribe(func(ctx context.Context, e events.Event) {
		if e.RunID != run.ID {
			return
		}
		switch e.Kind {
		case events.KindRunCompleted, events.KindRunFailed, events.KindInterventionCreated:
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer broadcaster.Unsubscribe(id)

	select {
	case <-done:
	case <-ctx.Done():
		return run, ctx.Err()
	case <-time.After(10 * time.Minute):
		return run, fmt.Errorf("engine: timed out waiting for run %s", run.ID)
	}

	final, err := storage.Run().Get(ctx, run.ID)
	if err != nil {
		return run, err
	}
	return final, nil
}

func printBanner(cfg *config.Config) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("SCRAPEENGINE")
	b.PrintCenteredText("Scraping Control Plane Execution Engine")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Environment", cfg.Environment, 20)
	b.PrintKeyValue("Storage Path", cfg.Storage.Path, 20)
	b.PrintKeyValue("Max Concurrency", fmt.Sprintf("%d", cfg.Engine.MaxConcurrency), 20)
	b.PrintBottomLine()
	fmt.Printf("\n")
}
