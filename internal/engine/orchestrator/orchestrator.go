// Package orchestrator implements the C8 Run Orchestrator: the task queue
// consumer that drives one run from queued to a terminal state, calling the
// Escalation Engine (C7) after every executor attempt and acting on its
// Decision.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/engine/escalation"
	"github.com/ternarybob/scrapeengine/internal/engine/executor"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
	"github.com/ternarybob/scrapeengine/internal/engine/session"
	"github.com/ternarybob/scrapeengine/internal/events"
	"github.com/ternarybob/scrapeengine/internal/queue"
	"github.com/ternarybob/scrapeengine/internal/storage/badger"
)

// Executor is the contract every executor tier satisfies (§4.3/4.4/4.5).
type Executor interface {
	Execute(ctx context.Context, job *models.Job, fields map[string]models.FieldMap) (*executor.ExecutionOutcome, error)
}

// Config carries the orchestrator's timing knobs (§6).
type Config struct {
	Escalation   escalation.Config
	BackOffBase  time.Duration
	BackOffCap   time.Duration
	PollInterval time.Duration

	// ValidateJobURL rejects a job's target_url before it's ever queued,
	// e.g. the loopback-host guard outside environment=development. A nil
	// func skips the check (tests construct Orchestrators without it).
	ValidateJobURL func(targetURL string) error
}

// Orchestrator wires the task queue, storage, session manager, event
// broadcaster and the three executor tiers into one run-processing loop.
type Orchestrator struct {
	cfg         Config
	logger      arbor.ILogger
	queue       *queue.Manager
	storage     *badger.Manager
	sessions    *session.Manager
	broadcaster *events.Broadcaster
	executors   map[models.Tier]Executor
}

// New builds an Orchestrator. executors must have an entry for every tier
// the job/escalation table can select (HTTP, BROWSER, PROVIDER).
func New(cfg Config, logger arbor.ILogger, q *queue.Manager, storage *badger.Manager, sessions *session.Manager, broadcaster *events.Broadcaster, executors map[models.Tier]Executor) *Orchestrator {
	return &Orchestrator{
		cfg: cfg, logger: logger, queue: q, storage: storage,
		sessions: sessions, broadcaster: broadcaster, executors: executors,
	}
}

// Enqueue submits a fresh run for job for processing.
func (o *Orchestrator) Enqueue(ctx context.Context, job *models.Job) (*models.Run, error) {
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	if o.cfg.ValidateJobURL != nil {
		if err := o.cfg.ValidateJobURL(job.TargetURL); err != nil {
			return nil, fmt.Errorf("orchestrator: %w", err)
		}
	}
	if err := o.storage.Job().Save(ctx, job); err != nil {
		return nil, err
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Status:    models.RunStatusQueued,
		CreatedAt: time.Now(),
	}
	if err := o.storage.Run().Save(ctx, run); err != nil {
		return nil, err
	}
	if err := o.queue.Enqueue(ctx, queue.NewRunTask(run.ID, 0)); err != nil {
		return nil, err
	}
	return run, nil
}

// RunWorker polls the task queue until ctx is cancelled, processing one
// task to completion (or one retry/escalate step) at a time. Callers start
// EngineConfig.MaxConcurrency of these to bound parallelism (§5).
func (o *Orchestrator) RunWorker(ctx context.Context) {
	interval := o.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, done, err := o.queue.Receive(ctx)
		if err != nil {
			if err == queue.ErrNoTask {
				select {
				case <-ctx.Done():
					return
				case <-time.After(interval):
				}
				continue
			}
			o.logger.Error().Err(err).Msg("orchestrator: queue receive failed")
			continue
		}

		o.processTask(ctx, *task)
		if err := done(); err != nil {
			o.logger.Warn().Err(err).Str("run_id", task.RunID).Msg("orchestrator: failed to delete processed task")
		}
	}
}

// processTask drives one attempt of a run: load state, pick a tier,
// execute it, decide the next step, and persist + publish the result.
func (o *Orchestrator) processTask(ctx context.Context, task queue.Task) {
	run, err := o.storage.Run().Get(ctx, task.RunID)
	if err != nil {
		o.logger.Error().Err(err).Str("run_id", task.RunID).Msg("orchestrator: run not found")
		return
	}
	log := o.logger.WithContextWriter(run.ID)

	if run.CancelRequested {
		o.cancelRun(ctx, run, log)
		return
	}

	job, err := o.storage.Job().Get(ctx, run.JobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", run.JobID).Msg("orchestrator: job not found")
		return
	}
	fields, err := o.storage.FieldMap().ListForJob(ctx, job.ID)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: failed to load field maps")
		return
	}

	firstAttempt := run.Status == models.RunStatusQueued
	if !models.CanTransition(run.Status, models.RunStatusRunning) {
		log.Warn().Str("status", string(run.Status)).Msg("orchestrator: run not in a runnable state, dropping task")
		return
	}
	run.Status = models.RunStatusRunning
	run.Attempt++
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tier := run.ResolvedStrategy
	if tier == "" {
		tier = escalation.FirstTier(job.EngineMode)
		run.ResolvedStrategy = tier
	}

	if firstAttempt {
		o.broadcaster.Publish(ctx, events.RunStarted(run.ID, job.ID, job.TargetURL))
	}
	o.broadcaster.Publish(ctx, events.RunProgress(run.ID, run.Attempt, string(tier)))

	select {
	case <-ctx.Done():
		return
	default:
	}

	sessionTrusted := false
	if tier == models.TierBrowser {
		sessionTrusted = o.sessions.Get(executor.SessionKeyFor(job)) != nil
	}

	exec, ok := o.executors[tier]
	if !ok {
		o.terminalFail(ctx, run, models.SignalUnknown, fmt.Sprintf("no executor registered for tier %s", tier), log)
		return
	}

	attemptStart := time.Now()
	outcome, execErr := exec.Execute(ctx, job, fields)
	if outcome == nil {
		outcome = &executor.ExecutionOutcome{}
	}
	if execErr != nil && len(outcome.Signals) == 0 {
		outcome.Signals = []models.Signal{models.SignalNetwork}
	}

	attempt := models.EngineAttempt{
		Tier:      tier,
		StartedAt: attemptStart,
		EndedAt:   time.Now(),
		Signals:   outcome.Signals,
		Cost:      outcome.Cost,
	}

	decision := escalation.Decide(o.cfg.Escalation, job, run, tier, outcome, sessionTrusted)
	attempt.Outcome = string(decision.Action)
	run.AppendAttempt(attempt)
	run.Stats.TotalCost += outcome.Cost

	if decision.MarkSessionFailure && tier == models.TierBrowser {
		o.sessions.MarkFailure(executor.SessionKeyFor(job))
	}

	switch decision.Action {
	case escalation.ActionCommit:
		o.commit(ctx, run, job, outcome, tier, log)
	case escalation.ActionRetry:
		o.reschedule(ctx, run, task.Attempt+1, log)
	case escalation.ActionEscalate:
		run.ResolvedStrategy = decision.NextTier
		o.reschedule(ctx, run, task.Attempt+1, log)
	case escalation.ActionIntervention:
		o.openIntervention(ctx, run, decision, log)
	case escalation.ActionTerminalFail:
		o.terminalFail(ctx, run, decision.FailureCode, decision.Reason, log)
	default:
		o.terminalFail(ctx, run, models.SignalUnknown, "unrecognized escalation action", log)
	}
}

// commit persists every extracted record, transitions the run to
// completed, and emits run.completed (§4.7 step 3).
func (o *Orchestrator) commit(ctx context.Context, run *models.Run, job *models.Job, outcome *executor.ExecutionOutcome, tier models.Tier, log arbor.ILogger) {
	for _, rec := range outcome.Records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.RunID = run.ID
		if err := rec.Validate(job.Fields); err != nil {
			log.Error().Err(err).Msg("orchestrator: record failed validation, skipping")
			continue
		}
		if err := o.storage.Record().Save(ctx, rec); err != nil {
			log.Error().Err(err).Msg("orchestrator: failed to save record")
		}
	}

	run.Status = models.RunStatusCompleted
	run.EndedAt = time.Now()
	run.Stats.ItemsExtracted = len(outcome.Records)
	run.Stats.ExecutionTimeSeconds = run.EndedAt.Sub(run.StartedAt).Seconds()
	run.Stats.EngineUsed = tier

	if err := o.storage.Run().Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to save completed run")
	}
	o.broadcaster.Publish(ctx, events.RunCompleted(run.ID, string(run.Status), run.Stats.ItemsExtracted, run.Stats.ExecutionTimeSeconds, string(run.Stats.EngineUsed), run.Stats.TotalCost))
}

// reschedule persists run (still "running", attempt log updated) and
// re-enqueues it after an exponential backoff sleep (§7 "exponential
// back-off").
func (o *Orchestrator) reschedule(ctx context.Context, run *models.Run, nextAttempt int, log arbor.ILogger) {
	if err := o.storage.Run().Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to save run before reschedule")
		return
	}

	delay := o.backOff(run.Attempt)
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := o.queue.Enqueue(ctx, queue.NewRunTask(run.ID, nextAttempt)); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to re-enqueue run")
	}
}

// backOff computes base*3^(attempt-1) capped at BackOffCap (§7).
func (o *Orchestrator) backOff(attempt int) time.Duration {
	base := o.cfg.BackOffBase
	if base <= 0 {
		base = 10 * time.Second
	}
	backOffCap := o.cfg.BackOffCap
	if backOffCap <= 0 {
		backOffCap = 5 * time.Minute
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 3
		if d > backOffCap {
			return backOffCap
		}
	}
	if d > backOffCap {
		return backOffCap
	}
	return d
}

// openIntervention persists the pause point and stops work until an
// external resolve re-enqueues the task (§4.7 step 5).
func (o *Orchestrator) openIntervention(ctx context.Context, run *models.Run, decision escalation.Decision, log arbor.ILogger) {
	iv := &models.Intervention{
		ID:        uuid.NewString(),
		RunID:     run.ID,
		Type:      decision.InterventionType,
		Reason:    decision.Reason,
		Priority:  1,
		Status:    models.InterventionPending,
		CreatedAt: time.Now(),
	}
	if err := o.storage.Intervention().Save(ctx, iv); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to save intervention")
	}

	run.Status = models.RunStatusWaitingForHuman
	run.FailureCode = decision.FailureCode
	if err := o.storage.Run().Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to save waiting_for_human run")
	}
	o.broadcaster.Publish(ctx, events.InterventionCreated(iv.ID, run.ID, string(iv.Type), iv.Reason, iv.Priority))
}

// Resolve marks an intervention resolved and re-enqueues its run (§4.7
// step 5 "resumption is driven by an external resolve event").
func (o *Orchestrator) Resolve(ctx context.Context, interventionID string) error {
	iv, err := o.storage.Intervention().Get(ctx, interventionID)
	if err != nil {
		return err
	}
	iv.Status = models.InterventionResolved
	iv.ResolvedAt = time.Now()
	if err := o.storage.Intervention().Save(ctx, iv); err != nil {
		return err
	}

	run, err := o.storage.Run().Get(ctx, iv.RunID)
	if err != nil {
		return err
	}
	if !models.CanTransition(run.Status, models.RunStatusRunning) {
		return fmt.Errorf("orchestrator: run %s cannot resume from %s", run.ID, run.Status)
	}
	run.Status = models.RunStatusRunning
	if err := o.storage.Run().Save(ctx, run); err != nil {
		return err
	}

	o.broadcaster.Publish(ctx, events.InterventionResolved(iv.ID, run.ID))
	return o.queue.Enqueue(ctx, queue.NewRunTask(run.ID, run.Attempt+1))
}

// terminalFail transitions run to failed and emits run.failed.
func (o *Orchestrator) terminalFail(ctx context.Context, run *models.Run, code models.FailureCode, reason string, log arbor.ILogger) {
	run.Status = models.RunStatusFailed
	run.EndedAt = time.Now()
	run.FailureCode = code
	run.Stats.LastErrorMessage = reason

	if err := o.storage.Run().Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to save failed run")
	}
	o.broadcaster.Publish(ctx, events.RunFailed(run.ID, reason, string(code)))
}

// cancelRun honors a cooperative cancel request. Per §5, a cancel observed
// before a browser fetch starts means the session is NOT captured and
// mark_failure is NOT called — cancelRun only ever touches Run state.
func (o *Orchestrator) cancelRun(ctx context.Context, run *models.Run, log arbor.ILogger) {
	run.Status = models.RunStatusCancelled
	run.EndedAt = time.Now()
	if err := o.storage.Run().Save(ctx, run); err != nil {
		log.Error().Err(err).Msg("orchestrator: failed to save cancelled run")
	}
}

// Cancel requests cooperative cancellation of a running run.
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	run, err := o.storage.Run().Get(ctx, runID)
	if err != nil {
		return err
	}
	run.CancelRequested = true
	return o.storage.Run().Save(ctx, run)
}
