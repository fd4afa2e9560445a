// Package escalation implements the C7 Escalation Engine: the state machine
// that decides, after every executor attempt, whether a run commits,
// retries the same tier, escalates to the next tier, opens an intervention,
// or terminal-fails.
package escalation

import (
	"github.com/ternarybob/scrapeengine/internal/engine/executor"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// Action is the decision the Orchestrator acts on after one attempt.
type Action string

const (
	ActionCommit       Action = "commit"
	ActionRetry        Action = "retry"
	ActionEscalate     Action = "escalate"
	ActionIntervention Action = "intervention"
	ActionTerminalFail Action = "terminal_fail"
)

// Config carries the hard-stop thresholds from §6's enumerated configuration.
type Config struct {
	MaxAttempts            int
	ProviderCreditsCapPerRun float64
}

// Decision is the Escalation Engine's output for one attempt.
type Decision struct {
	Action             Action
	NextTier           models.Tier
	FailureCode        models.FailureCode
	InterventionType   models.InterventionType
	MarkSessionFailure bool // tie-break: retire the reused BROWSER session before PROVIDER
	Reason             string
}

// FirstTier resolves the tier table's left column (§4.8).
func FirstTier(mode models.EngineMode) models.Tier {
	switch mode {
	case models.EngineModeHTTP:
		return models.TierHTTP
	case models.EngineModeBrowser:
		return models.TierBrowser
	case models.EngineModeProvider:
		return models.TierProvider
	default:
		return models.TierHTTP
	}
}

// escalationAllowed reports whether job.engine_mode permits moving past the
// tier it pins the run to.
func escalationAllowed(mode models.EngineMode) bool {
	return mode == models.EngineModeAuto
}

// attemptsAtTier counts prior EngineAttempts recorded for tier, used to
// decide "retry once then escalate" and "after a second BROWSER attempt".
func attemptsAtTier(run *models.Run, tier models.Tier) int {
	n := 0
	for _, a := range run.EngineAttempts {
		if a.Tier == tier {
			n++
		}
	}
	return n
}

// Decide applies §4.8's tier-selection, escalation-trigger, hard-stop and
// tie-break rules to one attempt's outcome.
func Decide(cfg Config, job *models.Job, run *models.Run, tier models.Tier, outcome *executor.ExecutionOutcome, sessionTrusted bool) Decision {
	if len(outcome.Signals) == 0 {
		return Decision{Action: ActionCommit}
	}

	if run.Attempt >= cfg.MaxAttempts {
		return Decision{Action: ActionTerminalFail, FailureCode: dominantFailureCode(outcome), Reason: "max_attempts exceeded"}
	}

	switch tier {
	case models.TierHTTP:
		return decideHTTP(cfg, job, run, outcome)
	case models.TierBrowser:
		return decideBrowser(cfg, job, run, outcome, sessionTrusted)
	case models.TierProvider:
		return decideProvider(cfg, job, run, outcome)
	default:
		return Decision{Action: ActionTerminalFail, FailureCode: models.SignalUnknown, Reason: "unrecognized tier"}
	}
}

func decideHTTP(cfg Config, job *models.Job, run *models.Run, outcome *executor.ExecutionOutcome) Decision {
	auto := escalationAllowed(job.EngineMode)

	switch {
	case hasAny(outcome, models.SignalNetwork):
		if attemptsAtTier(run, models.TierHTTP) < 2 {
			return Decision{Action: ActionRetry, NextTier: models.TierHTTP, Reason: "network error, back off and retry"}
		}
		return escalateOrFail(auto, models.TierBrowser, models.SignalNetwork, "network error exhausted retries")

	case hasAny(outcome, models.SignalBadResponse):
		if attemptsAtTier(run, models.TierHTTP) < 2 {
			return Decision{Action: ActionRetry, NextTier: models.TierHTTP, Reason: "bad response, retry same tier"}
		}
		return escalateOrFail(auto, models.TierBrowser, models.SignalBadResponse, "bad response exhausted retries")

	case hasAny(outcome, models.SignalBlocked, models.SignalJSRequired, models.SignalExtractionEmpty):
		// Tie-break: blocked + js_required both resolve to BROWSER, never PROVIDER.
		return escalateOrFail(auto, models.TierBrowser, dominantFailureCode(outcome), "http tier blocked or requires a rendered DOM")

	case hasAny(outcome, models.SignalTimeout):
		if attemptsAtTier(run, models.TierHTTP) < 1 {
			return Decision{Action: ActionRetry, NextTier: models.TierHTTP, Reason: "timeout, retry same tier once"}
		}
		return escalateOrFail(auto, models.TierBrowser, models.SignalTimeout, "timeout exhausted retries")

	default:
		if attemptsAtTier(run, models.TierHTTP) < 1 {
			return Decision{Action: ActionRetry, NextTier: models.TierHTTP, Reason: "unknown signal, retry once"}
		}
		return escalateOrFail(auto, models.TierBrowser, models.SignalUnknown, "unknown signal after retry")
	}
}

func decideBrowser(cfg Config, job *models.Job, run *models.Run, outcome *executor.ExecutionOutcome, sessionTrusted bool) Decision {
	auto := escalationAllowed(job.EngineMode)
	browserAttempts := attemptsAtTier(run, models.TierBrowser)

	switch {
	case hasAny(outcome, models.SignalHardBlock):
		return escalateOrFail(auto, models.TierProvider, models.SignalHardBlock, "browser hard block")

	case hasAny(outcome, models.SignalTimeout):
		if browserAttempts < 1 {
			return Decision{Action: ActionRetry, NextTier: models.TierBrowser, Reason: "navigation failed, retry once"}
		}
		return escalateOrFail(auto, models.TierProvider, models.SignalTimeout, "navigation failed twice")

	case hasAny(outcome, models.SignalExtractionEmpty):
		if browserAttempts < 1 {
			return Decision{Action: ActionRetry, NextTier: models.TierBrowser, Reason: "extraction empty, retry once before escalating"}
		}
		d := escalateOrFail(auto, models.TierProvider, models.SignalExtractionEmpty, "extraction empty after second browser attempt")
		if d.Action == ActionEscalate && sessionTrusted {
			d.MarkSessionFailure = true
		}
		return d

	case hasAny(outcome, models.SignalBlocked):
		return escalateOrFail(auto, models.TierProvider, models.SignalBlocked, "browser blocked")

	default:
		if browserAttempts < 1 {
			return Decision{Action: ActionRetry, NextTier: models.TierBrowser, Reason: "unknown signal, retry once"}
		}
		return escalateOrFail(auto, models.TierProvider, models.SignalUnknown, "unknown signal after retry")
	}
}

func decideProvider(cfg Config, job *models.Job, run *models.Run, outcome *executor.ExecutionOutcome) Decision {
	switch {
	case hasAny(outcome, models.SignalNoProviderKey):
		return Decision{Action: ActionIntervention, InterventionType: models.InterventionLedgerExhausted, FailureCode: models.SignalNoProviderKey, Reason: "no provider key with remaining credit"}

	case hasAny(outcome, models.SignalHardBlock):
		return Decision{Action: ActionTerminalFail, FailureCode: models.SignalHardBlock, Reason: "provider hard block is terminal"}

	case hasAny(outcome, models.SignalBlocked):
		return Decision{Action: ActionTerminalFail, FailureCode: models.SignalBlocked, Reason: "consecutive blocked across provider keys"}

	case hasAny(outcome, models.SignalBadResponse, models.SignalNetwork):
		if attemptsAtTier(run, models.TierProvider) < 2 {
			return Decision{Action: ActionRetry, NextTier: models.TierProvider, Reason: "provider transport error, retry same tier"}
		}
		return Decision{Action: ActionTerminalFail, FailureCode: dominantFailureCode(outcome), Reason: "provider transport error exhausted retries"}

	case hasAny(outcome, models.SignalExtractionEmpty):
		return Decision{Action: ActionIntervention, InterventionType: models.InterventionHardBlock, FailureCode: models.SignalExtractionEmpty, Reason: "extraction empty after provider tier"}

	default:
		return Decision{Action: ActionTerminalFail, FailureCode: models.SignalUnknown, Reason: "unrecognized provider signal"}
	}
}

// escalateOrFail escalates to nextTier when the job's engine_mode allows it;
// otherwise terminal-fails. The max_attempts stop is applied in Decide.
func escalateOrFail(auto bool, nextTier models.Tier, code models.FailureCode, reason string) Decision {
	if !auto {
		return Decision{Action: ActionTerminalFail, FailureCode: code, Reason: reason + " (engine_mode pins tier, no escalation allowed)"}
	}
	return Decision{Action: ActionEscalate, NextTier: nextTier, FailureCode: code, Reason: reason}
}

// hasAny reports whether outcome carries any of the given signals.
func hasAny(outcome *executor.ExecutionOutcome, signals ...models.Signal) bool {
	for _, want := range signals {
		for _, got := range outcome.Signals {
			if got == want {
				return true
			}
		}
	}
	return false
}

// dominantFailureCode picks one representative code from a possibly
// multi-signal outcome, for the "exactly one code per terminal attempt"
// invariant (§4.8).
func dominantFailureCode(outcome *executor.ExecutionOutcome) models.FailureCode {
	priority := []models.Signal{
		models.SignalHardBlock, models.SignalNoProviderKey, models.SignalBlocked,
		models.SignalExtractionEmpty, models.SignalJSRequired, models.SignalRateLimited,
		models.SignalTimeout, models.SignalBadResponse, models.SignalNetwork,
	}
	for _, p := range priority {
		if hasAny(outcome, p) {
			return p
		}
	}
	if len(outcome.Signals) > 0 {
		return outcome.Signals[0]
	}
	return models.SignalUnknown
}
