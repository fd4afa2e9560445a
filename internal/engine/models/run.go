package models

import "time"

// RunStatus is the closed set of Run lifecycle states (§4.7/§4.8).
type RunStatus string

const (
	RunStatusQueued          RunStatus = "queued"
	RunStatusRunning         RunStatus = "running"
	RunStatusWaitingForHuman RunStatus = "waiting_for_human"
	RunStatusCompleted       RunStatus = "completed"
	RunStatusFailed          RunStatus = "failed"
	RunStatusCancelled       RunStatus = "cancelled"
)

// Tier is the executor class attempted for a run.
type Tier string

const (
	TierHTTP     Tier = "http"
	TierBrowser  Tier = "browser"
	TierProvider Tier = "provider"
)

// Signal is a machine-readable outcome token attached to an attempt.
type Signal string

const (
	SignalBlocked         Signal = "blocked"
	SignalRateLimited     Signal = "rate_limited"
	SignalTimeout         Signal = "timeout"
	SignalNetwork         Signal = "network"
	SignalBadResponse     Signal = "bad_response"
	SignalHardBlock       Signal = "hard_block"
	SignalExtractionEmpty Signal = "extraction_empty"
	SignalNoProviderKey   Signal = "no_provider_key"
	SignalUnknown         Signal = "unknown"
	SignalJSRequired      Signal = "js_required"
	SignalOK              Signal = "ok"
)

// FailureCode is the closed taxonomy of terminal failure reasons (§4.8/§7).
type FailureCode = Signal

// EngineAttempt is one append-only entry in a Run's attempt log.
type EngineAttempt struct {
	Tier      Tier      `json:"tier"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Outcome   string    `json:"outcome"` // "commit", "retry", "escalate", "intervention", "terminal_fail"
	Signals   []Signal  `json:"signals"`
	Cost      float64   `json:"cost"` // provider credits consumed, 0 for http/browser
}

// RunStats aggregates summary counters for a completed/failed run.
type RunStats struct {
	ItemsExtracted           int     `json:"items_extracted"`
	ExecutionTimeSeconds     float64 `json:"execution_time_s"`
	EngineUsed               Tier    `json:"engine_used"`
	TotalCost                float64 `json:"total_cost"`
	LastErrorMessage         string  `json:"last_error_message,omitempty"`
}

// Run is the append-only execution history plus mutable current state for
// one execution of a Job.
type Run struct {
	ID               string          `json:"id" badgerhold:"key"`
	JobID            string          `json:"job_id" badgerhold:"index"`
	Status           RunStatus       `json:"status" badgerhold:"index"`
	Attempt          int             `json:"attempt"`
	EngineAttempts   []EngineAttempt `json:"engine_attempts"`
	ResolvedStrategy Tier            `json:"resolved_strategy,omitempty"`
	Stats            RunStats        `json:"stats"`
	FailureCode      FailureCode     `json:"failure_code,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	StartedAt        time.Time       `json:"started_at,omitempty"`
	EndedAt          time.Time       `json:"ended_at,omitempty"`
	// CancelRequested is the cooperative cancel flag checked between steps.
	CancelRequested bool `json:"cancel_requested"`
}

// validRunTransitions enumerates the subset-of-graph status transitions
// allowed by §4.7/invariant 5 ("no direct queued -> completed").
var validRunTransitions = map[RunStatus]map[RunStatus]bool{
	RunStatusQueued: {
		RunStatusRunning:   true,
		RunStatusCancelled: true,
	},
	RunStatusRunning: {
		RunStatusRunning:         true, // repeats per attempt
		RunStatusCompleted:       true,
		RunStatusFailed:          true,
		RunStatusWaitingForHuman: true,
		RunStatusCancelled:       true,
	},
	RunStatusWaitingForHuman: {
		RunStatusRunning:   true, // resumed via external resolve
		RunStatusCancelled: true,
	},
}

// CanTransition reports whether moving from 'from' to 'to' is legal.
func CanTransition(from, to RunStatus) bool {
	if from == to && (from == RunStatusRunning) {
		return true
	}
	allowed, ok := validRunTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// AppendAttempt appends an EngineAttempt to the append-only log. It does not
// check the log's length, so it does not enforce invariant 1
// (|engine_attempts| <= 3).
func (r *Run) AppendAttempt(a EngineAttempt) {
	r.EngineAttempts = append(r.EngineAttempts, a)
}

// TierCount returns how many distinct tiers have been attempted so far.
func (r *Run) TierCount() int {
	seen := make(map[Tier]bool, 3)
	for _, a := range r.EngineAttempts {
		seen[a.Tier] = true
	}
	return len(seen)
}
