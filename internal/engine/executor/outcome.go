// Package executor implements the three executor tiers: HTTP (C3), Browser
// (C4) and Provider (C5). Each returns a common ExecutionOutcome so the
// Escalation Engine (C7) can reason about them uniformly.
package executor

import (
	"time"

	"github.com/ternarybob/scrapeengine/internal/engine/extractor"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

// ExecutionOutcome is what every executor tier returns to the orchestrator:
// the extracted records, the block/hint signals observed, and any credit
// cost incurred (non-zero only for the provider tier).
type ExecutionOutcome struct {
	Records   []*models.Record
	Signals   []models.Signal
	Cost      float64
	FinalURL  string
	Elapsed   time.Duration
	Artifact  extractor.Artifact
}

// hasSignal reports whether an outcome already carries a given signal, used
// by executors to avoid duplicate signal tokens.
func (o *ExecutionOutcome) hasSignal(s models.Signal) bool {
	for _, existing := range o.Signals {
		if existing == s {
			return true
		}
	}
	return false
}

func (o *ExecutionOutcome) addSignal(s models.Signal) {
	if !o.hasSignal(s) {
		o.Signals = append(o.Signals, s)
	}
}
