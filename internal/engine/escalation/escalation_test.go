package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/scrapeengine/internal/engine/executor"
	"github.com/ternarybob/scrapeengine/internal/engine/models"
)

func testConfig() Config {
	return Config{MaxAttempts: 3, ProviderCreditsCapPerRun: 10}
}

func autoJob() *models.Job {
	return &models.Job{ID: "job-1", EngineMode: models.EngineModeAuto}
}

func pinnedJob(mode models.EngineMode) *models.Job {
	return &models.Job{ID: "job-1", EngineMode: mode}
}

func TestDecide_CleanOutcomeCommits(t *testing.T) {
	run := &models.Run{Attempt: 1}
	outcome := &executor.ExecutionOutcome{}
	d := Decide(testConfig(), autoJob(), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionCommit, d.Action)
}

func TestDecide_HTTPBlocked_EscalatesToBrowserInAutoMode(t *testing.T) {
	run := &models.Run{Attempt: 1}
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalBlocked}}
	d := Decide(testConfig(), autoJob(), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionEscalate, d.Action)
	assert.Equal(t, models.TierBrowser, d.NextTier)
}

func TestDecide_HTTPBlockedAndJSRequired_PrefersBrowserTieBreak(t *testing.T) {
	run := &models.Run{Attempt: 1}
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalBlocked, models.SignalJSRequired}}
	d := Decide(testConfig(), autoJob(), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionEscalate, d.Action)
	assert.Equal(t, models.TierBrowser, d.NextTier)
}

func TestDecide_HTTPBlocked_PinnedMode_TerminalFails(t *testing.T) {
	run := &models.Run{Attempt: 1}
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalBlocked}}
	d := Decide(testConfig(), pinnedJob(models.EngineModeHTTP), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionTerminalFail, d.Action)
}

func TestDecide_HTTPNetworkError_RetriesThenEscalates(t *testing.T) {
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalNetwork}}

	run := &models.Run{Attempt: 1}
	d := Decide(testConfig(), autoJob(), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionRetry, d.Action)

	run = &models.Run{Attempt: 1, EngineAttempts: []models.EngineAttempt{{Tier: models.TierHTTP}, {Tier: models.TierHTTP}}}
	d = Decide(testConfig(), autoJob(), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionEscalate, d.Action)
	assert.Equal(t, models.TierBrowser, d.NextTier)
}

func TestDecide_BrowserExtractionEmpty_RetriesOnceThenEscalatesAndMarksSession(t *testing.T) {
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalExtractionEmpty}}

	run := &models.Run{Attempt: 1, EngineAttempts: []models.EngineAttempt{{Tier: models.TierHTTP}, {Tier: models.TierBrowser}}}
	d := Decide(testConfig(), autoJob(), run, models.TierBrowser, outcome, true)
	assert.Equal(t, ActionEscalate, d.Action)
	assert.Equal(t, models.TierProvider, d.NextTier)
	assert.True(t, d.MarkSessionFailure)
}

func TestDecide_BrowserExtractionEmpty_FirstAttemptRetriesWithoutMarkingSession(t *testing.T) {
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalExtractionEmpty}}
	run := &models.Run{Attempt: 1, EngineAttempts: []models.EngineAttempt{{Tier: models.TierHTTP}}}
	d := Decide(testConfig(), autoJob(), run, models.TierBrowser, outcome, true)
	assert.Equal(t, ActionRetry, d.Action)
	assert.False(t, d.MarkSessionFailure)
}

func TestDecide_ProviderHardBlock_IsTerminal(t *testing.T) {
	run := &models.Run{Attempt: 1}
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalHardBlock}}
	d := Decide(testConfig(), autoJob(), run, models.TierProvider, outcome, false)
	assert.Equal(t, ActionTerminalFail, d.Action)
	assert.Equal(t, models.FailureCode(models.SignalHardBlock), d.FailureCode)
}

func TestDecide_ProviderNoKey_OpensIntervention(t *testing.T) {
	run := &models.Run{Attempt: 1}
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalNoProviderKey}}
	d := Decide(testConfig(), autoJob(), run, models.TierProvider, outcome, false)
	assert.Equal(t, ActionIntervention, d.Action)
	assert.Equal(t, models.InterventionLedgerExhausted, d.InterventionType)
}

func TestDecide_MaxAttemptsReached_TerminalFailsRegardlessOfSignal(t *testing.T) {
	run := &models.Run{Attempt: 3}
	outcome := &executor.ExecutionOutcome{Signals: []models.Signal{models.SignalNetwork}}
	d := Decide(testConfig(), autoJob(), run, models.TierHTTP, outcome, false)
	assert.Equal(t, ActionTerminalFail, d.Action)
}

func TestFirstTier_RespectsEngineMode(t *testing.T) {
	assert.Equal(t, models.TierHTTP, FirstTier(models.EngineModeAuto))
	assert.Equal(t, models.TierHTTP, FirstTier(models.EngineModeHTTP))
	assert.Equal(t, models.TierBrowser, FirstTier(models.EngineModeBrowser))
	assert.Equal(t, models.TierProvider, FirstTier(models.EngineModeProvider))
}
