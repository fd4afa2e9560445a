package models

import "time"

// ApiKey tracks remaining provider credit for one scraping-API key.
type ApiKey struct {
	Provider      string    `json:"provider" badgerhold:"index"`
	KeyID         string    `json:"key_id" badgerhold:"key"`
	TotalCredits  int       `json:"total_credits"`
	UsedCredits   int       `json:"used_credits"`
	LastUsedAt    time.Time `json:"last_used_at,omitempty"`
	IsActive      bool      `json:"is_active"`
}

// Remaining returns the credits left on the key.
func (k *ApiKey) Remaining() int {
	r := k.TotalCredits - k.UsedCredits
	if r < 0 {
		return 0
	}
	return r
}

// SyncActive enforces invariant 4: is_active <=> remaining > 0.
func (k *ApiKey) SyncActive() {
	k.IsActive = k.Remaining() > 0
}

// InterventionType is the closed set of reasons a run pauses for a human.
type InterventionType string

const (
	InterventionAuthRequired    InterventionType = "auth_required"
	InterventionLedgerExhausted InterventionType = "ledger_exhausted"
	InterventionHardBlock       InterventionType = "hard_block"
)

// InterventionStatus tracks the lifecycle of an opt-out hook.
type InterventionStatus string

const (
	InterventionPending   InterventionStatus = "pending"
	InterventionResolved  InterventionStatus = "resolved"
	InterventionCancelled InterventionStatus = "cancelled"
)

// Intervention pauses a Run pending external action (usually supplying
// authenticated session material).
type Intervention struct {
	ID       string             `json:"id" badgerhold:"key"`
	RunID    string             `json:"run_id" badgerhold:"index"`
	Type     InterventionType   `json:"type"`
	Reason   string             `json:"reason"`
	Priority int                `json:"priority"`
	Status   InterventionStatus `json:"status" badgerhold:"index"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt time.Time        `json:"resolved_at,omitempty"`
}
