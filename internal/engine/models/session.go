package models

import "time"

// SessionKey identifies a pooled browser session by (domain, proxy identity).
type SessionKey struct {
	Domain        string `json:"domain"`
	ProxyIdentity string `json:"proxy_identity"`
}

// String renders the key for logging and map storage.
func (k SessionKey) String() string {
	return k.Domain + "|" + k.ProxyIdentity
}

// NewSessionKey builds a SessionKey, defaulting proxyIdentity to "default".
func NewSessionKey(domain, proxyIdentity string) SessionKey {
	if proxyIdentity == "" {
		proxyIdentity = "default"
	}
	return SessionKey{Domain: domain, ProxyIdentity: proxyIdentity}
}

// Session is a reusable browser identity: captured cookies, storage state,
// and the trust bookkeeping used to decide whether it is still fit for reuse.
type Session struct {
	Key            SessionKey `json:"key"`
	Cookies        []byte     `json:"cookies"`       // JSON-serialized []*network.CookieParam
	StorageState   []byte     `json:"storage_state"` // opaque per-origin blob
	UserAgent      string     `json:"user_agent"`
	Viewport       string     `json:"viewport"`
	CreatedAt      time.Time  `json:"created_at"`
	LastSuccessAt  time.Time  `json:"last_success_at"`
	TotalUses      int        `json:"total_uses"`
	FailureStreak  int        `json:"failure_streak"`
}

// TrustThresholds per §4.6.
const (
	TrustHealthyMin  = 70.0
	TrustDegradedMin = 40.0
)

// TrustScore computes the session's reuse suitability per the §4.6 formula,
// evaluated at read time against "now".
func (s *Session) TrustScore(now time.Time) float64 {
	score := 100.0

	ageMinutes := now.Sub(s.CreatedAt).Minutes()
	if ageMinutes > 60 {
		score -= (ageMinutes - 60) * 0.5
	}

	score -= float64(s.FailureStreak) * 15

	if !s.LastSuccessAt.IsZero() && now.Sub(s.LastSuccessAt) <= 5*time.Minute {
		score += 20
	}

	if s.TotalUses > 50 {
		score -= float64(s.TotalUses-50) * 1
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// AgeMinutes returns the session's age in minutes relative to now.
func (s *Session) AgeMinutes(now time.Time) float64 {
	return now.Sub(s.CreatedAt).Minutes()
}
