package models

import "time"

// Evidence records how one field's typed value was derived: the raw input,
// a confidence score, and machine-enumerated success/failure reasons.
type Evidence struct {
	Raw        string   `json:"raw"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// RecordMeta captures provenance for one extracted Record.
type RecordMeta struct {
	URL        string    `json:"url"`
	Engine     Tier      `json:"engine"`
	FetchedAt  time.Time `json:"fetched_at"`
	HTTPStatus int       `json:"http_status"`
}

// Record is one extracted item; a run produces one (single mode) or many
// (list mode).
type Record struct {
	ID       string              `json:"id" badgerhold:"key"`
	RunID    string              `json:"run_id" badgerhold:"index"`
	Data     map[string]any      `json:"data"`
	Evidence map[string]Evidence `json:"evidence"`
	Meta     RecordMeta          `json:"meta"`
}

// Validate enforces invariant 2: every key in Data is a declared job field,
// and keys(Evidence) == keys(Data).
func (r *Record) Validate(declaredFields []string) error {
	declared := make(map[string]bool, len(declaredFields))
	for _, f := range declaredFields {
		declared[f] = true
	}
	for k := range r.Data {
		if !declared[k] {
			return errNotDeclared(k)
		}
		if _, ok := r.Evidence[k]; !ok {
			return errMissingEvidence(k)
		}
	}
	for k := range r.Evidence {
		if _, ok := r.Data[k]; !ok {
			return errMissingEvidence(k)
		}
	}
	return nil
}

// DedupKey returns the default dedup key: equality over the full Data map,
// rendered deterministically. Callers with a configured per-job dedup key
// should use that instead.
func (r *Record) DedupKey() string {
	return dedupKeyForData(r.Data)
}

// RunEvent is one append-only log line published over the event broadcaster.
type RunEvent struct {
	RunID     string         `json:"run_id" badgerhold:"index"`
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"` // "info", "warn", "error"
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
}
