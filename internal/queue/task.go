// Package queue is the broker-agnostic task queue adapter the Orchestrator
// consumes from: one durable FIFO queue, enqueued by run creation and
// escalation/retry, dequeued by the Orchestrator's worker pool.
package queue

import "time"

// Task is the payload enqueued for one run attempt (§6 "task queue
// protocol").
type Task struct {
	TaskName   string    `json:"task_name"` // always "runs.execute"
	RunID      string    `json:"run_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRunTask builds the canonical "runs.execute" task for one attempt.
func NewRunTask(runID string, attempt int) Task {
	return Task{
		TaskName:   "runs.execute",
		RunID:      runID,
		Attempt:    attempt,
		EnqueuedAt: time.Now(),
	}
}
