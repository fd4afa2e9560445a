package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// ErrNoTask is returned by Receive when the queue currently has no visible
// task.
var ErrNoTask = errors.New("no task in queue")

// queuedTask is the durable envelope around a Task: FIFO ordering via a
// timestamp-prefixed key, visibility timeout, and redelivery tracking.
type queuedTask struct {
	ID           string    `json:"id" badgerhold:"key"`
	Body         Task      `json:"body"`
	EnqueuedAt   time.Time `json:"enqueued_at" badgerhold:"index"`
	VisibleAt    time.Time `json:"visible_at" badgerhold:"index"`
	ReceiveCount int       `json:"receive_count"`
}

// Manager is a persistent, FIFO, visibility-timeout task queue backed by
// Badger. The Orchestrator is its sole consumer (§5 "Queue consume (C8)").
type Manager struct {
	store             *badgerhold.Store
	visibilityTimeout time.Duration
	maxReceive        int
}

// NewManager builds a Manager over an already-open badgerhold store.
func NewManager(store *badgerhold.Store, visibilityTimeout time.Duration, maxReceive int) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("queue: badgerhold store is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Second
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}
	return &Manager{store: store, visibilityTimeout: visibilityTimeout, maxReceive: maxReceive}, nil
}

// Enqueue adds a task, immediately visible.
func (m *Manager) Enqueue(ctx context.Context, task Task) error {
	now := time.Now()
	id := fmt.Sprintf("%019d:%s", now.UnixNano(), uuid.New().String())

	qt := queuedTask{
		ID:         id,
		Body:       task,
		EnqueuedAt: now,
		VisibleAt:  now,
	}
	if err := m.store.Insert(id, &qt); err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// Receive returns the next visible task in FIFO order, plus a delete
// function the caller invokes once the task has been fully processed. If
// the caller never calls deleteFn and the visibility timeout elapses, the
// task becomes visible again for redelivery (up to maxReceive attempts).
func (m *Manager) Receive(ctx context.Context) (*Task, func() error, error) {
	now := time.Now()

	var candidates []queuedTask
	err := m.store.Find(&candidates,
		badgerhold.Where("VisibleAt").Le(now).
			And("ReceiveCount").Lt(m.maxReceive).
			SortBy("ID").
			Limit(1))
	if err != nil {
		return nil, nil, fmt.Errorf("queue: receive: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil, ErrNoTask
	}

	found := candidates[0]
	found.ReceiveCount++
	found.VisibleAt = now.Add(m.visibilityTimeout)
	if err := m.store.Update(found.ID, &found); err != nil {
		return nil, nil, fmt.Errorf("queue: receive: update visibility: %w", err)
	}

	id := found.ID
	deleteFn := func() error {
		return m.store.Delete(id, &queuedTask{})
	}

	body := found.Body
	return &body, deleteFn, nil
}

// Extend pushes out a task's visibility timeout, for attempts that need
// more processing time than the default window.
func (m *Manager) Extend(ctx context.Context, taskID string, duration time.Duration) error {
	var qt queuedTask
	if err := m.store.Get(taskID, &qt); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("queue: task %s not found", taskID)
		}
		return fmt.Errorf("queue: extend: %w", err)
	}
	qt.VisibleAt = time.Now().Add(duration)
	if err := m.store.Update(taskID, &qt); err != nil {
		return fmt.Errorf("queue: extend: %w", err)
	}
	return nil
}
