package events

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
)

// Handler receives one published Event. Errors are logged, never
// propagated back to the publisher.
type Handler func(ctx context.Context, event Event)

// Broadcaster is a per-run-sequence-numbered pub/sub fan-out. Publish does
// not preserve delivery order: a subscriber can receive a run's events out
// of order, and Seq carries the per-run order. Subscribers see every event
// for every run; filtering by
// run_id or kind is the subscriber's responsibility, matching the "thin
// SSE adapter outside the core" framing of §9.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[int]Handler
	nextSubID   int
	seqByRun    map[string]uint64
	logger      arbor.ILogger
}

// NewBroadcaster builds an empty Broadcaster.
func NewBroadcaster(logger arbor.ILogger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[int]Handler),
		seqByRun:    make(map[string]uint64),
		logger:      logger,
	}
}

// Subscribe registers handler for every published event and returns an id
// for Unsubscribe.
func (b *Broadcaster) Subscribe(handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = handler
	return id
}

// Unsubscribe removes a previously registered handler.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// nextSeq assigns the next monotonic sequence number for a run.
func (b *Broadcaster) nextSeq(runID string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seqByRun[runID]++
	return b.seqByRun[runID]
}

// Publish assigns event's per-run sequence number and fans it out to every
// subscriber asynchronously (fire-and-forget, matching the teacher's
// Publish), one goroutine per subscriber per event.
func (b *Broadcaster) Publish(ctx context.Context, event Event) {
	event.Seq = b.nextSeq(event.RunID)

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if b.logger != nil {
		b.logger.Debug().Str("run_id", event.RunID).Str("kind", string(event.Kind)).Msg("publishing event")
	}

	for _, h := range handlers {
		go h(ctx, event)
	}
}

// PublishSync is Publish but blocks until every subscriber has been
// invoked, for callers (tests, synchronous SSE flush) that need the
// ordering guarantee made visible before returning.
func (b *Broadcaster) PublishSync(ctx context.Context, event Event) {
	event.Seq = b.nextSeq(event.RunID)

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(handler Handler) {
			defer wg.Done()
			handler(ctx, event)
		}(h)
	}
	wg.Wait()
}
