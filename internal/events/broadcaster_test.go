package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/scrapeengine/internal/engine/config"
)

func TestPublishSync_DeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(config.GetLogger())

	var mu sync.Mutex
	var got []Event
	b.Subscribe(func(ctx context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	b.Subscribe(func(ctx context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})

	b.PublishSync(context.Background(), RunStarted("run-1", "job-1", "https://example.com"))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 2)
}

func TestPublish_SeqIsMonotonicPerRun(t *testing.T) {
	b := NewBroadcaster(config.GetLogger())

	var mu sync.Mutex
	seqs := map[string][]uint64{}
	b.Subscribe(func(ctx context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		seqs[e.RunID] = append(seqs[e.RunID], e.Seq)
	})

	b.PublishSync(context.Background(), RunStarted("run-1", "job-1", "https://example.com"))
	b.PublishSync(context.Background(), RunProgress("run-1", 1, "http"))
	b.PublishSync(context.Background(), RunStarted("run-2", "job-2", "https://example.com"))
	b.PublishSync(context.Background(), RunProgress("run-1", 2, "browser"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2, 3}, seqs["run-1"])
	assert.Equal(t, []uint64{1}, seqs["run-2"])
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := NewBroadcaster(config.GetLogger())

	var mu sync.Mutex
	count := 0
	id := b.Subscribe(func(ctx context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})
	b.Unsubscribe(id)

	b.PublishSync(context.Background(), RunStarted("run-1", "job-1", "https://example.com"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)
}
