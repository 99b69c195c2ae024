package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorFIFO(t *testing.T) {
	var mu sync.Mutex
	var seen []int

	p := NewProcessor("test", func(ctx context.Context, item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		return nil
	})

	for i := 1; i <= 50; i++ {
		p.Enqueue(i)
	}
	p.Start()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 50
	}, time.Second, time.Millisecond)
	p.Stop()

	want := make([]int, 50)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, seen, "processing order equals enqueue order")
}

func TestProcessorContinuesAfterHandlerError(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	p := NewProcessor("test", func(ctx context.Context, item string) error {
		if item == "bad" {
			return fmt.Errorf("handler failed")
		}
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		return nil
	})

	p.Start()
	p.Enqueue("a")
	p.Enqueue("bad")
	p.Enqueue("b")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, time.Millisecond)
	p.Stop()

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestProcessorStopWaitsForInFlightItem(t *testing.T) {
	started := make(chan struct{})
	finished := false

	p := NewProcessor("test", func(ctx context.Context, item int) error {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished = true
		return nil
	})

	p.Start()
	p.Enqueue(1)
	<-started
	p.Stop()

	assert.True(t, finished, "stop waits for the in-flight item")
	assert.False(t, p.IsRunning())
}

func TestProcessorNoItemsRunAfterStop(t *testing.T) {
	var count int
	var mu sync.Mutex

	p := NewProcessor("test", func(ctx context.Context, item int) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	p.Start()
	p.Enqueue(1)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, time.Millisecond)
	p.Stop()

	p.Enqueue(2)
	p.Enqueue(3)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, count)
	mu.Unlock()
	assert.Equal(t, 2, p.QueueSize(), "items enqueued after stop stay queued")
}

func TestQueryQueueMonotonicIDs(t *testing.T) {
	var mu sync.Mutex
	var ids []int64

	q := NewQueryQueue(func(ctx context.Context, item QueryItem) error {
		mu.Lock()
		ids = append(ids, item.ID)
		mu.Unlock()
		return nil
	})
	q.Start()
	defer q.Stop()

	first := q.Submit("one")
	second := q.Submit("two")
	require.Less(t, first, second)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ids) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int64{first, second}, ids)
	mu.Unlock()
}

type recordingSink struct {
	mu      sync.Mutex
	updates []StatusUpdate
}

func (s *recordingSink) Apply(u StatusUpdate) {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
}

func TestStatusQueueAppliesInOrder(t *testing.T) {
	sink := &recordingSink{}
	q := NewStatusQueue(sink)
	q.Start()
	defer q.Stop()

	q.Enqueue(StatusUpdate{Kind: StatusKindConnection, ServerName: "a", Message: "CONNECTED"})
	q.Enqueue(StatusUpdate{Kind: StatusKindArtifacts, ServerName: "a", Message: "refreshed"})
	q.Enqueue(StatusUpdate{Kind: StatusKindMessage, Message: "ready"})

	assert.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.updates) == 3
	}, time.Second, time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, StatusKindConnection, sink.updates[0].Kind)
	assert.Equal(t, StatusKindArtifacts, sink.updates[1].Kind)
	assert.Equal(t, StatusKindMessage, sink.updates[2].Kind)
}
