package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeIsIdempotent(t *testing.T) {
	b := New()
	count := 0
	h := Func(func(Event) { count++ })

	b.Subscribe(EventArtifactsFetched, h)
	b.Subscribe(EventArtifactsFetched, h)
	assert.Equal(t, 1, b.SubscriberCount(EventArtifactsFetched))

	b.Publish(NewArtifactsFetched("srv", nil, false))
	assert.Equal(t, 1, count)
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []string

	b.Subscribe(EventReconnectProgress, Func(func(Event) { order = append(order, "first") }))
	b.Subscribe(EventReconnectProgress, Func(func(Event) { order = append(order, "second") }))
	b.Subscribe(EventReconnectProgress, Func(func(Event) { order = append(order, "third") }))

	b.Publish(NewReconnectProgress("srv", 1, time.Second))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	h := Func(func(Event) { count++ })

	b.Subscribe(EventArtifactsFetched, h)
	b.Unsubscribe(EventArtifactsFetched, h)
	b.Publish(NewArtifactsFetched("srv", nil, true))
	assert.Equal(t, 0, count)

	// Unknown pairs are a no-op.
	b.Unsubscribe(EventArtifactsFetched, h)
	b.Unsubscribe(EventReconnectProgress, Func(func(Event) {}))
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	b := New()
	delivered := false

	b.Subscribe(EventConnectionStatusChanged, Func(func(Event) { panic("boom") }))
	b.Subscribe(EventConnectionStatusChanged, Func(func(Event) { delivered = true }))

	require.NotPanics(t, func() {
		b.Publish(NewConnectionStatusChanged("srv", "CONNECTED", "ERROR", "lost"))
	})
	assert.True(t, delivered)
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Publish(NewConnectionStatusChanged("srv", "", "CONNECTING", ""))
	})
}

func TestEventCarriesTimestampAndServer(t *testing.T) {
	before := time.Now()
	e := NewArtifactsFetched("docs", []string{"a"}, true)
	assert.Equal(t, "docs", e.ServerName())
	assert.False(t, e.Timestamp().Before(before))
	assert.Equal(t, EventArtifactsFetched, e.Type())
}
