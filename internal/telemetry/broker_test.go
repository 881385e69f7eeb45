package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (m *mockSubscriber) Send(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func TestBroker_FansOutToEverySubscriber(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, second := &mockSubscriber{}, &mockSubscriber{}
	logger := zerolog.Nop()
	b := Start(ctx, &logger, first, second)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 2 }, time.Second, 5*time.Millisecond)

	b.Track(ctx, "No-Change", map[string]string{"courtId": "SHFCC"})

	require.Eventually(t, func() bool {
		return len(first.Events()) == 1 && len(second.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	got := first.Events()[0]
	assert.Equal(t, "No-Change", got.Name)
	assert.Equal(t, "SHFCC", got.CourtID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestBroker_TrackCopiesAttributes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &mockSubscriber{}
	b := Start(ctx, nil, sub)

	attrs := map[string]string{"courtId": "LEEDCC", "changes": "not equal"}
	b.Track(ctx, "Change-Detected", attrs)
	attrs["changes"] = "mutated"

	cancel()
	<-b.Done()

	events := sub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "not equal", events[0].Attributes["changes"])
}

func TestBroker_ShutdownFlushesAndCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &mockSubscriber{}
	b := Start(ctx, nil, sub)

	for range 10 {
		b.Track(ctx, "No-Change", map[string]string{"courtId": "AAA"})
	}
	cancel()

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("broker did not shut down")
	}
	assert.Len(t, sub.Events(), 10)
	assert.True(t, sub.Closed())
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBroker_Unsubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := &mockSubscriber{}
	b := Start(ctx, nil, sub)
	b.Unsubscribe(sub)

	require.Eventually(t, sub.Closed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBroker_DropsWhenFull(t *testing.T) {
	b := NewBroker(nil)
	b.events = make(chan Event, 1)

	b.Publish(Event{Name: "first"})
	b.Publish(Event{Name: "second"})

	require.Len(t, b.events, 1)
	assert.Equal(t, "first", (<-b.events).Name)
}

func TestBroker_SubscriberErrorDoesNotStopDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	failing := &mockSubscriber{err: errors.New("gone")}
	healthy := &mockSubscriber{}
	b := Start(ctx, nil, failing, healthy)

	b.Track(ctx, "Change-Failure", map[string]string{"courtId": "SHFCC"})
	b.Track(ctx, "No-Change", map[string]string{"courtId": "LEEDCC"})
	cancel()
	<-b.Done()

	assert.Len(t, failing.Events(), 2)
	assert.Len(t, healthy.Events(), 2)
}
