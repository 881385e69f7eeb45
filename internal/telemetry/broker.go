package telemetry

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	courtsync "github.com/agentstation/courtsync/pkg/sync"
)

const defaultBuffer = 256

var _ courtsync.Tracker = (*Broker)(nil)

// Broker distributes events to its subscribers. Publishing never blocks the
// caller: when the buffer is full the event is dropped and a warning logged.
type Broker struct {
	subscribers []Subscriber
	events      chan Event
	register    chan Subscriber
	unregister  chan Subscriber
	done        chan struct{}
	inflight    sync.WaitGroup
	mu          sync.RWMutex
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewBroker creates a new event broker.
func NewBroker(logger *zerolog.Logger) *Broker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broker{
		subscribers: make([]Subscriber, 0),
		events:      make(chan Event, defaultBuffer),
		register:    make(chan Subscriber),
		unregister:  make(chan Subscriber),
		done:        make(chan struct{}),
		logger:      logger,
		now:         time.Now,
	}
}

// Run starts the event loop and blocks until ctx is cancelled. Events still
// buffered at that point are delivered before the subscribers are closed.
func (b *Broker) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.drain()
			b.inflight.Wait()
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.mu.Unlock()
			b.logger.Debug().Msg("Telemetry broker shut down")
			return

		case sub := <-b.register:
			b.mu.Lock()
			b.subscribers = append(b.subscribers, sub)
			n := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber registered")

		case sub := <-b.unregister:
			b.mu.Lock()
			for i, s := range b.subscribers {
				if s == sub {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					_ = s.Close()
					break
				}
			}
			n := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", n).Msg("Subscriber unregistered")

		case event := <-b.events:
			b.broadcast(event)
		}
	}
}

// Done is closed once Run has returned.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) drain() {
	for {
		select {
		case event := <-b.events:
			b.broadcast(event)
		default:
			return
		}
	}
}

func (b *Broker) broadcast(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			if err := sub.Send(event); err != nil {
				b.logger.Warn().
					Err(err).
					Str("event", event.Name).
					Msg("Failed to send event to subscriber")
			}
		}()
	}
}

// Publish queues an event for delivery.
func (b *Broker) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	select {
	case b.events <- event:
	default:
		b.logger.Warn().
			Str("event", event.Name).
			Str("court_id", event.CourtID).
			Msg("Event channel full, event dropped")
	}
}

// Track publishes a reconciliation event. The attributes are copied.
func (b *Broker) Track(_ context.Context, event string, attributes map[string]string) {
	b.Publish(Event{
		Name:       event,
		CourtID:    attributes["courtId"],
		Attributes: maps.Clone(attributes),
	})
}

// Subscribe registers a subscriber. Run must be running.
func (b *Broker) Subscribe(sub Subscriber) {
	b.register <- sub
}

// Unsubscribe removes and closes a subscriber. Run must be running.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.unregister <- sub
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Start runs a new broker in the background with the given subscribers
// registered. Cancel ctx and wait on Done to flush it.
func Start(ctx context.Context, logger *zerolog.Logger, subs ...Subscriber) *Broker {
	b := NewBroker(logger)
	go b.Run(ctx)
	for _, sub := range subs {
		b.Subscribe(sub)
	}
	return b
}
