// Package telemetry fans reconciliation events out to logs and metrics.
package telemetry

import "time"

// Event is a reconciliation event as delivered to subscribers.
type Event struct {
	Name       string            `json:"name"`
	CourtID    string            `json:"courtId,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Subscriber receives events from the Broker.
type Subscriber interface {
	// Send delivers an event. It may be called from several goroutines.
	Send(event Event) error
	// Close releases the subscriber.
	Close() error
}
