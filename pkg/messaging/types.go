package messaging

import (
	"time"
)

// Message is one telemetry or command notice routed by the broker.
type Message struct {
	From      string    // Publisher ID, e.g. a session or operator ID
	To        []string  // Subscriber IDs (empty means broadcast)
	Content   any       // Payload, usually a core.StepEvent
	Timestamp time.Time // When the message was published
}

// Broker routes messages from publishers to subscribers
type Broker interface {
	// Publish delivers a message to its recipients without blocking
	Publish(msg Message) error
	// Subscribe registers a subscriber channel
	Subscribe(id string, ch chan<- Message) error
	// Unsubscribe removes a subscription
	Unsubscribe(id string) error
}
