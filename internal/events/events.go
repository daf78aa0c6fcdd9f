package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated     = "booking_created"
	EventCustomerWaitlisted = "customer_waitlisted"
	EventCustomerCheckedIn  = "customer_checked_in"
	EventTableReleased      = "table_released"
	EventTimeoutReclaimed   = "timeout_reclaimed"
	EventWaitlistMatched    = "waitlist_matched"
)

// AllocationEventPayload is the snapshot carried by every allocation
// event: enough to audit why a table changed state.
type AllocationEventPayload struct {
	Ref           string    `json:"ref,omitempty"`
	CustomerID    int64     `json:"customer_id"`
	TableID       int64     `json:"table_id,omitempty"`
	RequiredSeats int64     `json:"required_seats,omitempty"`
	Trigger       string    `json:"trigger,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
