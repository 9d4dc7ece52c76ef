package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the product mutation a webhook subscribes to.
type EventType string

const (
	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
	EventProductDeleted EventType = "product.deleted"
)

// Valid reports whether the event type is one of the known kinds.
func (e EventType) Valid() bool {
	switch e {
	case EventProductCreated, EventProductUpdated, EventProductDeleted:
		return true
	}
	return false
}

// Webhook is a registered subscriber endpoint for one event kind. The
// dispatcher only consults these records; management happens elsewhere.
type Webhook struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	EventType EventType `json:"event_type"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is one product mutation handed to the dispatcher.
type Event struct {
	Type       EventType
	Product    Product
	OccurredAt time.Time
}

// NewEvent stamps a mutation with the current time.
func NewEvent(kind EventType, product Product) Event {
	return Event{Type: kind, Product: product, OccurredAt: time.Now().UTC()}
}
