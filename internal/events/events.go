package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated        = "booking_created"
	EventBookingUpdated        = "booking_updated"
	EventBookingDeleted        = "booking_deleted"
	EventReservationCreated    = "reservation_created"
	EventReservationRemoved    = "reservation_removed"
	EventFacilityOutOfService  = "facility_out_of_service"
	EventFacilityReactivated   = "facility_reactivated"
	EventSweepCompleted        = "sweep_completed"
)

// BookingEventPayload describes the minimal booking snapshot for event
// consumers.
type BookingEventPayload struct {
	BookingID     int64     `json:"booking_id"`
	FacilityID    int64     `json:"facility_id"`
	FacilityName  string    `json:"facility_name"`
	MemberID      int64     `json:"member_id"`
	Category      string    `json:"category"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	PaymentStatus string    `json:"payment_status,omitempty"`
}

// ReservationEventPayload describes an admin blackout change.
type ReservationEventPayload struct {
	FacilityIDs []int64   `json:"facility_ids"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	AdminID     int64     `json:"admin_id,omitempty"`
}

// FacilityEventPayload identifies a facility whose service state changed.
type FacilityEventPayload struct {
	FacilityID int64 `json:"facility_id"`
}

// SweepEventPayload summarizes a reconciliation pass.
type SweepEventPayload struct {
	Deactivated int64 `json:"deactivated"`
	Reactivated int64 `json:"reactivated"`
	Locked      int64 `json:"locked"`
	Unlocked    int64 `json:"unlocked"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
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
