package events

import (
	"sync"
	"time"
)

// Domain event types published by the bot handlers.
const (
	GoalCreated    = "goal.created"
	GoalCompleted  = "goal.completed"
	GoalCheckedIn  = "goal.checked_in"
	GoalDeleted    = "goal.deleted"
	HabitCreated   = "habit.created"
	HabitCompleted = "habit.completed"
	HabitCheckedIn = "habit.checked_in"
	HabitDeleted   = "habit.deleted"
	MoodLogged     = "mood.logged"
	PremiumStarted = "premium.started"
	BadgeAwarded   = "badge.awarded"
)

// Types lists every domain event type, for subscribers that want the full
// stream.
func Types() []string {
	return []string{
		GoalCreated, GoalCompleted, GoalCheckedIn, GoalDeleted,
		HabitCreated, HabitCompleted, HabitCheckedIn, HabitDeleted,
		MoodLogged, PremiumStarted, BadgeAwarded,
	}
}

// Event is a lightweight domain event.
type Event struct {
	OwnerID   int64
	Type      string
	Details   string
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for domain events.
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

// SubscribeAll registers a handler for every listed event type.
func (b *EventBus) SubscribeAll(eventTypes []string, handler EventHandler) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event Event) {
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
