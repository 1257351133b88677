package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	goalEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soulfriend",
			Name:      "goal_events_total",
			Help:      "Count of goal lifecycle events by type.",
		},
		[]string{"event"},
	)

	habitEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soulfriend",
			Name:      "habit_events_total",
			Help:      "Count of habit lifecycle events by type.",
		},
		[]string{"event"},
	)

	moodLogged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "soulfriend",
			Name:      "mood_logged_total",
			Help:      "Count of mood check-ins.",
		},
	)

	premiumActivated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soulfriend",
			Name:      "premium_activated_total",
			Help:      "Count of premium activations by subscription type.",
		},
		[]string{"type"},
	)

	commandsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soulfriend",
			Name:      "commands_handled_total",
			Help:      "Count of handled bot commands.",
		},
		[]string{"command"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(goalEvents, habitEvents, moodLogged, premiumActivated, commandsHandled)
	})
}

func IncGoalEvent(event string) {
	goalEvents.WithLabelValues(event).Inc()
}

func IncHabitEvent(event string) {
	habitEvents.WithLabelValues(event).Inc()
}

func IncMoodLogged() {
	moodLogged.Inc()
}

func IncPremiumActivated(subType string) {
	premiumActivated.WithLabelValues(subType).Inc()
}

func IncCommandHandled(command string) {
	commandsHandled.WithLabelValues(command).Inc()
}
