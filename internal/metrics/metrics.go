package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediconnect",
			Name:      "bookings_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	syncIntervals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediconnect",
			Name:      "calendar_sync_intervals_total",
			Help:      "Count of intervals seen during calendar sync by result.",
		},
		[]string{"result"},
	)

	remindersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediconnect",
			Name:      "reminders_fired_total",
			Help:      "Count of reminder deliveries by kind and status.",
		},
		[]string{"kind", "status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediconnect",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookings, syncIntervals, remindersFired, httpRequests)
	})
}

// Booking outcomes.
const (
	BookingBooked   = "booked"
	BookingConflict = "conflict"
	BookingDegraded = "degraded"
	BookingError    = "error"
)

func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

// Sync interval results.
const (
	SyncAdded   = "added"
	SyncDeduped = "deduped"
	SyncSkipped = "skipped"
)

func IncSyncInterval(result string) {
	syncIntervals.WithLabelValues(result).Inc()
}

func IncReminderFired(kind, status string) {
	remindersFired.WithLabelValues(kind, status).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
