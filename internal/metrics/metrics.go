package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clubhouse",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted, by facility category.",
		},
		[]string{"category"},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clubhouse",
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected for scheduling conflicts.",
		},
		[]string{"category"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clubhouse",
			Name:      "reservations_created_total",
			Help:      "Admin reservations placed.",
		},
	)

	sweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clubhouse",
			Name:      "sweep_runs_total",
			Help:      "Reconciliation sweeps executed.",
		},
	)

	sweepCorrections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clubhouse",
			Name:      "sweep_corrections_total",
			Help:      "Availability flags corrected per sweep, by action.",
		},
		[]string{"action"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clubhouse",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			bookingConflicts,
			reservationsCreated,
			sweepRuns,
			sweepCorrections,
			httpRequests,
		)
	})
}

// IncBookingCreated counts an accepted booking.
func IncBookingCreated(category string) {
	bookingsCreated.WithLabelValues(category).Inc()
}

// IncBookingConflict counts a rejected booking.
func IncBookingConflict(category string) {
	bookingConflicts.WithLabelValues(category).Inc()
}

// AddReservations counts placed reservations.
func AddReservations(n int) {
	reservationsCreated.Add(float64(n))
}

// ObserveSweep records one reconciliation pass and its corrections.
func ObserveSweep(deactivated, reactivated, locked, unlocked int64) {
	sweepRuns.Inc()
	sweepCorrections.WithLabelValues("deactivate").Add(float64(deactivated))
	sweepCorrections.WithLabelValues("reactivate").Add(float64(reactivated))
	sweepCorrections.WithLabelValues("lock").Add(float64(locked))
	sweepCorrections.WithLabelValues("unlock").Add(float64(unlocked))
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
