package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservespace_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservespace_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	bookingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservespace_booking_duration_seconds",
		Help:    "Duration of reservation creation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	bookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservespace_booking_conflicts_total",
		Help: "Count of reservation attempts rejected because the slot was taken",
	})

	lockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservespace_booking_lock_contention_total",
		Help: "Count of booking attempts that found the per-space lock held",
	})

	sweepOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservespace_completion_sweeps_total",
		Help: "Count of completion sweep runs by result",
	}, []string{"result"})

	reservationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservespace_reservations_completed_total",
		Help: "Count of reservations promoted to COMPLETED by the sweeper",
	})

	activeReservations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reservespace_active_reservations",
		Help: "Number of CONFIRMED reservations whose end time is in the future",
	})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservespace_notifications_total",
		Help: "Count of notifications created by type",
	}, []string{"type"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBooking records the duration of a reservation creation attempt with
// a result label.
func ObserveBooking(result string, duration time.Duration) {
	bookingDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveConflict increments the double-booking rejection counter.
func ObserveConflict() {
	bookingConflicts.Inc()
}

// ObserveLockContention increments the lock contention counter.
func ObserveLockContention() {
	lockContention.Inc()
}

// ObserveSweep increments the sweep counter for the given result.
func ObserveSweep(result string) {
	sweepOperations.WithLabelValues(result).Inc()
}

// AddCompleted adds promoted reservation count from a sweep run.
func AddCompleted(n int64) {
	reservationsCompleted.Add(float64(n))
}

// SetActiveReservations sets the active reservation gauge.
func SetActiveReservations(count int) {
	if count < 0 {
		count = 0
	}
	activeReservations.Set(float64(count))
}

// ObserveNotification increments the notification counter for a type.
func ObserveNotification(kind string) {
	notificationsSent.WithLabelValues(kind).Inc()
}
