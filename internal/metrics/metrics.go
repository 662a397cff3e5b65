package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hangarshare",
			Name:      "reservations_created_total",
			Help:      "Reservations created, by payment method.",
		},
		[]string{"method"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hangarshare",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the range was taken.",
		},
	)

	paymentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hangarshare",
			Name:      "payment_events_total",
			Help:      "Payment provider notifications, by provider and result.",
		},
		[]string{"provider", "result"},
	)

	sweepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hangarshare",
			Name:      "sweep_transitions_total",
			Help:      "Reservations moved by the housekeeping sweeps.",
		},
		[]string{"transition"},
	)

	integrityViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hangarshare",
			Name:      "integrity_violations_total",
			Help:      "Overlapping blocking reservations found by the conflict reporter.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationsCreated,
			bookingConflicts,
			paymentEvents,
			sweepTransitions,
			integrityViolations,
		)
	})
}

func IncReservationCreated(method string) {
	reservationsCreated.WithLabelValues(method).Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncPaymentEvent(provider, result string) {
	paymentEvents.WithLabelValues(provider, result).Inc()
}

func AddSweepTransitions(transition string, n int64) {
	sweepTransitions.WithLabelValues(transition).Add(float64(n))
}

func IncIntegrityViolations(n int) {
	integrityViolations.Add(float64(n))
}
