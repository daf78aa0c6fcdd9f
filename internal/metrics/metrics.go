package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "bookings_total",
			Help:      "Booking requests by outcome.",
		},
		[]string{"outcome"},
	)

	releases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "releases_total",
			Help:      "Table releases by trigger.",
		},
		[]string{"trigger"},
	)

	reclaims = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "timeout_reclaims_total",
			Help:      "Tables reclaimed because the customer never checked in.",
		},
	)

	drainMatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "drain_matches_total",
			Help:      "Waitlist entries matched to freed tables.",
		},
	)

	waitlistDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stolik",
			Name:      "waitlist_depth",
			Help:      "Current number of waiting parties.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookings, releases, reclaims, drainMatches, waitlistDepth, httpRequests)
	})
}

// IncBooking increments the booking counter for an outcome label.
func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

// IncRelease increments the release counter for a trigger label.
func IncRelease(trigger string) {
	releases.WithLabelValues(trigger).Inc()
}

// IncReclaim counts a timeout reclaim.
func IncReclaim() {
	reclaims.Inc()
}

// IncDrainMatch counts a waitlist entry matched to a freed table.
func IncDrainMatch() {
	drainMatches.Inc()
}

// SetWaitlistDepth records the current waitlist length.
func SetWaitlistDepth(n int) {
	waitlistDepth.Set(float64(n))
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
