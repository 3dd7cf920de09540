// Package metrics holds the prometheus collectors of the RSVP service.
// Collectors are registered on an injected registerer so that tests can use
// a private registry; every method is safe on a nil *Collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wedding"

// Collectors groups the service metrics.
type Collectors struct {
	attendanceUpdates  *prometheus.CounterVec
	votesRecorded      *prometheus.CounterVec
	multiGroupWarnings prometheus.Counter
	photoUploads       *prometheus.CounterVec
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// New registers the collectors on registerer. A nil registerer yields
// unregistered collectors.
func New(registerer prometheus.Registerer) *Collectors {
	factory := promauto.With(registerer)
	return &Collectors{
		attendanceUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attendance_updates_total",
				Help:      "Guest attendance reconciliations by winning vocabulary",
			},
			[]string{"vocabulary"},
		),
		votesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vote_audits_total",
				Help:      "Vote ledger rows appended by scope type",
			},
			[]string{"scope_type"},
		),
		multiGroupWarnings: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "multi_group_warnings_total",
				Help:      "Requests flagged as voting for more than one guest group",
			},
		),
		photoUploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "photo_uploads_total",
				Help:      "Photo upload attempts by outcome",
			},
			[]string{"outcome"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
	}
}

// AttendanceUpdated counts one reconciled guest.
func (c *Collectors) AttendanceUpdated(vocabulary string) {
	if c == nil {
		return
	}
	c.attendanceUpdates.WithLabelValues(vocabulary).Inc()
}

// VoteRecorded counts one appended ledger row.
func (c *Collectors) VoteRecorded(scopeType string) {
	if c == nil {
		return
	}
	c.votesRecorded.WithLabelValues(scopeType).Inc()
}

// MultiGroupWarning counts one flagged request.
func (c *Collectors) MultiGroupWarning() {
	if c == nil {
		return
	}
	c.multiGroupWarnings.Inc()
}

// PhotoUpload counts one upload attempt; outcome is accepted, rejected or rate_limited.
func (c *Collectors) PhotoUpload(outcome string) {
	if c == nil {
		return
	}
	c.photoUploads.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one completed HTTP request.
func (c *Collectors) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
