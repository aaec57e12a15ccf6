// Package metrics holds the Prometheus collectors for the user service and
// the handler that exposes them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AuthEvents. Business failures use their error name.
const (
	OutcomeSuccess           = "success"
	OutcomeDuplicateUsername = "duplicate_username"
	OutcomeUserNotFound      = "user_not_found"
	OutcomePasswordMismatch  = "password_mismatch"
	OutcomeError             = "error"
)

// Result labels for SessionValidations.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// HTTPRequests counts served requests by route and status.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "userservice_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	},
	[]string{"method", "route", "status"},
)

// HTTPDuration observes request latency by route.
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "userservice_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// AuthEvents counts credential operations by event and outcome.
var AuthEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "userservice_auth_events_total",
		Help: "Total number of register, login and password change attempts by outcome",
	},
	[]string{"event", "outcome"},
)

// SessionsIssued counts tokens minted at login.
var SessionsIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "userservice_sessions_issued_total",
		Help: "Total number of session tokens issued",
	},
)

// SessionValidations counts token lookups by result.
var SessionValidations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "userservice_session_validations_total",
		Help: "Total number of session validations by result",
	},
	[]string{"result"},
)

// NewRegistry creates a registry holding the service collectors plus the Go
// runtime and process collectors.
// Panics if registration fails (following prometheus convention).
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	Register(reg)
	return reg
}

// Register adds the service collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(AuthEvents)
	reg.MustRegister(SessionsIssued)
	reg.MustRegister(SessionValidations)
}

// Handler serves the exposition format for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RecordAuthEvent increments AuthEvents.
func RecordAuthEvent(event, outcome string) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

// RecordSessionValidation increments SessionValidations.
func RecordSessionValidation(result string) {
	SessionValidations.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
