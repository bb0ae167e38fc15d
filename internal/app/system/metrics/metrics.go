// Package metrics exposes Prometheus counters for StudyHub.
//
// All recording methods are safe on a nil *Metrics, so components built
// without metrics (tests, tools) can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Expiry triggers.
const (
	TriggerLazy  = "lazy"
	TriggerSweep = "sweep"
)

// Metrics holds the application collectors and their registry.
type Metrics struct {
	reg *prometheus.Registry

	eventsExpired            *prometheus.CounterVec
	attachmentDeleteFailures prometheus.Counter
	httpRequests             *prometheus.CounterVec
	httpDuration             *prometheus.HistogramVec
}

// New creates a registry with process and Go runtime collectors plus the
// application metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		eventsExpired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_events_expired_total",
			Help: "Events removed because their end time passed.",
		}, []string{"trigger"}),
		attachmentDeleteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "studyhub_attachment_delete_failures_total",
			Help: "Attachment files that could not be removed from storage.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "studyhub_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// EventsExpired records n expired events removed by trigger.
func (m *Metrics) EventsExpired(trigger string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsExpired.WithLabelValues(trigger).Add(float64(n))
}

// AttachmentDeleteFailed records one attachment that could not be removed.
func (m *Metrics) AttachmentDeleteFailed() {
	if m == nil {
		return
	}
	m.attachmentDeleteFailures.Inc()
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
