// Package metrics exposes prometheus collectors for the web server and the generation workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dreampixel"

// Generation outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalidPrompt = "invalid_prompt"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeMissingKey    = "missing_api_key"
	OutcomeConnection    = "connection_error"
	OutcomeTimeout       = "timeout"
	OutcomeProviderError = "provider_error"
	OutcomeEmptyResult   = "empty_result"
	OutcomeStorageError  = "storage_error"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generations      *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	registrations    prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Total number of image generation requests by outcome.",
			},
			[]string{"outcome", "authenticated"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "Duration of calls to the image generation provider.",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
			},
			[]string{"outcome"},
		),
		registrations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "account",
				Name:      "registrations_total",
				Help:      "Total number of successful registrations.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.generations,
		m.providerDuration,
		m.registrations,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// RecordGeneration counts a finished generation request.
func (m *Metrics) RecordGeneration(outcome string, authenticated bool) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome, strconv.FormatBool(authenticated)).Inc()
}

// ObserveProvider records the duration of a provider call.
func (m *Metrics) ObserveProvider(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRegistration counts a new account.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// Middleware records request counts and durations per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
