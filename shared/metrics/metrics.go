// Package metrics exposes Prometheus collectors for HTTP traffic and booking conflicts.
// A nil *Metrics is valid and records nothing, which is what callers get when metrics are disabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"meetroom/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	labelMethod = "method"
	labelRoute  = "route"
	labelStatus = "status"
	labelKind   = "kind"
	labelApp    = "service"
)

type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	conflicts *prometheus.CounterVec
}

func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{labelApp: serviceName}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests.",
			ConstLabels: constLabels,
		}, []string{labelMethod, labelRoute, labelStatus}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{labelMethod, labelRoute}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_conflicts_total",
			Help:        "Booking requests rejected by conflict kind.",
			ConstLabels: constLabels,
		}, []string{labelKind}),
	}

	registry.MustRegister(
		m.requests,
		m.duration,
		m.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// NewFromConfig returns nil when metrics are disabled.
func NewFromConfig(cfg *config.Config) *Metrics {
	if !cfg.Metrics.Enable {
		return nil
	}

	log.Info().Str("path", cfg.Metrics.Path).Msg("Prometheus metrics enabled")

	return New(cfg.App.Name)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordConflicts(kinds []string) {
	if m == nil {
		return
	}

	for _, kind := range kinds {
		m.conflicts.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}
