// Package metrics exposes Prometheus collectors for the scheduler. Domain
// counters are fed from the event stream; HTTP metrics are recorded by the
// API middleware.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/revision-scheduler/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "revision_scheduler"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	reviews           *prometheus.CounterVec
	undos             prometheus.Counter
	recalculations    prometheus.Counter
	recalcCards       prometheus.Counter
	recalcDuration    prometheus.Histogram
	retentionTarget   prometheus.Gauge
	topicColorChanges prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New(logger *slog.Logger) *Metrics {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logger:   logger.With(slog.String("component", "metrics")),

		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_total",
			Help:      "Reviews submitted, by rating.",
		}, []string{"rating"}),
		undos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_undos_total",
			Help:      "Reviews taken back.",
		}),
		recalculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Completed schedule recalculations.",
		}),
		recalcCards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculated_cards_total",
			Help:      "Cards whose schedule was rebuilt by a recalculation.",
		}),
		recalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Wall time of schedule recalculations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		retentionTarget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retention_target",
			Help:      "Retention target currently in effect.",
		}),
		topicColorChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_color_changes_total",
			Help:      "Topics created or recolored.",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route, and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reviews,
		m.undos,
		m.recalculations,
		m.recalcCards,
		m.recalcDuration,
		m.retentionTarget,
		m.topicColorChanges,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetRetentionTarget records the retention target in effect.
func (m *Metrics) SetRetentionTarget(v float64) {
	m.retentionTarget.Set(v)
}

// ObserveHTTPRequest records one served request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// HandleEvent implements events.EventHandler. A payload that cannot be
// decoded is logged and skipped; metrics never fail an operation.
func (m *Metrics) HandleEvent(_ context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeReviewSubmitted:
		var p events.ReviewSubmittedPayload
		if m.decode(event, &p) {
			m.reviews.WithLabelValues(strconv.Itoa(p.Rating)).Inc()
		}
	case events.TypeReviewUndone:
		m.undos.Inc()
	case events.TypeCardsRecalculated:
		var p events.CardsRecalculatedPayload
		if m.decode(event, &p) {
			m.recalculations.Inc()
			m.recalcCards.Add(float64(p.Updated))
			m.recalcDuration.Observe(p.DurationSeconds)
		}
	case events.TypeSettingsChanged:
		var p events.SettingsChangedPayload
		if m.decode(event, &p) {
			m.retentionTarget.Set(p.RetentionTarget)
		}
	case events.TypeTopicColorChanged:
		m.topicColorChanges.Inc()
	}
	return nil
}

func (m *Metrics) decode(event *events.Event, v interface{}) bool {
	if err := event.UnmarshalPayload(v); err != nil {
		m.logger.Warn("failed to decode event payload",
			slog.String("event_type", event.Type),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

var _ events.EventHandler = (*Metrics)(nil)
