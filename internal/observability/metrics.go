package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and the drain pipeline.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDuration        *prometheus.HistogramVec
	intentsProcessedTotal      *prometheus.CounterVec
	messagesSentTotal          *prometheus.CounterVec
	messagesFailedTotal        *prometheus.CounterVec
	endpointsDeactivatedTotal  prometheus.Counter
	dispatchChunkDuration      *prometheus.HistogramVec
	dispatchInflight           *prometheus.GaugeVec
	drainDuration              prometheus.Histogram
	quietHoursSuppressionTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_pipeline",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "push_pipeline",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		intentsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_pipeline",
				Name:      "intents_processed_total",
				Help:      "Total number of drained intents grouped by terminal outcome.",
			},
			[]string{"outcome"},
		),
		messagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_pipeline",
				Name:      "messages_sent_total",
				Help:      "Total number of push messages accepted by the provider.",
			},
			[]string{"channel"},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_pipeline",
				Name:      "messages_failed_total",
				Help:      "Total number of push messages that failed delivery by channel and reason.",
			},
			[]string{"channel", "reason"},
		),
		endpointsDeactivatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "push_pipeline",
				Name:      "endpoints_deactivated_total",
				Help:      "Total number of delivery endpoints deactivated after permanent provider errors.",
			},
		),
		dispatchChunkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "push_pipeline",
				Name:      "dispatch_chunk_duration_seconds",
				Help:      "Provider chunk call duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		dispatchInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "push_pipeline",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight provider chunk calls grouped by channel.",
			},
			[]string{"channel"},
		),
		drainDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "push_pipeline",
				Name:      "drain_duration_seconds",
				Help:      "Queue drain invocation duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		quietHoursSuppressionTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "push_pipeline",
				Name:      "quiet_hours_suppressed_total",
				Help:      "Total number of endpoints excluded by quiet-hours suppression.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.intentsProcessedTotal,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.endpointsDeactivatedTotal,
		m.dispatchChunkDuration,
		m.dispatchInflight,
		m.drainDuration,
		m.quietHoursSuppressionTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncIntentProcessed(outcome string) {
	if m == nil {
		return
	}
	label := strings.TrimSpace(strings.ToLower(outcome))
	if label == "" {
		label = "unknown"
	}
	m.intentsProcessedTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) AddMessagesSent(channel string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.messagesSentTotal.WithLabelValues(normalizeChannel(channel)).Add(float64(count))
}

func (m *Metrics) AddMessagesFailed(channel string, reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.messagesFailedTotal.WithLabelValues(normalizeChannel(channel), reasonLabel).Add(float64(count))
}

func (m *Metrics) AddEndpointsDeactivated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.endpointsDeactivatedTotal.Add(float64(count))
}

func (m *Metrics) ObserveDispatchChunkDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.dispatchChunkDuration.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) IncDispatchInflight(channel string) {
	if m == nil {
		return
	}
	m.dispatchInflight.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) DecDispatchInflight(channel string) {
	if m == nil {
		return
	}
	m.dispatchInflight.WithLabelValues(normalizeChannel(channel)).Dec()
}

func (m *Metrics) ObserveDrainDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.drainDuration.Observe(seconds)
}

func (m *Metrics) IncQuietHoursSuppressed() {
	if m == nil {
		return
	}
	m.quietHoursSuppressionTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
