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

const metricsNamespace = "infobip_dispatch"

// Metrics stores Prometheus collectors used by the dispatch and webhook flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	dispatchResultsTotal  *prometheus.CounterVec
	dispatchFailuresTotal *prometheus.CounterVec
	vendorCallDuration    *prometheus.HistogramVec
	deliveryReportsTotal  *prometheus.CounterVec
	duplicateReportsTotal *prometheus.CounterVec
	workerInflight        *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dispatch_results_total",
				Help:      "Dispatch results by channel and dispatch status.",
			},
			[]string{"channel", "status"},
		),
		dispatchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "dispatch_failures_total",
				Help:      "Dispatch calls that returned an error, by channel and reason.",
			},
			[]string{"channel", "reason"},
		),
		vendorCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "vendor_call_duration_seconds",
				Help:      "Infobip API call duration in seconds by channel and HTTP status code.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel", "code"},
		),
		deliveryReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "delivery_reports_total",
				Help:      "Delivery reports adapted from webhooks by channel and dispatch status.",
			},
			[]string{"channel", "status"},
		),
		duplicateReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "delivery_reports_duplicate_total",
				Help:      "Delivery reports dropped as already processed.",
			},
			[]string{"channel"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "worker_inflight",
				Help:      "Current number of in-flight queued dispatches grouped by channel.",
			},
			[]string{"channel"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dispatchResultsTotal,
		m.dispatchFailuresTotal,
		m.vendorCallDuration,
		m.deliveryReportsTotal,
		m.duplicateReportsTotal,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records every request under its route pattern. Errors are
// handed to the app error handler here so the recorded status is the one the
// client sees; the middleware then reports the request as handled.
func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		path := routePath(c)
		if path == "/metrics" {
			return nil
		}

		m.recordHTTPRequest(c.Method(), path, responseStatus(c), time.Since(start))
		return nil
	}
}

func (m *Metrics) IncDispatchResult(channel string, status string) {
	if m == nil {
		return
	}
	m.dispatchResultsTotal.WithLabelValues(normalizeChannel(channel), normalizeLabel(status)).Inc()
}

func (m *Metrics) IncDispatchFailure(channel string, reason string) {
	if m == nil {
		return
	}
	m.dispatchFailuresTotal.WithLabelValues(normalizeChannel(channel), normalizeLabel(reason)).Inc()
}

// ObserveVendorCall records one vendor round trip. statusCode 0 means no response.
func (m *Metrics) ObserveVendorCall(channel string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.vendorCallDuration.WithLabelValues(normalizeChannel(channel), code).Observe(seconds)
}

func (m *Metrics) IncDeliveryReport(channel string, status string) {
	if m == nil {
		return
	}
	m.deliveryReportsTotal.WithLabelValues(normalizeChannel(channel), normalizeLabel(status)).Inc()
}

func (m *Metrics) IncDuplicateReport(channel string) {
	if m == nil {
		return
	}
	m.duplicateReportsTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncWorkerInFlight(channel string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) DecWorkerInFlight(channel string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeChannel(channel)).Dec()
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

func responseStatus(c *fiber.Ctx) int {
	if status := c.Response().StatusCode(); status != 0 {
		return status
	}
	return fiber.StatusOK
}

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
