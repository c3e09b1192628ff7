package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	complaintsCreatedTotal *prometheus.CounterVec
	statusOverridesTotal   *prometheus.CounterVec
	exportsTotal           *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grievance",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grievance",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "grievance",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	complaintsCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grievance",
			Subsystem: "lifecycle",
			Name:      "complaints_created_total",
			Help:      "Total complaints registered by submission source.",
		},
		[]string{"service", "source"},
	)
	statusOverridesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grievance",
			Subsystem: "lifecycle",
			Name:      "status_overrides_total",
			Help:      "Total administrative status overrides by target status.",
		},
		[]string{"service", "status"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grievance",
			Subsystem: "lifecycle",
			Name:      "exports_total",
			Help:      "Total spreadsheet exports by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		complaintsCreatedTotal,
		statusOverridesTotal,
		exportsTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		complaintsCreatedTotal: complaintsCreatedTotal,
		statusOverridesTotal:   statusOverridesTotal,
		exportsTotal:           exportsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so sibling collectors (the
// enrichment pipeline) can share the /metrics endpoint.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses record identifiers so the path label stays
// low-cardinality.
func normalizePath(path string) string {
	switch {
	case path == "/v1/admin/complaints/export":
		return path
	case strings.HasPrefix(path, "/v1/admin/complaints/"):
		if strings.HasSuffix(path, "/status") {
			return "/v1/admin/complaints/{id}/status"
		}
		return "/v1/admin/complaints/{id}"
	case path == "/v1/complaints/chat" || path == "/v1/complaints/structured":
		return path
	case strings.HasPrefix(path, "/v1/complaints/"):
		switch {
		case strings.HasSuffix(path, "/withdraw"):
			return "/v1/complaints/{id}/withdraw"
		case strings.HasSuffix(path, "/resubmit"):
			return "/v1/complaints/{id}/resubmit"
		default:
			return "/v1/complaints/{id}"
		}
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordComplaintCreated(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.complaintsCreatedTotal.WithLabelValues(service, source).Inc()
}

func (m *HTTPServerMetrics) RecordStatusOverride(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.statusOverridesTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordExport(service string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.exportsTotal.WithLabelValues(service, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
