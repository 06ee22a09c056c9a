package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	outboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_outbound_messages_total",
			Help: "Outbound messages by channel, stage and result",
		},
		[]string{"channel", "stage", "status"},
	)

	followUpResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_scheduler_results_total",
			Help: "Follow-up scheduler outcomes by type and status",
		},
		[]string{"type", "status"},
	)

	inboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_inbound_events_total",
			Help: "Inbound webhook and click events by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		// route pattern keeps /message_history/{phone} to one series
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func RecordOutboundMessage(channel, stage, status string) {
	outboundMessages.WithLabelValues(channel, stage, status).Inc()
}

func RecordFollowUpResult(kind, status string) {
	followUpResults.WithLabelValues(kind, status).Inc()
}

func RecordInboundEvent(source, outcome string) {
	inboundEvents.WithLabelValues(source, outcome).Inc()
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
