// Package observability registers the Prometheus metrics exposed on
// /metrics and the HTTP middleware feeding them.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of inbound websocket events by type.",
		},
		[]string{"event"},
	)
	storePersistsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_store_persists_total",
			Help: "Total number of document persist cycles.",
		},
	)
	webPushSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_webpush_sent_total",
			Help: "Total number of web push notifications by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		storePersistsTotal,
		webPushSentTotal,
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMetrics records request counts and latencies. WebSocket upgrades are
// passed through untouched so the ResponseWriter keeps http.Hijacker.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func IncWSActive()              { wsActiveConnections.Inc() }
func DecWSActive()              { wsActiveConnections.Dec() }
func IncWSEvent(event string)   { wsEventsTotal.WithLabelValues(event).Inc() }
func IncStorePersist()          { storePersistsTotal.Inc() }
func IncWebPush(outcome string) { webPushSentTotal.WithLabelValues(outcome).Inc() }
