package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoomsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_rooms_created_total",
		Help: "Total number of rooms created",
	})
	JoinAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_join_attempts_total",
		Help: "Room join attempts by outcome",
	}, []string{"result"})
	MessagesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_stored_total",
		Help: "Total number of encrypted messages appended",
	})
	DecryptFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_decrypt_failures_total",
		Help: "Messages that failed authenticated decryption",
	})
	TokenValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_token_validations_total",
		Help: "Room token validations by outcome",
	}, []string{"result"})
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Current number of active websocket connections",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(RoomsCreated, JoinAttempts, MessagesStored, DecryptFailures,
		TokenValidations, WsConnections, HttpRequestsTotal, HttpRequestDuration)
}

// Result maps a boolean outcome to a label value.
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "rejected"
}

// Middleware records request counts and latency by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{"method": r.Method, "path": path, "status": strconv.Itoa(status)}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}
