package handlers

import (
	"net/http"
	"time"

	"github.com/JamesClarke7283/StatelessChat/internal/metrics"
	"github.com/JamesClarke7283/StatelessChat/internal/ratelimit"
	"github.com/JamesClarke7283/StatelessChat/internal/services"
	"github.com/JamesClarke7283/StatelessChat/internal/token"
	"github.com/JamesClarke7283/StatelessChat/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// RouterDeps groups everything the HTTP surface needs.
type RouterDeps struct {
	Store        *services.RoomStore
	Tokens       *token.Service
	Hub          *websocket.Hub
	Limiter      *ratelimit.Limiter
	CorsOrigins  []string
	CookieMaxAge int

	// TrustProxy applies X-Forwarded-For / X-Real-IP to RemoteAddr. Only set
	// it behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter builds the chi router with the middleware stack and all routes.
func NewRouter(d RouterDeps) http.Handler {
	roomHandler := NewRoomHandler(d.Store, d.Tokens, d.CookieMaxAge)
	messageHandler := NewMessageHandler(d.Store, d.Tokens)
	wsHandler := websocket.NewHandler(d.Hub, d.Tokens, TokenFromRequest, d.CorsOrigins)

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", NewHealthHandler(d.Store).HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/username", roomHandler.SetUsername)
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", roomHandler.CreateRoom)
			r.Get("/{id}", roomHandler.GetRoom)
			r.Group(func(r chi.Router) {
				if d.Limiter != nil {
					r.Use(d.Limiter.Middleware)
				}
				r.Post("/{id}/join", roomHandler.JoinRoom)
				r.Post("/{id}/token", roomHandler.IssueToken)
			})
			r.Get("/{id}/messages", messageHandler.GetMessages)
			r.Post("/{id}/messages", messageHandler.SendMessage)
		})
	})

	r.Get("/ws/rooms/{id}", wsHandler.ServeWS)

	return r
}

// requestLogger logs one zerolog line per request, like chi's middleware.Logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
