package handlers

import (
	"net/http"
	"time"

	"github.com/JamesClarke7283/StatelessChat/internal/services"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status        string `json:"status"`
	Rooms         int    `json:"rooms"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// HealthHandler reports liveness together with the number of live rooms.
type HealthHandler struct {
	store   *services.RoomStore
	started time.Time
}

// NewHealthHandler creates a HealthHandler; uptime counts from this call.
func NewHealthHandler(store *services.RoomStore) *HealthHandler {
	return &HealthHandler{store: store, started: time.Now()}
}

// HealthCheck handles GET /health
// Room ids and contents are never exposed, only the count.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Rooms:         h.store.RoomCount(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}
