package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akinalp/dmrelay/pkg"
)

// Pinger, DB bağlantı kontrolü (*sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OnlineCounter, canlı kullanıcı listesi (*ws.Hub).
type OnlineCounter interface {
	OnlineUserIDs() []string
}

// HealthResponse, GET /api/health yanıtı.
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	OnlineUsers int    `json:"onlineUsers"`
}

// HealthHandler, public sağlık kontrolü. Auth gerekmez.
type HealthHandler struct {
	db     Pinger
	online OnlineCounter
}

// NewHealthHandler, constructor.
func NewHealthHandler(db Pinger, online OnlineCounter) *HealthHandler {
	return &HealthHandler{db: db, online: online}
}

// Check godoc
// GET /api/health
// DB erişilemezse 503 döner.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:      "ok",
		Database:    "ok",
		OnlineUsers: len(h.online.OnlineUserIDs()),
	}
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		pkg.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	pkg.JSON(w, http.StatusOK, resp)
}
