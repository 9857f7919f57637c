package ws

import (
	"context"
	"log"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg/ratelimit"
)

// TokenValidator, WebSocket handler'ın JWT doğrulaması için kullandığı interface.
//
// services.AuthService'i doğrudan almak ws → services → ws import döngüsü
// yaratırdı; handler sadece ihtiyaç duyduğu iki metodu bilir.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	ResolveUser(ctx context.Context, claims *models.TokenClaims) (*models.User, error)
}

// ConnectionLifecycle, bağlantı açılış/kapanış geçişlerini yöneten taraf
// (services.PresenceService).
type ConnectionLifecycle interface {
	Connect(conn Conn)
	Disconnect(conn Conn)
}

// Handler, GET /ws isteklerini karşılar.
type Handler struct {
	hub        *Hub
	auth       TokenValidator
	lifecycle  ConnectionLifecycle
	limiter    *ratelimit.WindowLimiter
	upgrader   websocket.Upgrader
	bufferSize int
}

// NewHandler, yeni bir WebSocket handler oluşturur.
//
// allowedOrigins boşsa tüm origin'lere izin verilir (development).
// limiter nil olabilir; o durumda bağlantı denemeleri sınırlanmaz.
func NewHandler(hub *Hub, auth TokenValidator, lifecycle ConnectionLifecycle, limiter *ratelimit.WindowLimiter, allowedOrigins []string, bufferSize int) *Handler {
	return &Handler{
		hub:       hub,
		auth:      auth,
		lifecycle: lifecycle,
		limiter:   limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		bufferSize: bufferSize,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Tarayıcı dışı client'lar Origin göndermez.
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve presence'a kaydeder.
//
// Tarayıcı WS upgrade'inde header gönderemediği için token query'den gelir:
//
//	ws://server/ws?token=JWT_TOKEN
//
// Flow:
//  1. IP bazlı bağlantı denemesi limiti
//  2. Token doğrula, kullanıcıyı çöz (banlı kullanıcı reddedilir)
//  3. HTTP → WebSocket upgrade
//  4. Client oluştur, lifecycle.Connect
//  5. WritePump ayrı goroutine'de, ReadPump bu goroutine'de (bağlantı kapanana kadar bloklar)
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		ip := ratelimit.ExtractIP(r)
		if !h.limiter.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds(ip)))
			http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
			return
		}
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.ResolveUser(r.Context(), claims)
	if err != nil {
		log.Printf("[ws] failed to resolve user %s: %v", claims.UserID, err)
		http.Error(w, "user unavailable", http.StatusServiceUnavailable)
		return
	}
	if user.IsBanned {
		http.Error(w, "account banned", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", user.ID, err)
		return
	}

	client := NewClient(h.hub, conn, user.ID, h.bufferSize)
	h.lifecycle.Connect(client)

	go client.WritePump()
	client.ReadPump(h.lifecycle.Disconnect)
}
