// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: JWT token doğrulaması
//   - authAdmin: auth + platform admin yetkisi
package main

import (
	"net/http"

	"github.com/akinalp/dmrelay/handlers"
	"github.com/akinalp/dmrelay/middleware"
	"github.com/akinalp/dmrelay/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Go 1.22 router'ı literal segment'leri ({param}'dan daha spesifik olduğu için)
// önce eşler: "/api/messages/users" hiçbir zaman peerId="users" olmaz.
func initRoutes(mux *http.ServeMux, h *Handlers, authService services.AuthService) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService)
	platformAdminMw := middleware.NewPlatformAdminMiddleware()

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(platformAdminMw.Require(handler))
	}

	// Health, public
	mux.HandleFunc("GET /api/health", h.Health.Check)

	// ─── Users ───
	mux.Handle("GET /api/users/me", auth(handlers.Me))
	mux.Handle("PUT /api/users/me/status", auth(h.User.SetStatus))
	mux.Handle("POST /api/users/report/{userId}", auth(h.User.ReportUser))
	mux.Handle("POST /api/users/chat/report/{userId}", auth(h.User.ReportChat))

	// ─── Messages ───
	mux.Handle("GET /api/messages/users", auth(h.Message.Sidebar))
	mux.Handle("GET /api/messages/search", auth(h.Message.Search))
	mux.Handle("GET /api/messages/stats/{peerId}", auth(h.Message.Stats))
	mux.Handle("GET /api/messages/id/{id}", auth(h.Message.GetByID))
	mux.Handle("GET /api/messages/{peerId}", auth(h.Message.GetConversation))
	mux.Handle("POST /api/messages/send/{peerId}", auth(h.Message.Send))
	mux.Handle("POST /api/messages/seen/{peerId}", auth(h.Message.MarkSeen))
	mux.Handle("PUT /api/messages/mark/{id}", auth(h.Message.MarkOne))
	mux.Handle("PUT /api/messages/edit/{id}", auth(h.Message.Edit))
	mux.Handle("DELETE /api/messages/delete/{id}", auth(h.Message.Delete))
	mux.Handle("POST /api/messages/react/{id}", auth(h.Message.React))
	mux.Handle("DELETE /api/messages/react/{id}", auth(h.Message.Unreact))
	mux.Handle("POST /api/messages/reply/{id}", auth(h.Message.Reply))
	mux.Handle("POST /api/messages/forward/{id}", auth(h.Message.Forward))

	// ─── Relationships ───
	mux.Handle("GET /api/relationships", auth(h.Relationship.List))
	mux.Handle("PUT /api/relationships/{peerId}", auth(h.Relationship.Set))

	// ─── Uploads ───
	// GET public: URL'ler <img src> gibi header gönderemeyen yerlerde kullanılır.
	mux.Handle("POST /api/uploads", auth(h.Upload.Upload))
	mux.HandleFunc("GET /api/uploads/{name}", h.Upload.Serve)

	// ─── Admin ───
	mux.Handle("PUT /api/admin/users/{id}/moderation", authAdmin(h.Admin.SetModeration))
	mux.Handle("GET /api/admin/reports", authAdmin(h.Admin.ListReports))

	// WebSocket, tarayıcı upgrade'de header gönderemez, token query'den gelir.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
