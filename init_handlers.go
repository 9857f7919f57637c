// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir: sadece HTTP parse + service call + response write.
package main

import (
	"database/sql"

	"github.com/akinalp/dmrelay/config"
	"github.com/akinalp/dmrelay/handlers"
	"github.com/akinalp/dmrelay/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Message      *handlers.MessageHandler
	Relationship *handlers.RelationshipHandler
	Upload       *handlers.UploadHandler
	Admin        *handlers.AdminHandler
	User         *handlers.UserHandler
	Health       *handlers.HealthHandler
	WS           *ws.Handler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{
		Message:      handlers.NewMessageHandler(svcs.Message, svcs.Sidebar),
		Relationship: handlers.NewRelationshipHandler(svcs.Relationship),
		Upload:       handlers.NewUploadHandler(svcs.Upload, cfg.Upload.MaxSize),
		Admin:        handlers.NewAdminHandler(svcs.Moderation, svcs.Report),
		User:         handlers.NewUserHandler(svcs.Status, svcs.Report),
		Health:       handlers.NewHealthHandler(db, hub),
		WS: ws.NewHandler(hub, svcs.Auth, svcs.Presence, limiters.Connect,
			cfg.Server.AllowedOrigins, cfg.WebSocket.SendBufferSize),
	}
}
