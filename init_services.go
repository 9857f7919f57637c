// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// Sıralama kuralı: MessageService ve CallService, PresenceService'den ÖNCE
// oluşturulur; presence ilk bağlantıda delivered taraması, son kopuşta
// arama temizliği için ikisine ihtiyaç duyar.
package main

import (
	"log"
	"time"

	"github.com/akinalp/dmrelay/config"
	"github.com/akinalp/dmrelay/pkg/email"
	"github.com/akinalp/dmrelay/pkg/ratelimit"
	"github.com/akinalp/dmrelay/services"
	"github.com/akinalp/dmrelay/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth         services.AuthService
	Message      services.MessageService
	Presence     services.PresenceService
	Sidebar      services.SidebarService
	Relationship services.RelationshipService
	Call         services.CallService
	Upload       services.UploadService
	Moderation   services.ModerationService
	Status       services.StatusService
	Report       services.ReportService
	Notifier     *services.EmailNotifier
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	Message *ratelimit.MessageRateLimiter
	Typing  *ratelimit.WindowLimiter
	Connect *ratelimit.WindowLimiter
}

// Stop, limiter'ların temizlik goroutine'lerini durdurur.
func (l *RateLimiters) Stop() {
	l.Message.Stop()
	l.Typing.Stop()
	l.Connect.Stop()
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
func initServices(repos *Repositories, hub *ws.Hub, cfg *config.Config) (*Services, *RateLimiters, error) {
	limiters := &RateLimiters{
		Message: ratelimit.NewMessageRateLimiter(cfg.RateLimit.MessagesPerWindow, cfg.RateLimit.Window, cfg.RateLimit.Cooldown),
		Typing:  ratelimit.NewWindowLimiter(cfg.RateLimit.TypingPerWindow, cfg.RateLimit.Window),
		Connect: ratelimit.NewWindowLimiter(cfg.RateLimit.ConnectPerMinute, time.Minute),
	}

	// ─── Email (opsiyonel) ───
	var sender email.EmailSender
	if cfg.Email.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.AppURL)
		log.Printf("[main] email service enabled (from=%s)", cfg.Email.From)
	} else {
		sender = email.NoopSender{}
		log.Println("[main] email service disabled (RESEND_API_KEY not set)")
	}
	notifier := services.NewEmailNotifier(sender, cfg.Email.Throttle)

	uploadService, err := services.NewUploadService(cfg.Upload.Dir, cfg.Upload.PublicURL, cfg.Upload.MaxSize)
	if err != nil {
		limiters.Stop()
		notifier.Close()
		return nil, nil, err
	}

	// ─── Sıralama-kritik service'ler ───
	messageService := services.NewMessageService(
		repos.Message, repos.Unread, repos.User, repos.Relation,
		hub, limiters.Message, notifier,
	)
	callService := services.NewCallService(repos.Relation, repos.User, hub, cfg.LiveKit)
	presenceService := services.NewPresenceService(
		hub, hub, repos.Relation, messageService, callService, limiters.Typing,
	)

	return &Services{
		Auth:         services.NewAuthService(repos.User, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry),
		Message:      messageService,
		Presence:     presenceService,
		Sidebar:      services.NewSidebarService(repos.User, repos.Relation, repos.Unread, hub),
		Relationship: services.NewRelationshipService(repos.Relation, repos.User, hub),
		Call:         callService,
		Upload:       uploadService,
		Moderation:   services.NewModerationService(repos.User, hub, hub),
		Status:       services.NewStatusService(repos.User, hub),
		Report:       services.NewReportService(repos.Report, repos.User),
		Notifier:     notifier,
	}, limiters, nil
}
