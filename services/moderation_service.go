package services

import (
	"context"
	"fmt"
	"log"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// UserDisconnecter, kullanıcının tüm canlı bağlantılarını kapatan taraf (*ws.Hub).
type UserDisconnecter interface {
	DisconnectUser(userID string)
}

// ModerationRequest, PUT /api/admin/users/{id}/moderation body'si.
type ModerationRequest struct {
	Banned bool `json:"banned"`
	Muted  bool `json:"muted"`
}

// ModerationService, platform admin'inin ban/mute işlemleri.
//
// Ban: kullanıcı mesaj gönderemez ve tüm WS bağlantıları kapatılır
// (yeniden bağlanma 403 ile reddedilir). Mute: okuyabilir, gönderemez.
type ModerationService interface {
	SetModeration(ctx context.Context, adminID, userID string, req *ModerationRequest) (*models.User, error)
}

type moderationService struct {
	userRepo     repository.UserRepository
	hub          ws.EventPublisher
	disconnecter UserDisconnecter
}

// NewModerationService, constructor.
func NewModerationService(userRepo repository.UserRepository, hub ws.EventPublisher, disconnecter UserDisconnecter) ModerationService {
	return &moderationService{
		userRepo:     userRepo,
		hub:          hub,
		disconnecter: disconnecter,
	}
}

func (s *moderationService) SetModeration(ctx context.Context, adminID, userID string, req *ModerationRequest) (*models.User, error) {
	if adminID == userID {
		return nil, fmt.Errorf("%w: cannot moderate yourself", pkg.ErrBadRequest)
	}

	if err := s.userRepo.SetModeration(ctx, userID, req.Banned, req.Muted); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	log.Printf("[admin] %s set moderation on %s: banned=%t muted=%t", adminID, userID, req.Banned, req.Muted)

	s.hub.EmitTo(userID, ws.Event{
		Op: ws.OpEntityChanged,
		Data: ws.EntityChangedData{
			Kind:         "user",
			Action:       "moderated",
			UserID:       adminID,
			TargetUserID: userID,
		},
	})
	if req.Banned {
		s.disconnecter.DisconnectUser(userID)
	}
	s.hub.Broadcast(ws.Event{Op: ws.OpRefreshUserList})

	return user, nil
}
