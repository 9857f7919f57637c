package services

import (
	"context"
	"log"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// StatusService, kullanıcının elle seçtiği durumu (online/away/busy) ve
// custom status metnini yönetir.
//
// Değişiklik kalıcıdır ve herkese entityChanged{kind: "user", action: "status"}
// olarak yayınlanır. Online listesi bağlantıya göre ayrıca tutulur; away/busy
// bir kullanıcı bağlıysa online listesinde kalır.
type StatusService interface {
	SetStatus(ctx context.Context, userID string, req *models.SetStatusRequest) (*models.User, error)
}

type statusService struct {
	userRepo repository.UserRepository
	hub      ws.EventPublisher
}

// NewStatusService, constructor.
func NewStatusService(userRepo repository.UserRepository, hub ws.EventPublisher) StatusService {
	return &statusService{userRepo: userRepo, hub: hub}
}

func (s *statusService) SetStatus(ctx context.Context, userID string, req *models.SetStatusRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetStatus(ctx, userID, req.Status, req.CustomStatus); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.hub.Broadcast(ws.Event{
		Op: ws.OpEntityChanged,
		Data: ws.EntityChangedData{
			Kind:         "user",
			Action:       ws.ActionStatus,
			UserID:       userID,
			Status:       user.Status,
			CustomStatus: user.CustomStatus,
		},
	})
	log.Printf("[presence] user %s is now %s (manual)", userID, user.Status)

	return user, nil
}
