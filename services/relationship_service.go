package services

import (
	"context"
	"fmt"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// RelationshipService, kullanıcının bir peer'a uyguladığı sosyal kontrolleri
// (block, mute, pin, archive, star, hide) yönetir.
type RelationshipService interface {
	Set(ctx context.Context, userID, peerID string, req *models.SetRelationRequest) (models.RelationFlags, error)
	List(ctx context.Context, userID string) (map[string]models.RelationFlags, error)
}

type relationshipService struct {
	relationRepo repository.RelationRepository
	userRepo     repository.UserRepository
	hub          ws.EventPublisher
}

// NewRelationshipService, constructor.
func NewRelationshipService(
	relationRepo repository.RelationRepository,
	userRepo repository.UserRepository,
	hub ws.EventPublisher,
) RelationshipService {
	return &relationshipService{
		relationRepo: relationRepo,
		userRepo:     userRepo,
		hub:          hub,
	}
}

// Set, tek bir bayrağı açar/kapatır ve güncel bayrakları döner.
//
// Durum gerçekten değiştiyse:
//   - kullanıcının tüm tab'larına entityChanged {kind: "relationship"}
//   - block değiştiyse peer'a refreshUserList (peer'ın listesi yenilensin)
//
// Aynı değeri tekrar yazmak event üretmez.
func (s *relationshipService) Set(ctx context.Context, userID, peerID string, req *models.SetRelationRequest) (models.RelationFlags, error) {
	if err := req.Validate(); err != nil {
		return models.RelationFlags{}, err
	}
	if userID == peerID {
		return models.RelationFlags{}, fmt.Errorf("%w: cannot set a relation with yourself", pkg.ErrBadRequest)
	}
	if _, err := s.userRepo.GetByID(ctx, peerID); err != nil {
		return models.RelationFlags{}, err
	}

	changed, err := s.relationRepo.Set(ctx, userID, peerID, req.Kind, req.Enabled)
	if err != nil {
		return models.RelationFlags{}, err
	}

	flags, err := s.relationRepo.FlagsFor(ctx, userID, peerID)
	if err != nil {
		return models.RelationFlags{}, err
	}

	if changed {
		action := "cleared"
		if req.Enabled {
			action = "set"
		}
		s.hub.EmitTo(userID, ws.Event{
			Op: ws.OpEntityChanged,
			Data: ws.EntityChangedData{
				Kind:         "relationship",
				Action:       string(req.Kind) + ":" + action,
				UserID:       userID,
				TargetUserID: peerID,
			},
		})
		if req.Kind == models.RelationBlocked {
			s.hub.EmitTo(peerID, ws.Event{Op: ws.OpRefreshUserList})
		}
	}

	return flags, nil
}

func (s *relationshipService) List(ctx context.Context, userID string) (map[string]models.RelationFlags, error) {
	return s.relationRepo.ListForUser(ctx, userID)
}
