package services

import (
	"context"
	"slices"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// SidebarService, kenar çubuğu listesini üretir.
type SidebarService interface {
	Sidebar(ctx context.Context, viewerID string) (*models.Sidebar, error)
}

type sidebarService struct {
	userRepo     repository.UserRepository
	relationRepo repository.RelationRepository
	unreadRepo   repository.UnreadRepository
	hub          ws.EventPublisher
}

// NewSidebarService, constructor.
func NewSidebarService(
	userRepo repository.UserRepository,
	relationRepo repository.RelationRepository,
	unreadRepo repository.UnreadRepository,
	hub ws.EventPublisher,
) SidebarService {
	return &sidebarService{
		userRepo:     userRepo,
		relationRepo: relationRepo,
		unreadRepo:   unreadRepo,
		hub:          hub,
	}
}

// Sidebar, viewer dışındaki kullanıcıları ilişki bayrakları, online durumu
// ve okunmamış sayılarıyla döner.
//
// Gizlenmiş (hidden) kişiler okunmamış mesajları yoksa listelenmez.
// Sabitlenmiş (pinned) kişiler başa gelir; geri kalan sıra username'dir.
func (s *sidebarService) Sidebar(ctx context.Context, viewerID string) (*models.Sidebar, error) {
	users, err := s.userRepo.ListExcept(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	relations, err := s.relationRepo.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	unread, err := s.unreadRepo.ListForViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]models.SidebarUser, 0, len(users))
	for _, u := range users {
		flags := relations[u.ID]
		count := unread[u.ID]
		if flags.Hidden && count == 0 {
			continue
		}
		out = append(out, models.SidebarUser{
			User:     u,
			Online:   s.hub.IsOnline(u.ID),
			Unseen:   count,
			Relation: flags,
		})
	}

	slices.SortStableFunc(out, func(a, b models.SidebarUser) int {
		switch {
		case a.Relation.Pinned && !b.Relation.Pinned:
			return -1
		case !a.Relation.Pinned && b.Relation.Pinned:
			return 1
		}
		return 0
	})

	return &models.Sidebar{Users: out, UnseenMessages: unread}, nil
}
