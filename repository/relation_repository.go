package repository

import (
	"context"

	"github.com/akinalp/dmrelay/models"
)

// RelationRepository, kullanıcılar arası tek yönlü ilişki bayrakları.
type RelationRepository interface {
	// Set, bayrağı açar/kapatır. Durum gerçekten değiştiyse changed true döner.
	Set(ctx context.Context, userID, peerID string, kind models.RelationKind, on bool) (changed bool, err error)
	FlagsFor(ctx context.Context, userID, peerID string) (models.RelationFlags, error)
	ListForUser(ctx context.Context, userID string) (map[string]models.RelationFlags, error)
}
