package repository

import (
	"context"

	"github.com/akinalp/dmrelay/models"
)

// UserRepository, kullanıcı kayıtları için veritabanı işlemleri.
//
// Upsert token claim'lerinden gelen profil alanlarını günceller;
// ban/mute/admin bayraklarına dokunmaz, onlar sadece SetModeration ile değişir.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListExcept(ctx context.Context, excludeID string) ([]models.User, error)
	SetModeration(ctx context.Context, id string, banned, muted bool) error
	SetStatus(ctx context.Context, id string, status models.UserStatus, customStatus *string) error
}
