// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler iş mantığı içermez ve doğrudan DB'ye erişmez.
package handlers

import (
	"context"
	"net/http"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
)

// contextKey, context'te değer taşımak için özel key tipi.
// String key kullanmak paketler arası çakışmaya neden olabilir.
type contextKey string

// UserContextKey, AuthMiddleware'in doğrulanmış kullanıcıyı koyduğu key.
const UserContextKey contextKey = "user"

// WithUser, kullanıcıyı context'e ekler.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext, context'teki kullanıcıyı döner.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// currentUser, kullanıcı yoksa 401 yazar ve false döner.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}

// Me godoc
// GET /api/users/me
// Token'dan çözülen kullanıcı kaydını döner.
func Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}
