package middleware

import (
	"net/http"

	"github.com/akinalp/dmrelay/handlers"
	"github.com/akinalp/dmrelay/pkg"
)

// PlatformAdminMiddleware, platform admin yetkisi zorunlu kılan middleware.
//
// AuthMiddleware'den SONRA çalışır:
//
//	authMw.Require(adminMw.Require(http.HandlerFunc(adminHandler.SetModeration)))
type PlatformAdminMiddleware struct{}

// NewPlatformAdminMiddleware, constructor.
func NewPlatformAdminMiddleware() *PlatformAdminMiddleware {
	return &PlatformAdminMiddleware{}
}

// Require, context'teki User'ın IsAdmin alanı false ise 403 döner.
func (m *PlatformAdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := handlers.UserFromContext(r.Context())
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		if !user.IsAdmin {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "platform admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
