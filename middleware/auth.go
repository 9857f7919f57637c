// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Hata varsa next çağrılmaz ve request burada durur.
package middleware

import (
	"net/http"
	"strings"

	"github.com/akinalp/dmrelay/handlers"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/services"
)

// AuthMiddleware, JWT access token doğrulama middleware'ı.
type AuthMiddleware struct {
	authService services.AuthService
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require, token zorunlu kılar. Header formatı: Authorization: Bearer <token>
//
// 1. Token'ı doğrula → claims
// 2. ResolveUser ile kullanıcı kaydını oluştur/güncelle
// 3. Kullanıcıyı context'e ekle → next
//
// Banlı kullanıcılar okuma endpoint'lerine erişebilir; gönderim
// service katmanında reddedilir. WS bağlantısı ise handler'da 403 alır.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		user, err := m.authService.ResolveUser(r.Context(), claims)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
	})
}
