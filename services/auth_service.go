// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ve ws callback'leri ile Repository (DB) arasında oturan katmandır.
// Tüm iş kuralları burada yaşar:
//   - İçerik doğrulama ve sahiplik kontrolleri
//   - Önce commit, sonra event (commit-then-notify)
//   - Presence geçişleri ve unread sayaçları
//
// Service http.Request/Response bilmez, doğrudan SQL çalıştırmaz.
// Event'ler ws.EventPublisher interface'i üzerinden gönderilir.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/repository"
)

// AuthService, dış kimlik servisinin imzaladığı access token'ları doğrular.
//
// Şifre, oturum ve refresh token yönetimi bu servisin işi değildir;
// kullanıcı kaydı token ilk görüldüğünde claim'lerden oluşturulur.
type AuthService interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// ResolveUser, claim'lerdeki profili kaydeder ve güncel kullanıcıyı döner.
	ResolveUser(ctx context.Context, claims *models.TokenClaims) (*models.User, error)
	// IssueAccessToken, dahili araçlar ve testler için token üretir.
	IssueAccessToken(user *models.User) (string, error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessExp time.Duration
}

// NewAuthService, constructor.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, accessExpMinutes int) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		accessExp: time.Duration(accessExpMinutes) * time.Minute,
	}
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.Username) == "" {
		return nil, fmt.Errorf("%w: token has no subject", pkg.ErrUnauthorized)
	}

	return claims, nil
}

// ResolveUser, just-in-time provisioning yapar.
//
// Profil alanları (username, display name, avatar, email) her çağrıda
// claim'lerle güncellenir. Moderasyon bayrakları DB'de kalır ve geri okunur.
func (s *authService) ResolveUser(ctx context.Context, claims *models.TokenClaims) (*models.User, error) {
	user := &models.User{
		ID:          claims.UserID,
		Username:    claims.Username,
		DisplayName: optional(claims.DisplayName),
		AvatarURL:   optional(claims.AvatarURL),
		Email:       optional(claims.Email),
	}

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) IssueAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dmrelay",
		},
	}
	if user.DisplayName != nil {
		claims.DisplayName = *user.DisplayName
	}
	if user.AvatarURL != nil {
		claims.AvatarURL = *user.AvatarURL
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// optional, boş string'i nil'e çevirir.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
