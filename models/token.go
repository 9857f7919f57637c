package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, kimlik servisinin imzaladığı access token'ın payload'ı.
//
// Bu servis token üretmez (test ve dahili araçlar hariç), sadece doğrular.
// DisplayName, AvatarURL ve Email opsiyoneldir; varsa kullanıcı kaydı
// her bağlantıda bu değerlerle güncellenir.
type TokenClaims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
