// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model hem veritabanı satırının Go karşılığıdır hem de API'den gelen/giden
// verinin şeklini belirler. JSON tag'leri wire formatıdır (camelCase).
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akinalp/dmrelay/pkg"
)

// UserStatus, kullanıcının elle seçtiği durum.
// Bağlantı durumu (online listesi) bundan bağımsızdır.
type UserStatus string

const (
	UserStatusOnline UserStatus = "online"
	UserStatusAway   UserStatus = "away"
	UserStatusBusy   UserStatus = "busy"
)

// MaxCustomStatusLength, custom status metninin rune cinsinden üst sınırı.
const MaxCustomStatusLength = 128

// Valid, status'un bilinen değerlerden biri olup olmadığını döner.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusOnline, UserStatusAway, UserStatusBusy:
		return true
	}
	return false
}

// User, kimliği dış auth servisi tarafından doğrulanmış bir kullanıcı.
//
// Kayıt, geçerli bir access token ilk görüldüğünde token claim'lerinden
// oluşturulur (just-in-time provisioning). Şifre burada tutulmaz.
//
// IsBanned: platform genelinde yasaklı, mesaj gönderemez, WS bağlantısı reddedilir.
// IsMuted: admin tarafından susturulmuş, okuyabilir, gönderemez.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  *string    `json:"displayName"`
	AvatarURL    *string    `json:"avatarUrl"`
	Email        *string    `json:"-"`
	IsBanned     bool       `json:"isBanned"`
	IsMuted      bool       `json:"isMuted"`
	IsAdmin      bool       `json:"isAdmin"`
	Status       UserStatus `json:"status"`
	CustomStatus *string    `json:"customStatus"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// SetStatusRequest, PUT /api/users/me/status ve statusUpdate op'unun gövdesi.
//
// CustomStatus nil ise mevcut metin silinir.
type SetStatusRequest struct {
	Status       UserStatus `json:"status"`
	CustomStatus *string    `json:"customStatus"`
}

// Validate, status'u doğrular ve custom status'u normalize eder
// (trim; boş metin nil olur).
func (r *SetStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", pkg.ErrBadRequest, r.Status)
	}
	if r.CustomStatus != nil {
		trimmed := strings.TrimSpace(*r.CustomStatus)
		if trimmed == "" {
			r.CustomStatus = nil
			return nil
		}
		if utf8.RuneCountInString(trimmed) > MaxCustomStatusLength {
			return fmt.Errorf("%w: custom status must be at most %d characters", pkg.ErrBadRequest, MaxCustomStatusLength)
		}
		r.CustomStatus = &trimmed
	}
	return nil
}

// CanSend, kullanıcının mesaj gönderme yetkisi olup olmadığını döner.
func (u *User) CanSend() bool {
	return !u.IsBanned && !u.IsMuted
}

// Name, görüntülenecek adı döner (display name yoksa username).
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
