// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Service'ler sentinel'i detay mesajıyla sarar:
//
//	fmt.Errorf("%w: message not found", pkg.ErrNotFound)
package pkg

import "errors"

// Genel error'lar, handler katmanı bunları HTTP status code'larına map'ler.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)

// Mesajlaşma çekirdeğine özgü error'lar.
//
// ErrInvalidContent: içerik variant'ı eksik, birden fazla veya geçersiz.
// ErrInvalidState: silinmiş mesaj üzerinde düzenleme/tepki gibi geçersiz geçiş.
// ErrConflict: version stamp uyuşmadı, başka bir yazma önce davrandı.
// ErrStorageUnavailable: veritabanı erişilemez, hiçbir event emit edilmez.
// ErrRateLimited: kullanıcı gönderim limitini aştı.
var (
	ErrInvalidContent     = errors.New("invalid content")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

// ErrorKind, bir error'ın makine tarafından okunabilir türünü döner.
// API yanıtlarında "kind" alanı olarak ve WS log'larında kullanılır.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidContent):
		return "invalid_content"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal"
	}
}
