// Package ratelimit, in-memory anahtar bazlı rate limiter'lar sağlar.
//
//   - WindowLimiter: sabit pencere; WS bağlantı denemeleri (IP) ve typing
//     event'leri (userID) için kullanılır.
//   - MessageRateLimiter: pencere + ceza süresi; mesaj gönderimi için.
//
// Tek instance deploy'da in-memory sayaç yeterlidir. Paket hiçbir proje içi
// pakete bağımlı değildir; handlers, ws ve services aynı anda kullanabilir.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// bucket, bir anahtar için istek sayacı ve pencere başlangıcı.
type bucket struct {
	count       int
	windowStart time.Time
}

// WindowLimiter, anahtar başına sabit pencere rate limiter.
//
//	limiter := NewWindowLimiter(20, time.Minute)
//	if !limiter.Allow(ip) { return 429 }
//
// Pencere ilk istekle başlar; süre dolunca sayaç sıfırlanır.
type WindowLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	max         int
	window      time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewWindowLimiter, limiter oluşturur ve arka plan temizlik goroutine'ini başlatır.
func NewWindowLimiter(max int, window time.Duration) *WindowLimiter {
	rl := &WindowLimiter{
		buckets:     make(map[string]*bucket),
		max:         max,
		window:      window,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow, anahtar için bir istek harcar. Limit aşıldıysa false döner.
func (rl *WindowLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists || now.Sub(b.windowStart) > rl.window {
		rl.buckets[key] = &bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	return b.count <= rl.max
}

// Reset, anahtarın sayacını siler.
func (rl *WindowLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// RetryAfterSeconds, pencerenin bitmesine kalan süreyi saniye olarak döner.
// HTTP Retry-After header değeri olarak kullanılır.
func (rl *WindowLimiter) RetryAfterSeconds(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		return 0
	}
	remaining := rl.window - rl.now().Sub(b.windowStart)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Stop, temizlik goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (rl *WindowLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *WindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *WindowLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, key)
		}
	}
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
//
// Öncelik: X-Forwarded-For (ilk değer), X-Real-IP, RemoteAddr.
// Uygulama genelde bir reverse proxy arkasında çalışır; RemoteAddr o
// durumda proxy'nin adresidir.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage, kalan süreyi okunabilir formata çevirir.
// Örn: 120 → "2 minute(s)", 45 → "45 second(s)"
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
