package ratelimit

import (
	"sync"
	"time"
)

// messageBucket, bir gönderen için mesaj sayacı ve ceza bilgisi.
//
// İki durumlu:
//  1. Normal: pencere içinde count artar.
//  2. Cooldown: cooldownUntil > now iken tüm mesajlar reddedilir.
type messageBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// MessageRateLimiter, gönderen bazlı mesaj spam koruması.
//
// WindowLimiter'dan farkı: limit aşılınca pencere bitişini değil, ayrı bir
// ceza süresini (cooldown) bekletir. Örn: 5 saniyede 5 mesaj, aşılırsa 15 saniye sessizlik.
//
//	limiter := NewMessageRateLimiter(5, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(senderID) { return pkg.ErrRateLimited }
type MessageRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*messageBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMessageRateLimiter, limiter oluşturur ve arka plan temizlik goroutine'ini başlatır.
func NewMessageRateLimiter(maxMessages int, window, cooldown time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*messageBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow, gönderenin bir mesaj daha atmasına izin verilip verilmediğini döner.
//
// Akış:
//  1. Cooldown sürüyorsa → false.
//  2. Cooldown bittiyse veya pencere dolduysa → yeni pencere.
//  3. Pencere içindeyse → count++; max aşıldıysa cooldown başlar.
func (rl *MessageRateLimiter) Allow(userID string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists {
		rl.buckets[userID] = &messageBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		*b = messageBucket{count: 1, windowStart: now}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// CooldownSeconds, kalan ceza süresini saniye olarak döner; cooldown yoksa 0.
func (rl *MessageRateLimiter) CooldownSeconds(userID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}
	remaining := b.cooldownUntil.Sub(rl.now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Stop, temizlik goroutine'ini durdurur.
func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *MessageRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
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

// cleanup, penceresi ve cooldown'ı bitmiş bucket'ları siler.
// Cooldown'daki gönderenin bucket'ı silinmez; aksi halde ceza erken biterdi.
func (rl *MessageRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(rl.buckets, userID)
		}
	}
}
