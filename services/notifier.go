package services

import (
	"context"
	"log"
	"time"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg/cache"
	"github.com/akinalp/dmrelay/pkg/email"
)

// EmailNotifier, offline alıcılara "kaçırılan mesaj" email'i gönderir.
//
// Aynı (gönderen, alıcı) çifti için pencere başına en fazla bir email gider.
// Pencere içindeki sonraki mesajlar sessizce atlanır; bir sonraki email
// okunmamış sayısını taşır.
type EmailNotifier struct {
	sender   email.EmailSender
	throttle *cache.TTLCache[string, struct{}]
	timeout  time.Duration
}

// NewEmailNotifier, constructor. throttle, çift başına email penceresi.
func NewEmailNotifier(sender email.EmailSender, throttle time.Duration) *EmailNotifier {
	cleanup := throttle / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &EmailNotifier{
		sender:   sender,
		throttle: cache.New[string, struct{}](throttle, cleanup),
		timeout:  15 * time.Second,
	}
}

// Notify, email gönderimini arka planda başlatır. Alıcının email adresi
// yoksa veya çift için pencere dolmadıysa hiçbir şey yapılmaz.
func (n *EmailNotifier) Notify(from, to *models.User, msg *models.Message, unread int) {
	if to.Email == nil || *to.Email == "" {
		return
	}

	key := from.ID + ":" + to.ID
	if !n.throttle.SetIfAbsent(key, struct{}{}) {
		return
	}

	if unread < 1 {
		unread = 1
	}
	missed := email.MissedMessage{
		RecipientName: to.Name(),
		SenderName:    from.Name(),
		SenderID:      from.ID,
		Preview:       msg.Content.Preview(),
		Count:         unread,
	}
	address := *to.Email

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.sender.SendMissedMessage(ctx, address, missed); err != nil {
			log.Printf("[email] missed message email to user %s failed: %v", to.ID, err)
			// Başarısız gönderim pencereyi tüketmesin.
			n.throttle.Delete(key)
		}
	}()
}

// Close, throttle cache'inin temizleme goroutine'ini durdurur.
func (n *EmailNotifier) Close() {
	n.throttle.Close()
}
