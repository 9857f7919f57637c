// Package repository, veritabanı erişim katmanını tanımlar.
//
// Her repository bir interface + SQLite implementasyonundan oluşur.
// Service katmanı sadece interface'i bilir; testlerde in-memory fake verilebilir.
package repository

import (
	"context"
	"time"

	"github.com/akinalp/dmrelay/models"
)

// MessageRepository, mesaj log'u için veritabanı işlemleri.
//
//   - Create: yeni mesajı yazar (version 1)
//   - CreateWithUnread: Create + receiver sayacının artışı (tek transaction)
//   - GetByID: silinmiş olsa bile mesajı döner
//   - FindConversation: iki kullanıcı arasındaki silinmemiş mesajlar, yeniden eskiye
//   - CountUnseen: sender → receiver yönündeki okunmamış mesaj sayısı
//   - MarkSeen: sender → receiver yönündeki tüm okunmamışları okundu yapar ve
//     receiver'ın sayacını sıfırlar (tek transaction)
//   - MarkSeenByID: tek bir mesajı okundu yapar, sayacı yeniden hesaplar
//   - MarkDelivered: receiver'a bekleyen mesajları teslim edildi yapar
//   - Update: compare-and-swap, beklenen version eşleşmezse pkg.ErrConflict
//   - Search / Stats: silinmemiş mesajlar üzerinde arama ve özet
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	CreateWithUnread(ctx context.Context, msg *models.Message, countUnread bool) (unread int, err error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	FindConversation(ctx context.Context, userA, userB, beforeID string, limit int) ([]models.Message, error)
	CountUnseen(ctx context.Context, senderID, receiverID string) (int, error)
	MarkSeen(ctx context.Context, senderID, receiverID string, at time.Time) ([]string, error)
	MarkSeenByID(ctx context.Context, id, receiverID string, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, receiverID string, at time.Time) ([]string, error)
	Update(ctx context.Context, msg *models.Message, expectedVersion int64) error
	Search(ctx context.Context, viewerID, query, peerID string, limit int) ([]models.Message, error)
	Stats(ctx context.Context, userID, peerID string) (*models.MessageStats, error)
}
