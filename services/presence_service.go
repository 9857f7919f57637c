package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/akinalp/dmrelay/pkg/ratelimit"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// ConnectionRegistrar, presence geçişleri için Hub'dan ihtiyaç duyulan kısım.
// *ws.Hub bu interface'i karşılar.
type ConnectionRegistrar interface {
	Register(conn ws.Conn) (first bool)
	Unregister(conn ws.Conn) (userID string, last bool)
	SetViewing(conn ws.Conn, peerID string)
}

// DeliveryMarker, kullanıcı online olduğunda bekleyen mesajları
// "delivered" yapan taraf (MessageService).
type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, receiverID string) error
}

// CallDisconnector, kullanıcı tamamen offline olduğunda aktif aramasını
// sonlandıran taraf (CallService).
type CallDisconnector interface {
	HandleDisconnect(userID string)
}

// PresenceService, bağlantı açılış/kapanış geçişlerini ve typing relay'ini yönetir.
// ws.ConnectionLifecycle interface'ini karşılar.
type PresenceService interface {
	Connect(conn ws.Conn)
	Disconnect(conn ws.Conn)
	RelayTyping(senderID string, data ws.TypingData)
	Focus(conn ws.Conn, peerID string)
	RelayUploadProgress(senderID string, data ws.UploadProgressData)
}

type presenceService struct {
	// mu: registry değişikliği + online snapshot + broadcast tek kritik bölge.
	// Eski bir snapshot yenisinden sonra yayınlanmamalı.
	mu sync.Mutex

	registrar     ConnectionRegistrar
	hub           ws.EventPublisher
	relationRepo  repository.RelationRepository
	delivery      DeliveryMarker
	calls         CallDisconnector
	typingLimiter *ratelimit.WindowLimiter
}

// NewPresenceService, constructor.
//
// delivery, calls ve typingLimiter nil olabilir; o durumda ilgili adım atlanır.
func NewPresenceService(
	registrar ConnectionRegistrar,
	hub ws.EventPublisher,
	relationRepo repository.RelationRepository,
	delivery DeliveryMarker,
	calls CallDisconnector,
	typingLimiter *ratelimit.WindowLimiter,
) PresenceService {
	return &presenceService{
		registrar:     registrar,
		hub:           hub,
		relationRepo:  relationRepo,
		delivery:      delivery,
		calls:         calls,
		typingLimiter: typingLimiter,
	}
}

// Connect, yeni bağlantıyı kaydeder.
//
// Flow:
//  1. Registry'ye ekle
//  2. Güncel online listesini herkese broadcast et
//  3. Aynı listeyi yeni bağlantıya doğrudan gönder
//  4. İlk bağlantıysa bekleyen mesajları delivered yap
//
// 1-3 s.mu altında çalışır; DB işi (4) lock dışındadır.
func (s *presenceService) Connect(conn ws.Conn) {
	s.mu.Lock()
	first := s.registrar.Register(conn)
	online := s.hub.OnlineUserIDs()
	s.hub.Broadcast(ws.Event{Op: ws.OpOnlineUsers, Data: online})
	s.hub.SendDirect(conn, ws.Event{Op: ws.OpOnlineUsers, Data: online})
	s.mu.Unlock()

	if first && s.delivery != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.delivery.MarkDelivered(ctx, conn.UserID()); err != nil {
			log.Printf("[presence] failed to mark deliveries for user %s: %v", conn.UserID(), err)
		}
	}
}

// Disconnect, bağlantıyı kaldırır. Kullanıcının son bağlantısıysa
// online listesi yeniden broadcast edilir ve aktif arama sonlandırılır.
// Kayıtlı olmayan bağlantı için no-op.
func (s *presenceService) Disconnect(conn ws.Conn) {
	s.mu.Lock()
	userID, last := s.registrar.Unregister(conn)
	if userID == "" || !last {
		s.mu.Unlock()
		return
	}
	s.hub.Broadcast(ws.Event{Op: ws.OpOnlineUsers, Data: s.hub.OnlineUserIDs()})
	s.mu.Unlock()

	if s.calls != nil {
		s.calls.HandleDisconnect(userID)
	}
}

// RelayTyping, typing durumunu alıcıya iletir.
//
// Alıcı göndereni engellediyse event düşürülür. Typing event'i sık gelir;
// gönderen başına pencere limiti uygulanır, aşan event'ler sessizce atılır.
// isTyping=false her zaman geçer, aksi halde karşı tarafta gösterge takılı kalır.
func (s *presenceService) RelayTyping(senderID string, data ws.TypingData) {
	if data.ReceiverID == senderID {
		return
	}
	if data.IsTyping && s.typingLimiter != nil && !s.typingLimiter.Allow(senderID) {
		return
	}
	if s.isBlockedBy(data.ReceiverID, senderID) {
		return
	}

	s.hub.EmitTo(data.ReceiverID, ws.Event{
		Op:   ws.OpUserTyping,
		Data: ws.UserTypingData{UserID: senderID, IsTyping: data.IsTyping},
	})
}

// Focus, bağlantının aktif konuşmasını kaydeder. Bu konuşmaya gelen
// mesajlar unread sayacını artırmaz.
func (s *presenceService) Focus(conn ws.Conn, peerID string) {
	s.registrar.SetViewing(conn, peerID)
}

// RelayUploadProgress, dosya yükleme ilerlemesini alıcıya notification olarak iletir.
func (s *presenceService) RelayUploadProgress(senderID string, data ws.UploadProgressData) {
	if data.ReceiverID == senderID || s.isBlockedBy(data.ReceiverID, senderID) {
		return
	}
	s.hub.EmitTo(data.ReceiverID, ws.Event{
		Op: ws.OpNotification,
		Data: ws.Notification(ws.NotifyUploadProgress, map[string]any{
			"senderId": senderID,
			"fileName": data.FileName,
			"progress": data.Progress,
		}),
	})
}

// isBlockedBy, userID'nin peerID'yi engelleyip engellemediğini döner.
// Okuma hatasında false döner; relay event'leri best-effort'tur.
func (s *presenceService) isBlockedBy(userID, peerID string) bool {
	if s.relationRepo == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	flags, err := s.relationRepo.FlagsFor(ctx, userID, peerID)
	if err != nil {
		log.Printf("[presence] relation lookup failed %s→%s: %v", userID, peerID, err)
		return false
	}
	return flags.Blocked
}
