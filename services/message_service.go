package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/pkg/ratelimit"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// Sayfalama ve arama limitleri
const (
	defaultPageSize   = 50
	maxPageSize       = 100
	defaultSearchSize = 20
	maxSearchSize     = 50

	// maxCASAttempts: version çakışmasında mutasyonun kaç kez yeniden deneneceği.
	// Sadece client beklenen version vermediyse yeniden denenir.
	maxCASAttempts = 3
)

// MessageService, direkt mesajların teslim koordinatörüdür.
//
// Her mutasyon aynı sırayı izler:
//  1. Doğrula (içerik, sahiplik, durum)
//  2. Kalıcı hale getir (commit)
//  3. Commit'ten SONRA event gönder
//
// Storage hatası 2. adımda dönerse hiçbir event gönderilmez.
// Offline alıcıya gönderim hata değildir.
type MessageService interface {
	Send(ctx context.Context, senderID, receiverID string, req *models.SendMessageRequest) (*models.Message, error)
	Reply(ctx context.Context, messageID, authorID string, req *models.SendMessageRequest) (*models.Message, error)
	Forward(ctx context.Context, messageID, forwarderID, targetUserID string) (*models.Message, error)

	Edit(ctx context.Context, messageID, editorID string, req *models.EditMessageRequest) (*models.Message, error)
	Delete(ctx context.Context, messageID, requesterID string) (*models.Message, error)
	React(ctx context.Context, messageID, reactorID string, req *models.ReactRequest) (*models.Message, error)
	Unreact(ctx context.Context, messageID, reactorID string) (*models.Message, error)

	MarkSeen(ctx context.Context, peerID, viewerID string) (*models.SeenReceipt, error)
	MarkOneSeen(ctx context.Context, messageID, viewerID string) (*models.Message, error)
	MarkDelivered(ctx context.Context, receiverID string) error

	GetConversation(ctx context.Context, viewerID, peerID, beforeID string, limit int) (*models.MessagePage, error)
	GetByID(ctx context.Context, messageID, viewerID string) (*models.Message, error)
	Search(ctx context.Context, viewerID, query, peerID string, limit int) ([]models.Message, error)
	Stats(ctx context.Context, viewerID, peerID string) (*models.MessageStats, error)
}

// MissedMessageNotifier, offline alıcıya mesaj bildirimi gönderen taraf.
// Notify bloklamamalıdır; gönderim arka planda yapılır.
type MissedMessageNotifier interface {
	Notify(sender, receiver *models.User, msg *models.Message, unread int)
}

type messageService struct {
	messageRepo  repository.MessageRepository
	unreadRepo   repository.UnreadRepository
	userRepo     repository.UserRepository
	relationRepo repository.RelationRepository
	hub          ws.EventPublisher
	limiter      *ratelimit.MessageRateLimiter
	notifier     MissedMessageNotifier

	now func() time.Time
}

// NewMessageService, constructor.
//
// limiter ve notifier nil olabilir: limit uygulanmaz, email gönderilmez.
func NewMessageService(
	messageRepo repository.MessageRepository,
	unreadRepo repository.UnreadRepository,
	userRepo repository.UserRepository,
	relationRepo repository.RelationRepository,
	hub ws.EventPublisher,
	limiter *ratelimit.MessageRateLimiter,
	notifier MissedMessageNotifier,
) MessageService {
	return &messageService{
		messageRepo:  messageRepo,
		unreadRepo:   unreadRepo,
		userRepo:     userRepo,
		relationRepo: relationRepo,
		hub:          hub,
		limiter:      limiter,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ─── Oluşturma: Send / Reply / Forward ───

// Send, yeni bir mesaj oluşturur ve teslim eder.
//
// Flow:
//  1. Kendine mesaj, içerik ve öncelik doğrulaması
//  2. Gönderen yetkisi (ban/mute), alıcı varlığı, engel kontrolü, rate limit
//  3. Persist; alıcı bu konuşmayı açık tutmuyorsa aynı transaction'da unread++
//  4. message event'i alıcıya ve gönderene (diğer tab'lar için echo)
//  5. refreshUserList broadcast
//  6. Alıcı offline ise (ve göndereni susturmadıysa) email bildirimi
func (s *messageService) Send(ctx context.Context, senderID, receiverID string, req *models.SendMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &models.Message{
		Content:  req.Content,
		Priority: req.Priority,
	}
	return s.create(ctx, senderID, receiverID, msg)
}

// Reply, mevcut bir mesaja yanıt oluşturur. Alıcı orijinal mesajın diğer katılımcısıdır.
func (s *messageService) Reply(ctx context.Context, messageID, authorID string, req *models.SendMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	original, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !original.IsParticipant(authorID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	if original.IsDeleted {
		return nil, fmt.Errorf("%w: cannot reply to a deleted message", pkg.ErrInvalidState)
	}

	replyTo := original.ID
	msg := &models.Message{
		Content:   req.Content,
		Priority:  req.Priority,
		ReplyToID: &replyTo,
	}
	return s.create(ctx, authorID, original.Peer(authorID), msg)
}

// Forward, mesajın içeriğini yeni bir mesaj olarak hedef kullanıcıya gönderir.
//
// Sadece içerik kopyalanır; reaction, edit, delete ve reply bağlantıları taşınmaz.
// Zaten iletilmiş bir mesaj tekrar iletilirse ilk gönderen korunur.
func (s *messageService) Forward(ctx context.Context, messageID, forwarderID, targetUserID string) (*models.Message, error) {
	if strings.TrimSpace(targetUserID) == "" {
		return nil, fmt.Errorf("%w: targetUserId is required", pkg.ErrBadRequest)
	}

	original, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !original.IsParticipant(forwarderID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	if original.IsDeleted {
		return nil, fmt.Errorf("%w: cannot forward a deleted message", pkg.ErrInvalidState)
	}

	originalSender := original.SenderID
	if original.IsForwarded && original.OriginalSenderID != nil {
		originalSender = *original.OriginalSenderID
	}

	msg := &models.Message{
		Content:          original.Content.Clone(),
		Priority:         models.PriorityNormal,
		IsForwarded:      true,
		OriginalSenderID: &originalSender,
	}
	return s.create(ctx, forwarderID, targetUserID, msg)
}

// create, Send/Reply/Forward'ın ortak teslim hattıdır.
// msg içeriği doğrulanmış olarak gelir; kimlik ve zaman alanları burada atanır.
func (s *messageService) create(ctx context.Context, senderID, receiverID string, msg *models.Message) (*models.Message, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", pkg.ErrBadRequest)
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !sender.CanSend() {
		return nil, fmt.Errorf("%w: your account is not allowed to send messages", pkg.ErrForbidden)
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	receiverFlags, err := s.relationRepo.FlagsFor(ctx, receiverID, senderID)
	if err != nil {
		return nil, err
	}
	if receiverFlags.Blocked {
		return nil, fmt.Errorf("%w: this user is not accepting your messages", pkg.ErrForbidden)
	}

	if s.limiter != nil && !s.limiter.Allow(senderID) {
		return nil, fmt.Errorf("%w: %s", pkg.ErrRateLimited,
			ratelimit.FormatRetryMessage(s.limiter.CooldownSeconds(senderID)))
	}

	now := s.now()
	msg.ID = uuid.NewString()
	msg.SenderID = senderID
	msg.ReceiverID = receiverID
	msg.Reactions = []models.Reaction{}
	msg.CreatedAt = now
	msg.UpdatedAt = now

	online := s.hub.IsOnline(receiverID)
	if online {
		msg.Delivered = true
		msg.DeliveredAt = &now
	}

	// Mesaj ve unread artışı tek transaction; alıcı bu konuşmaya bakıyorsa sayaç artmaz.
	unread, err := s.messageRepo.CreateWithUnread(ctx, msg, !s.hub.IsViewing(receiverID, senderID))
	if err != nil {
		return nil, err
	}

	s.hub.EmitToMany([]string{receiverID, senderID}, ws.Event{Op: ws.OpMessage, Data: msg})
	s.hub.Broadcast(ws.Event{Op: ws.OpRefreshUserList})

	if !online && !receiverFlags.Muted && s.notifier != nil {
		s.notifier.Notify(sender, receiver, msg, unread)
	}

	return msg, nil
}

// ─── Mutasyon: Edit / Delete / React ───

// Edit, metin mesajının içeriğini değiştirir. Sadece gönderen düzenleyebilir.
//
// req.Version verilirse mevcut version ile eşleşmesi gerekir (aksi halde
// ErrConflict). Verilmezse çakışmada güncel kayıt üzerinden yeniden denenir.
func (s *messageService) Edit(ctx context.Context, messageID, editorID string, req *models.EditMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg, changed, err := s.mutate(ctx, messageID, req.Version, func(msg *models.Message, now time.Time) (bool, error) {
		if msg.SenderID != editorID {
			return false, fmt.Errorf("%w: only the sender can edit this message", pkg.ErrForbidden)
		}
		if msg.IsDeleted {
			return false, fmt.Errorf("%w: cannot edit a deleted message", pkg.ErrInvalidState)
		}
		if msg.Content.Type != models.ContentText {
			return false, fmt.Errorf("%w: only text messages can be edited", pkg.ErrInvalidState)
		}
		if msg.Content.Text != nil && *msg.Content.Text == req.Text {
			return false, nil
		}

		msg.Content = models.TextContent(req.Text)
		msg.IsEdited = true
		msg.EditedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.emitUpdate(ws.ActionEdited, msg)
	}
	return msg, nil
}

// Delete, mesajı soft delete yapar. Sadece gönderen silebilir.
// Silinmiş mesaj terminal durumdadır; ikinci silme ErrInvalidState döner.
//
// Mesaj okunmamışsa alıcının sayacı yeniden hesaplanır.
func (s *messageService) Delete(ctx context.Context, messageID, requesterID string) (*models.Message, error) {
	msg, _, err := s.mutate(ctx, messageID, nil, func(msg *models.Message, now time.Time) (bool, error) {
		if msg.SenderID != requesterID {
			return false, fmt.Errorf("%w: only the sender can delete this message", pkg.ErrForbidden)
		}
		if msg.IsDeleted {
			return false, fmt.Errorf("%w: message is already deleted", pkg.ErrInvalidState)
		}

		msg.IsDeleted = true
		msg.DeletedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if !msg.Seen {
		if _, err := s.unreadRepo.Recompute(ctx, msg.ReceiverID, msg.SenderID); err != nil {
			log.Printf("[dm] failed to recompute unread %s←%s: %v", msg.ReceiverID, msg.SenderID, err)
		} else {
			s.emitEntityChanged(msg.ReceiverID, "unread", "recomputed", msg.ReceiverID, msg.SenderID)
		}
	}

	s.emitUpdate(ws.ActionDeleted, msg)
	return msg, nil
}

// React, kullanıcının emoji tepkisini ekler veya değiştirir.
// Konuşmanın iki katılımcısı da tepki verebilir; kişi başına tek tepki tutulur.
func (s *messageService) React(ctx context.Context, messageID, reactorID string, req *models.ReactRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg, changed, err := s.mutate(ctx, messageID, nil, func(msg *models.Message, now time.Time) (bool, error) {
		if err := checkReactable(msg, reactorID); err != nil {
			return false, err
		}
		for _, r := range msg.Reactions {
			if r.UserID == reactorID && r.Emoji == req.Emoji {
				return false, nil
			}
		}
		msg.SetReaction(reactorID, req.Emoji, now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.emitUpdate(ws.ActionReacted, msg)
	}
	return msg, nil
}

// Unreact, kullanıcının tepkisini kaldırır. Tepki yoksa no-op.
func (s *messageService) Unreact(ctx context.Context, messageID, reactorID string) (*models.Message, error) {
	msg, changed, err := s.mutate(ctx, messageID, nil, func(msg *models.Message, _ time.Time) (bool, error) {
		if err := checkReactable(msg, reactorID); err != nil {
			return false, err
		}
		return msg.RemoveReaction(reactorID), nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.emitUpdate(ws.ActionReacted, msg)
	}
	return msg, nil
}

func checkReactable(msg *models.Message, userID string) error {
	if !msg.IsParticipant(userID) {
		return fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	if msg.IsDeleted {
		return fmt.Errorf("%w: cannot react to a deleted message", pkg.ErrInvalidState)
	}
	return nil
}

// mutate, oku → değiştir → compare-and-swap yaz döngüsüdür.
//
// apply false dönerse yazma yapılmaz (no-op). expectedVersion verilirse
// okunan kayıt o version'da olmalıdır ve çakışmada yeniden denenmez.
func (s *messageService) mutate(
	ctx context.Context,
	messageID string,
	expectedVersion *int64,
	apply func(msg *models.Message, now time.Time) (bool, error),
) (*models.Message, bool, error) {
	for attempt := 1; ; attempt++ {
		msg, err := s.messageRepo.GetByID(ctx, messageID)
		if err != nil {
			return nil, false, err
		}

		changed, err := apply(msg, s.now())
		if err != nil {
			return nil, false, err
		}
		// Sahiplik/durum kontrolü version'dan önce: yetkisiz çağıran çakışma bilgisini görmez.
		if expectedVersion != nil && msg.Version != *expectedVersion {
			return nil, false, fmt.Errorf("%w: message version is %d, expected %d", pkg.ErrConflict, msg.Version, *expectedVersion)
		}
		if !changed {
			return msg, false, nil
		}

		msg.UpdatedAt = s.now()
		err = s.messageRepo.Update(ctx, msg, msg.Version)
		if err == nil {
			return msg, true, nil
		}
		if !errors.Is(err, pkg.ErrConflict) || expectedVersion != nil || attempt >= maxCASAttempts {
			return nil, false, err
		}
	}
}

// ─── Okundu / Teslim ───

// MarkSeen, peer → viewer yönündeki tüm okunmamış mesajları okundu yapar
// ve viewer'ın sayacını sıfırlar. İdempotent: okunacak mesaj yoksa event gönderilmez.
func (s *messageService) MarkSeen(ctx context.Context, peerID, viewerID string) (*models.SeenReceipt, error) {
	if peerID == viewerID {
		return nil, fmt.Errorf("%w: cannot mark your own messages as seen", pkg.ErrBadRequest)
	}

	now := s.now()
	ids, err := s.messageRepo.MarkSeen(ctx, peerID, viewerID, now)
	if err != nil {
		return nil, err
	}

	receipt := &models.SeenReceipt{
		ReaderID:   viewerID,
		PeerID:     peerID,
		MessageIDs: ids,
		SeenAt:     now,
	}

	if len(ids) > 0 {
		s.emitReadReceipt(receipt)
		s.emitEntityChanged(viewerID, "unread", "reset", viewerID, peerID)
	}
	return receipt, nil
}

// MarkOneSeen, tek bir mesajı okundu yapar. Sadece alıcı işaretleyebilir.
func (s *messageService) MarkOneSeen(ctx context.Context, messageID, viewerID string) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ReceiverID != viewerID {
		return nil, fmt.Errorf("%w: only the receiver can mark this message as seen", pkg.ErrForbidden)
	}
	if msg.IsDeleted {
		return nil, fmt.Errorf("%w: message is deleted", pkg.ErrInvalidState)
	}

	now := s.now()
	updated, err := s.messageRepo.MarkSeenByID(ctx, messageID, viewerID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return msg, nil
	}

	msg.Seen = true
	msg.SeenAt = &now
	msg.Version++
	msg.UpdatedAt = now

	s.emitUpdate(ws.ActionSeen, msg)
	s.emitEntityChanged(viewerID, "unread", "recomputed", viewerID, msg.SenderID)
	return msg, nil
}

// MarkDelivered, alıcı online olduğunda bekleyen mesajları teslim edildi yapar
// ve her gönderene bildirir. PresenceService ilk bağlantıda çağırır.
func (s *messageService) MarkDelivered(ctx context.Context, receiverID string) error {
	senders, err := s.messageRepo.MarkDelivered(ctx, receiverID, s.now())
	if err != nil {
		return err
	}
	for _, senderID := range senders {
		s.emitEntityChanged(senderID, "message", ws.ActionDelivered, receiverID, senderID)
	}
	return nil
}

// ─── Okuma ───

// GetConversation, iki kullanıcı arasındaki silinmemiş mesajları döner.
//
// Cursor-based pagination: beforeID verilirse o mesajdan eskiler gelir.
// limit+1 kayıt istenir; fazlası varsa HasMore true olur.
// Mesajlar kronolojik sıradadır. Okuma mesajları okundu yapmaz.
func (s *messageService) GetConversation(ctx context.Context, viewerID, peerID, beforeID string, limit int) (*models.MessagePage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if _, err := s.userRepo.GetByID(ctx, peerID); err != nil {
		return nil, err
	}

	if beforeID != "" {
		cursor, err := s.messageRepo.GetByID(ctx, beforeID)
		if err != nil {
			return nil, err
		}
		if !cursor.IsParticipant(viewerID) || !cursor.IsParticipant(peerID) {
			return nil, fmt.Errorf("%w: cursor does not belong to this conversation", pkg.ErrBadRequest)
		}
	}

	messages, err := s.messageRepo.FindConversation(ctx, viewerID, peerID, beforeID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	slices.Reverse(messages)

	return &models.MessagePage{Messages: messages, HasMore: hasMore}, nil
}

// GetByID, tek bir mesajı döner. Silinmiş mesajlar da döner (IsDeleted ile).
// Sadece katılımcılar görebilir.
func (s *messageService) GetByID(ctx context.Context, messageID, viewerID string) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.IsParticipant(viewerID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	return msg, nil
}

// Search, viewer'ın konuşmalarında metin arar. Silinmiş mesajlar hariç.
func (s *messageService) Search(ctx context.Context, viewerID, query, peerID string, limit int) ([]models.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", pkg.ErrBadRequest)
	}
	if limit <= 0 {
		limit = defaultSearchSize
	}
	if limit > maxSearchSize {
		limit = maxSearchSize
	}
	return s.messageRepo.Search(ctx, viewerID, query, peerID, limit)
}

// Stats, viewer ile peer arasındaki konuşmanın özet sayılarını döner.
func (s *messageService) Stats(ctx context.Context, viewerID, peerID string) (*models.MessageStats, error) {
	if viewerID == peerID {
		return nil, fmt.Errorf("%w: cannot load stats for yourself", pkg.ErrBadRequest)
	}
	if _, err := s.userRepo.GetByID(ctx, peerID); err != nil {
		return nil, err
	}
	return s.messageRepo.Stats(ctx, viewerID, peerID)
}

// ─── Event helper'ları ───

func (s *messageService) emitUpdate(action string, msg *models.Message) {
	s.hub.EmitToMany([]string{msg.SenderID, msg.ReceiverID}, ws.Event{
		Op:   ws.OpMessageUpdate,
		Data: ws.MessageUpdateData{Action: action, Message: msg},
	})
}

// emitReadReceipt, okundu bilgisini mesajların gönderenine iletir.
func (s *messageService) emitReadReceipt(receipt *models.SeenReceipt) {
	s.hub.EmitTo(receipt.PeerID, ws.Event{
		Op: ws.OpNotification,
		Data: ws.Notification(ws.NotifyMessagesRead, map[string]any{
			"readerId":   receipt.ReaderID,
			"messageIds": receipt.MessageIDs,
			"seenAt":     receipt.SeenAt,
		}),
	})
}

func (s *messageService) emitEntityChanged(to, kind, action, userID, targetUserID string) {
	s.hub.EmitTo(to, ws.Event{
		Op: ws.OpEntityChanged,
		Data: ws.EntityChangedData{
			Kind:         kind,
			Action:       action,
			UserID:       userID,
			TargetUserID: targetUserID,
		},
	})
}
