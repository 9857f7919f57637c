package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akinalp/dmrelay/pkg"
)

// MessagePriority, gönderenin mesaja verdiği öncelik.
type MessagePriority string

const (
	PriorityLow    MessagePriority = "low"
	PriorityNormal MessagePriority = "normal"
	PriorityHigh   MessagePriority = "high"
	PriorityUrgent MessagePriority = "urgent"
)

// Reaction, bir kullanıcının mesaja verdiği emoji tepkisi.
// Mesaj başına kullanıcı başına en fazla bir reaction bulunur.
type Reaction struct {
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	ReactedAt time.Time `json:"reactedAt"`
}

// Message, iki kullanıcı arasındaki tek bir direkt mesaj.
//
// Lifecycle: Persisted → {Delivered, Edited, Reacted} → Deleted.
// Deleted terminal durumdur; silinen mesaj konuşma okumalarından ve
// aramadan çıkarılır ama kayıt fiziksel olarak silinmez.
//
// Version, her mutasyonda bir artar. Update'ler compare-and-swap ile yapılır:
// beklenen version eşleşmezse yazma reddedilir (pkg.ErrConflict).
type Message struct {
	ID               string          `json:"id"`
	SenderID         string          `json:"senderId"`
	ReceiverID       string          `json:"receiverId"`
	Content          Content         `json:"content"`
	Priority         MessagePriority `json:"priority"`
	Seen             bool            `json:"seen"`
	SeenAt           *time.Time      `json:"seenAt"`
	Delivered        bool            `json:"delivered"`
	DeliveredAt      *time.Time      `json:"deliveredAt"`
	IsEdited         bool            `json:"isEdited"`
	EditedAt         *time.Time      `json:"editedAt"`
	IsDeleted        bool            `json:"isDeleted"`
	DeletedAt        *time.Time      `json:"deletedAt"`
	ReplyToID        *string         `json:"replyTo"`
	IsForwarded      bool            `json:"isForwarded"`
	OriginalSenderID *string         `json:"originalSender"`
	Reactions        []Reaction      `json:"reactions"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// IsParticipant, kullanıcının bu mesajın göndereni veya alıcısı olup olmadığını döner.
func (m *Message) IsParticipant(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Peer, verilen katılımcının karşı tarafını döner.
func (m *Message) Peer(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// SetReaction, kullanıcının reaction'ını ekler veya mevcut olanı değiştirir.
func (m *Message) SetReaction(userID, emoji string, at time.Time) {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			m.Reactions[i].Emoji = emoji
			m.Reactions[i].ReactedAt = at
			return
		}
	}
	m.Reactions = append(m.Reactions, Reaction{UserID: userID, Emoji: emoji, ReactedAt: at})
}

// RemoveReaction, kullanıcının reaction'ını kaldırır. Kaldırılacak bir şey yoksa false döner.
func (m *Message) RemoveReaction(userID string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}

// SendMessageRequest, POST /api/messages/send/{peerId} ve reply body'si.
type SendMessageRequest struct {
	Content  Content         `json:"content"`
	Priority MessagePriority `json:"priority,omitempty"`
}

// Validate, içerik variant'ını ve önceliği doğrular. Boş öncelik "normal" olur.
func (r *SendMessageRequest) Validate() error {
	if err := r.Content.Validate(); err != nil {
		return err
	}
	switch r.Priority {
	case "":
		r.Priority = PriorityNormal
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
	default:
		return fmt.Errorf("%w: unknown priority %q", pkg.ErrBadRequest, r.Priority)
	}
	return nil
}

// EditMessageRequest, PUT /api/messages/edit/{id} body'si.
// Version verilirse mevcut version ile eşleşmesi gerekir.
type EditMessageRequest struct {
	Text    string `json:"text"`
	Version *int64 `json:"version,omitempty"`
}

// Validate, yeni metni trim eder ve uzunluğunu kontrol eder.
func (r *EditMessageRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	return validateText(r.Text, true)
}

// ReactRequest, POST /api/messages/react/{id} body'si.
type ReactRequest struct {
	Emoji string `json:"emoji"`
}

// Validate, emoji'nin boş olmadığını ve makul uzunlukta olduğunu kontrol eder.
func (r *ReactRequest) Validate() error {
	r.Emoji = strings.TrimSpace(r.Emoji)
	if r.Emoji == "" {
		return fmt.Errorf("%w: emoji is required", pkg.ErrBadRequest)
	}
	if utf8.RuneCountInString(r.Emoji) > 16 {
		return fmt.Errorf("%w: emoji is too long", pkg.ErrBadRequest)
	}
	return nil
}

// ForwardRequest, POST /api/messages/forward/{id} body'si.
type ForwardRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// MessagePage, konuşma için cursor-based pagination yanıtı.
// Messages kronolojik (eskiden yeniye) sıralıdır.
type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}

// MessageStats, iki kullanıcı arasındaki konuşmanın özet sayıları.
type MessageStats struct {
	PeerID         string         `json:"peerId"`
	Total          int            `json:"total"`
	Sent           int            `json:"sent"`
	Received       int            `json:"received"`
	UnseenByMe     int            `json:"unseenByMe"`
	UnseenByPeer   int            `json:"unseenByPeer"`
	ByType         map[string]int `json:"byType"`
	FirstMessageAt *time.Time     `json:"firstMessageAt"`
	LastMessageAt  *time.Time     `json:"lastMessageAt"`
}

// SeenReceipt, MarkSeen sonucu, hangi mesajların okundu yapıldığı.
type SeenReceipt struct {
	ReaderID   string    `json:"readerId"`
	PeerID     string    `json:"peerId"`
	MessageIDs []string  `json:"messageIds"`
	SeenAt     time.Time `json:"seenAt"`
}
