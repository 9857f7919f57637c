// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
//   - Registry: kullanıcı → canlı bağlantılar eşlemesi ("kim online" sorusunun tek kaynağı)
//   - Hub: Registry üzerinde fan-out (EventBus); event'i bir kullanıcının tüm
//     bağlantılarına, bir kullanıcı kümesine veya herkese iletir
//   - Client: tek bir gorilla/websocket bağlantısı (ReadPump + WritePump)
//   - Handler: GET /ws?token=... upgrade + kimlik doğrulama
//
// Event akışı:
//  1. Kullanıcı mesaj gönderir → HTTP POST → MessageService → DB kayıt
//  2. Commit'ten SONRA service Hub.EmitTo ile alıcıya ve gönderene event yollar
//  3. Hub event'i bir kez marshal eder, her bağlantının send buffer'ına koyar
//  4. Her client'ın WritePump'ı event'i WebSocket'e yazar
//
// Offline kullanıcıya emit hata değildir; sessizce hiçbir şey yapılmaz.
package ws

import "github.com/akinalp/dmrelay/models"

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op: event türü, "message", "heartbeat" vb.
// Data: event'e özgü payload.
// Seq: her outbound event'e verilen artan sayı. Client eksik event'i
// buradan fark eder ve yeniden bağlanınca tam state'i HTTP'den çeker.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat          = "heartbeat"          // Client her 30sn'de gönderir
	OpTyping             = "typing"             // {receiverId, isTyping}
	OpFocus              = "focus"              // Aktif konuşma değişti {peerId}; boş peerId = hiçbiri
	OpFileUploadProgress = "fileUploadProgress" // Yükleme ilerlemesi alıcıya relay edilir
	OpMarkAsRead         = "markAsRead"         // {peerId}, HTTP seen endpoint'inin WS karşılığı
	OpCallRequest        = "callRequest"        // {receiverId, callType}
	OpCallResponse       = "callResponse"       // {callId, accepted}
	OpCallEnd            = "callEnd"            // {callId}
	OpStatusUpdate       = "statusUpdate"       // {status, customStatus}, manuel durum
)

// Server → Client operasyonları
const (
	OpHeartbeatAck    = "heartbeat_ack"
	OpMessage         = "message"         // Yeni mesaj: tam kayıt, gönderen + alıcı
	OpMessageUpdate   = "messageUpdate"   // Mesaj düzenlendi/silindi/tepki aldı
	OpOnlineUsers     = "onlineUsers"     // Online kullanıcı ID'leri (sıralı)
	OpUserTyping      = "userTyping"      // {userId, isTyping}
	OpRefreshUserList = "refreshUserList" // Payload yok, sidebar'ı yeniden çek
	OpNotification    = "notification"    // {type, ...}, tek bir kullanıcıya
	OpEntityChanged   = "entityChanged"   // {kind, action, userId, targetUserId}
)

// messageUpdate action'ları
const (
	ActionEdited    = "edited"
	ActionDeleted   = "deleted"
	ActionReacted   = "reacted"
	ActionSeen      = "seen"
	ActionDelivered = "delivered"
	ActionStatus    = "status" // entityChanged{kind: "user"}
)

// notification type'ları
const (
	NotifyMessagesRead    = "messagesRead"
	NotifyUploadProgress  = "fileUploadProgress"
	NotifyCallRequest     = "callRequest"
	NotifyCallAccepted    = "callAccepted"
	NotifyCallDeclined    = "callDeclined"
	NotifyCallEnded       = "callEnded"
	NotifyCallBusy        = "callBusy"
	NotifyCallUnavailable = "callUnavailable"
)

// TypingData, typing event'inin Client → Server payload'ı.
type TypingData struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

// UserTypingData, userTyping event'inin payload'ı (alıcıya gönderilen).
type UserTypingData struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// FocusData, focus event'inin payload'ı.
type FocusData struct {
	PeerID string `json:"peerId"`
}

// UploadProgressData, fileUploadProgress event'inin payload'ı.
type UploadProgressData struct {
	ReceiverID string  `json:"receiverId"`
	FileName   string  `json:"fileName"`
	Progress   float64 `json:"progress"`
}

// MarkAsReadData, markAsRead event'inin payload'ı.
type MarkAsReadData struct {
	PeerID string `json:"peerId"`
}

// CallRequestData, callRequest event'inin payload'ı.
type CallRequestData struct {
	ReceiverID string `json:"receiverId"`
	CallType   string `json:"callType"`
}

// CallResponseData, callResponse event'inin payload'ı.
type CallResponseData struct {
	CallID   string `json:"callId"`
	Accepted bool   `json:"accepted"`
}

// CallEndData, callEnd event'inin payload'ı.
type CallEndData struct {
	CallID string `json:"callId"`
}

// MessageUpdateData, messageUpdate event'inin payload'ı.
type MessageUpdateData struct {
	Action  string          `json:"action"`
	Message *models.Message `json:"message"`
}

// EntityChangedData, tek tip "bir şey değişti" event'i.
//
// Kind: "relationship", "unread", "message", "user"
// Action: "set", "cleared", "reset", "delivered", "moderated", "status" ...
// Status ve CustomStatus sadece user/status'ta doludur.
type EntityChangedData struct {
	Kind         string            `json:"kind"`
	Action       string            `json:"action"`
	UserID       string            `json:"userId"`
	TargetUserID string            `json:"targetUserId,omitempty"`
	Status       models.UserStatus `json:"status,omitempty"`
	CustomStatus *string           `json:"customStatus,omitempty"`
}

// Notification, {type, ...} şeklindeki notification payload'ını kurar.
// fields içindeki "type" anahtarı ezilir.
func Notification(kind string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["type"] = kind
	return out
}
